//go:generate go run go.uber.org/mock/mockgen -source=event_repository.go -destination=../../mocks/mock_event_repository.go -package=mocks
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"pulse-lab/domain"
	apperrors "pulse-lab/errors"
)

type IEventRepository interface {
	CreateEvent(creator domain.UserID, title, description, mediaRef string) (domain.Event, error)
	GetEvent(id domain.EventID) (domain.Event, error)
}

type EventRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
}

func NewEventRepository(db *badger.DB, log *slog.Logger) (*EventRepository, error) {
	seq, err := db.GetSequence([]byte("seq:events"), 64)
	if err != nil {
		return nil, fmt.Errorf("event id sequence: %w", err)
	}
	return &EventRepository{db: db, log: log, seq: seq}, nil
}

func (r *EventRepository) Close() error {
	return r.seq.Release()
}

// CreateEvent persists an immutable event record.
func (r *EventRepository) CreateEvent(creator domain.UserID, title, description, mediaRef string) (domain.Event, error) {
	next, err := r.seq.Next()
	if err != nil {
		return domain.Event{}, fmt.Errorf("event id allocation: %w", err)
	}
	event := domain.Event{
		ID:          domain.EventID(next + 1),
		CreatorID:   creator,
		Title:       title,
		Description: description,
		MediaRef:    mediaRef,
		CreatedAt:   time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return domain.Event{}, err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(event.ID), data)
	})
	if err != nil {
		return domain.Event{}, err
	}

	r.log.Debug("event created", "event_id", event.ID, "creator_id", creator)
	return event, nil
}

func (r *EventRepository) GetEvent(id domain.EventID) (domain.Event, error) {
	var event domain.Event
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrEventNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &event)
		})
	})
	return event, err
}

//go:generate go run go.uber.org/mock/mockgen -source=ack_ledger.go -destination=../../mocks/mock_ack_ledger.go -package=mocks
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"pulse-lab/domain"
	apperrors "pulse-lab/errors"
)

// FriendshipCheck answers whether user may acknowledge creator's events.
type FriendshipCheck func(ctx context.Context, creator, user domain.UserID) (bool, error)

type IAckLedger interface {
	Record(ctx context.Context, event domain.EventID, user, creator domain.UserID, isFriend FriendshipCheck) (domain.Acknowledgment, error)
	ListByEvent(event domain.EventID) ([]domain.Acknowledgment, error)
	Count(event domain.EventID) (int, error)
}

// AckLedger enforces at-most-one acknowledgment per (event, user) and
// assigns arrival-order positions. The count-then-insert sequence is the
// one true critical section of the system: it runs under a mutex scoped
// to the event id, inside a single Badger transaction, so two concurrent
// acknowledgers of the same event are linearized and a duplicate user
// is rejected rather than double-counted.
type AckLedger struct {
	db  *badger.DB
	log *slog.Logger

	mu    sync.Mutex
	locks map[domain.EventID]*sync.Mutex
}

func NewAckLedger(db *badger.DB, log *slog.Logger) *AckLedger {
	return &AckLedger{
		db:    db,
		log:   log,
		locks: make(map[domain.EventID]*sync.Mutex),
	}
}

// eventLock returns the mutex serializing writes for one event,
// allocating it on first use.
func (l *AckLedger) eventLock(event domain.EventID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[event]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[event] = lock
	}
	return lock
}

// Record validates and persists one acknowledgment. Checks run in order:
// self-acknowledgment, friendship, duplicate. A rejection leaves no state
// behind. On success the record carries position count+1 and the points
// derived from it.
func (l *AckLedger) Record(ctx context.Context, event domain.EventID,
	user, creator domain.UserID, isFriend FriendshipCheck) (domain.Acknowledgment, error) {
	if user == creator {
		return domain.Acknowledgment{}, apperrors.ErrSelfAck
	}

	linked, err := isFriend(ctx, creator, user)
	if err != nil {
		return domain.Acknowledgment{}, err
	}
	if !linked {
		return domain.Acknowledgment{}, apperrors.ErrNotFriends
	}

	lock := l.eventLock(event)
	lock.Lock()
	defer lock.Unlock()

	var ack domain.Acknowledgment
	err = l.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(ackKey(event, user))
		if err == nil {
			return apperrors.ErrAlreadyAcknowledged
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		count, err := countAcks(txn, event)
		if err != nil {
			return err
		}

		ack = domain.Acknowledgment{
			EventID:  event,
			UserID:   user,
			Position: count + 1,
			Points:   domain.Points(count + 1),
			AckedAt:  time.Now().UTC(),
		}
		data, err := json.Marshal(ack)
		if err != nil {
			return err
		}
		return txn.Set(ackKey(event, user), data)
	})
	if err != nil {
		return domain.Acknowledgment{}, err
	}

	l.log.Debug("acknowledgment recorded",
		"event_id", event, "user_id", user, "position", ack.Position, "points", ack.Points)
	return ack, nil
}

// ListByEvent returns the event's acknowledgments in arrival order.
func (l *AckLedger) ListByEvent(event domain.EventID) ([]domain.Acknowledgment, error) {
	var acks []domain.Acknowledgment
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := ackPrefix(event)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var ack domain.Acknowledgment
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &ack)
			})
			if err != nil {
				return err
			}
			acks = append(acks, ack)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Keys sort by user id; arrival order is the position.
	sort.Slice(acks, func(i, j int) bool {
		return acks[i].Position < acks[j].Position
	})
	return acks, nil
}

func (l *AckLedger) Count(event domain.EventID) (int, error) {
	var count int
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		count, err = countAcks(txn, event)
		return err
	})
	return count, err
}

func countAcks(txn *badger.Txn, event domain.EventID) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	count := 0
	prefix := ackPrefix(event)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		count++
	}
	return count, nil
}

//go:generate go run go.uber.org/mock/mockgen -source=score_store.go -destination=../../mocks/mock_score_store.go -package=mocks
package storage

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"pulse-lab/domain"
)

type IScoreStore interface {
	AddPoints(ctx context.Context, creator, friend domain.UserID, event domain.EventID, delta int) error
	Leaderboard(ctx context.Context, creator domain.UserID) ([]domain.LeaderboardEntry, error)
	EventLeaderboard(ctx context.Context, creator domain.UserID, event domain.EventID) ([]domain.EventLeaderboardEntry, error)
	Total(ctx context.Context, creator, friend domain.UserID) (int, error)
}

// ScoreStore maintains the per-event buckets and the derived
// lifetime-total bucket of every (creator, friend) pair. The total is
// recomputed from scratch on every update, inside the same transaction
// as the per-event upsert, so it can never drift from the sum of the
// per-event buckets. Updates to one pair are serialized by a keyed mutex
// to rule out lost updates on the total.
type ScoreStore struct {
	db  *badger.DB
	log *slog.Logger

	mu    sync.Mutex
	locks map[pairKey]*sync.Mutex
}

type pairKey struct {
	creator domain.UserID
	friend  domain.UserID
}

func NewScoreStore(db *badger.DB, log *slog.Logger) *ScoreStore {
	return &ScoreStore{
		db:    db,
		log:   log,
		locks: make(map[pairKey]*sync.Mutex),
	}
}

func (s *ScoreStore) pairLock(creator, friend domain.UserID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{creator: creator, friend: friend}
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// AddPoints upserts the (creator, friend, event) bucket by delta, then
// rewrites the lifetime total as the sum over all per-event buckets of
// the pair.
func (s *ScoreStore) AddPoints(_ context.Context, creator, friend domain.UserID,
	event domain.EventID, delta int) error {
	lock := s.pairLock(creator, friend)
	lock.Lock()
	defer lock.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		current, err := readPoints(txn, bucketKey(creator, friend, event))
		if err != nil {
			return err
		}
		if err := writePoints(txn, bucketKey(creator, friend, event), current+delta); err != nil {
			return err
		}

		sum, err := sumBuckets(txn, creator, friend)
		if err != nil {
			return err
		}
		return writePoints(txn, totalKey(creator, friend), sum)
	})
	if err != nil {
		return err
	}

	s.log.Debug("points added",
		"creator_id", creator, "friend_id", friend, "event_id", event, "delta", delta)
	return nil
}

// Leaderboard returns every lifetime-total bucket of the creator sorted
// descending by points, ties broken by ascending friend id. Names are
// joined by the caller.
func (s *ScoreStore) Leaderboard(_ context.Context, creator domain.UserID) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := totalPrefix(creator)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			friendID, err := parseTrailingID(item.Key())
			if err != nil {
				return err
			}
			var points int
			if err := item.Value(func(v []byte) error {
				points, err = parsePoints(v)
				return err
			}); err != nil {
				return err
			}
			entries = append(entries, domain.LeaderboardEntry{
				FriendID: domain.UserID(friendID),
				Points:   points,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Iteration yields ascending friend ids; the stable sort keeps that
	// order within equal point totals.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	return entries, nil
}

// EventLeaderboard returns the per-event buckets of one event, sorted
// descending by points, ties by ascending friend id.
func (s *ScoreStore) EventLeaderboard(_ context.Context, creator domain.UserID,
	event domain.EventID) ([]domain.EventLeaderboardEntry, error) {
	var entries []domain.EventLeaderboardEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := bucketCreatorPrefix(creator)
		suffix := []byte(eventKeySuffix(event))
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			if !hasSuffix(key, suffix) {
				continue
			}
			friendID, err := parseMiddleID(key)
			if err != nil {
				return err
			}
			var points int
			if err := item.Value(func(v []byte) error {
				points, err = parsePoints(v)
				return err
			}); err != nil {
				return err
			}
			entries = append(entries, domain.EventLeaderboardEntry{
				FriendID: domain.UserID(friendID),
				Points:   points,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].FriendID < entries[j].FriendID
	})
	return entries, nil
}

// Total reads the lifetime-total bucket of one pair.
func (s *ScoreStore) Total(_ context.Context, creator, friend domain.UserID) (int, error) {
	var points int
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		points, err = readPoints(txn, totalKey(creator, friend))
		return err
	})
	return points, err
}

func sumBuckets(txn *badger.Txn, creator, friend domain.UserID) (int, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	sum := 0
	prefix := bucketPairPrefix(creator, friend)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var points int
		err := it.Item().Value(func(v []byte) error {
			var err error
			points, err = parsePoints(v)
			return err
		})
		if err != nil {
			return 0, err
		}
		sum += points
	}
	return sum, nil
}

func readPoints(txn *badger.Txn, key []byte) (int, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var points int
	err = item.Value(func(v []byte) error {
		points, err = parsePoints(v)
		return err
	})
	return points, err
}

func writePoints(txn *badger.Txn, key []byte, points int) error {
	return txn.Set(key, []byte(strconv.Itoa(points)))
}

func parsePoints(v []byte) (int, error) {
	return strconv.Atoi(string(v))
}

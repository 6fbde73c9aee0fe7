package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"pulse-lab/domain"
	apperrors "pulse-lab/errors"
)

// FriendshipRepository stores the symmetric friend relation as two
// mirrored rows written in one transaction. It implements the read-only
// contract.FriendGraph the core consumes, plus the maintenance ops.
type FriendshipRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewFriendshipRepository(db *badger.DB, log *slog.Logger) *FriendshipRepository {
	return &FriendshipRepository{db: db, log: log}
}

// AddFriendship creates both directions atomically. An existing row in
// either direction means the pair is already linked.
func (r *FriendshipRepository) AddFriendship(ctx context.Context, user, friend domain.UserID) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{friendKey(user, friend), friendKey(friend, user)} {
			if _, err := txn.Get(key); err == nil {
				return apperrors.ErrAlreadyFriends
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		if err := txn.Set(friendKey(user, friend), nil); err != nil {
			return err
		}
		return txn.Set(friendKey(friend, user), nil)
	})
	if errors.Is(err, badger.ErrConflict) {
		return apperrors.ErrAlreadyFriends
	}
	if err != nil {
		return err
	}
	r.log.Debug("friendship created", "user_id", user, "friend_id", friend)
	return nil
}

// AreFriends reports whether the two users are linked. Rows are mirrored,
// so one direction is enough.
func (r *FriendshipRepository) AreFriends(_ context.Context, a, b domain.UserID) (bool, error) {
	var linked bool
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(friendKey(a, b))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		linked = true
		return nil
	})
	return linked, err
}

// ListFriends returns the user's friends ordered by ascending friend id,
// joined with their user records inside one read transaction.
func (r *FriendshipRepository) ListFriends(_ context.Context, id domain.UserID) ([]domain.Friend, error) {
	var friends []domain.Friend
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := friendPrefix(id)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			friendID, err := parseTrailingID(key)
			if err != nil {
				return err
			}
			user, err := getUser(txn, domain.UserID(friendID))
			if err != nil {
				return err
			}
			friends = append(friends, domain.Friend{ID: user.ID, Name: user.Name, Email: user.Email})
		}
		return nil
	})
	return friends, err
}

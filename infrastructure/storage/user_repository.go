//go:generate go run go.uber.org/mock/mockgen -source=user_repository.go -destination=../../mocks/mock_user_repository.go -package=mocks
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"pulse-lab/domain"
	apperrors "pulse-lab/errors"
)

type IUserRepository interface {
	CreateUser(name, email, passwordHash string) (domain.UserID, error)
	GetUserByEmail(email string) (domain.User, error)
	GetUserByID(id domain.UserID) (domain.User, error)
}

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
}

func NewUserRepository(db *badger.DB, log *slog.Logger) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte("seq:users"), 64)
	if err != nil {
		return nil, fmt.Errorf("user id sequence: %w", err)
	}
	return &UserRepository{db: db, log: log, seq: seq}, nil
}

// Close releases the id sequence lease back to the store.
func (r *UserRepository) Close() error {
	return r.seq.Release()
}

// CreateUser persists a new account. The email index key makes the email
// unique: a concurrent insert of the same address conflicts on that key
// and loses the transaction.
func (r *UserRepository) CreateUser(name, email, passwordHash string) (domain.UserID, error) {
	next, err := r.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("user id allocation: %w", err)
	}
	user := domain.User{
		ID:           domain.UserID(next + 1),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return 0, err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(userEmailKey(email))
		if err == nil {
			return apperrors.ErrEmailTaken
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(userKey(user.ID), data); err != nil {
			return err
		}
		return txn.Set(userEmailKey(email), []byte(strconv.FormatInt(int64(user.ID), 10)))
	})
	if errors.Is(err, badger.ErrConflict) {
		return 0, apperrors.ErrEmailTaken
	}
	if err != nil {
		return 0, err
	}

	r.log.Debug("user created", "user_id", user.ID, "email", email)
	return user.ID, nil
}

func (r *UserRepository) GetUserByEmail(email string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		var id domain.UserID
		if err := item.Value(func(v []byte) error {
			parsed, err := strconv.ParseInt(string(v), 10, 64)
			id = domain.UserID(parsed)
			return err
		}); err != nil {
			return err
		}
		user, err = getUser(txn, id)
		return err
	})
	return user, err
}

func (r *UserRepository) GetUserByID(id domain.UserID) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	return user, err
}

func getUser(txn *badger.Txn, id domain.UserID) (domain.User, error) {
	var user domain.User
	item, err := txn.Get(userKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return user, apperrors.ErrUserNotFound
	}
	if err != nil {
		return user, err
	}
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &user)
	})
	return user, err
}

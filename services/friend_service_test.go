package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	apperrors "pulse-lab/errors"
	"pulse-lab/infrastructure/storage"
)

func TestFriendService(t *testing.T) {
	req := require.New(t)
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	req.NoError(err)
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users, err := storage.NewUserRepository(db, logger)
	req.NoError(err)
	defer users.Close()
	friendships := storage.NewFriendshipRepository(db, logger)
	svc := NewFriendService(users, friendships)
	ctx := context.Background()

	idA, err := users.CreateUser("Ana", "ana@example.com", "h")
	req.NoError(err)
	idB, err := users.CreateUser("Bob", "bob@example.com", "h")
	req.NoError(err)

	// Self-friendship is rejected before touching the store
	req.ErrorIs(svc.AddFriend(ctx, idA, idA), apperrors.ErrSelfFriendship)

	// Both sides must exist
	req.ErrorIs(svc.AddFriend(ctx, idA, idB+100), apperrors.ErrUserNotFound)
	req.ErrorIs(svc.AddFriend(ctx, idB+100, idA), apperrors.ErrUserNotFound)

	// A valid pair links both ways
	req.NoError(svc.AddFriend(ctx, idA, idB))
	linked, err := svc.AreFriends(ctx, idB, idA)
	req.NoError(err)
	req.True(linked)

	friends, err := svc.ListFriends(ctx, idB)
	req.NoError(err)
	req.Len(friends, 1)
	req.Equal("Ana", friends[0].Name)

	// Listing for an unknown user is rejected
	_, err = svc.ListFriends(ctx, idB+100)
	req.ErrorIs(err, apperrors.ErrUserNotFound)
}

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pulse-lab/domain"
	apperrors "pulse-lab/errors"
)

func TestFriendshipRepository_Mirrored(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	repo := NewFriendshipRepository(db, testLogger())
	ctx := context.Background()

	// When a friendship is created in one direction
	req.NoError(repo.AddFriendship(ctx, 1, 2))

	// Then both directions exist
	linked, err := repo.AreFriends(ctx, 1, 2)
	req.NoError(err)
	req.True(linked)
	linked, err = repo.AreFriends(ctx, 2, 1)
	req.NoError(err)
	req.True(linked)

	// And strangers stay strangers
	linked, err = repo.AreFriends(ctx, 1, 3)
	req.NoError(err)
	req.False(linked)
}

func TestFriendshipRepository_Duplicate(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	repo := NewFriendshipRepository(db, testLogger())
	ctx := context.Background()

	req.NoError(repo.AddFriendship(ctx, 1, 2))

	// Re-adding in either direction is rejected
	req.ErrorIs(repo.AddFriendship(ctx, 1, 2), apperrors.ErrAlreadyFriends)
	req.ErrorIs(repo.AddFriendship(ctx, 2, 1), apperrors.ErrAlreadyFriends)
}

func TestFriendshipRepository_ListFriends(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	users, err := NewUserRepository(db, testLogger())
	req.NoError(err)
	defer users.Close()
	repo := NewFriendshipRepository(db, testLogger())
	ctx := context.Background()

	ownerID, err := users.CreateUser("Owner", "owner@example.com", "h")
	req.NoError(err)
	idA, err := users.CreateUser("Ana", "ana@example.com", "h")
	req.NoError(err)
	idB, err := users.CreateUser("Bob", "bob@example.com", "h")
	req.NoError(err)

	// Added out of id order on purpose
	req.NoError(repo.AddFriendship(ctx, ownerID, idB))
	req.NoError(repo.AddFriendship(ctx, ownerID, idA))

	// Then the listing joins user records in ascending id order
	friends, err := repo.ListFriends(ctx, ownerID)
	req.NoError(err)
	req.Equal([]domain.Friend{
		{ID: idA, Name: "Ana", Email: "ana@example.com"},
		{ID: idB, Name: "Bob", Email: "bob@example.com"},
	}, friends)

	// A user with no friends gets an empty listing, not an error
	friends, err = repo.ListFriends(ctx, idA+100)
	req.NoError(err)
	req.Empty(friends)
}

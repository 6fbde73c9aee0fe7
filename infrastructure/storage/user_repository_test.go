package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "pulse-lab/errors"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	repo, err := NewUserRepository(db, testLogger())
	req.NoError(err)
	defer repo.Close()

	// When a user registers
	id, err := repo.CreateUser("Fatou", "fatou@example.com", "$argon2id$fake")
	req.NoError(err)
	req.NotZero(id)

	// Then both lookup paths find the same record
	byID, err := repo.GetUserByID(id)
	req.NoError(err)
	req.Equal("Fatou", byID.Name)

	byEmail, err := repo.GetUserByEmail("fatou@example.com")
	req.NoError(err)
	req.Equal(byID.ID, byEmail.ID)
	req.Equal(byID.PasswordHash, byEmail.PasswordHash)
}

func TestUserRepository_EmailUnique(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	repo, err := NewUserRepository(db, testLogger())
	req.NoError(err)
	defer repo.Close()

	_, err = repo.CreateUser("Fatou", "fatou@example.com", "hash1")
	req.NoError(err)

	// When another registration reuses the address
	_, err = repo.CreateUser("Imposter", "fatou@example.com", "hash2")

	// Then it is rejected and the original record is untouched
	req.ErrorIs(err, apperrors.ErrEmailTaken)
	user, err := repo.GetUserByEmail("fatou@example.com")
	req.NoError(err)
	req.Equal("Fatou", user.Name)
}

func TestUserRepository_NotFound(t *testing.T) {
	req := require.New(t)
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	repo, err := NewUserRepository(db, testLogger())
	req.NoError(err)
	defer repo.Close()

	_, err = repo.GetUserByID(999)
	req.ErrorIs(err, apperrors.ErrUserNotFound)

	_, err = repo.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, apperrors.ErrUserNotFound)
}

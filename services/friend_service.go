package services

import (
	"context"

	"pulse-lab/domain"
	apperrors "pulse-lab/errors"
	"pulse-lab/infrastructure/storage"
)

type IFriendService interface {
	AddFriend(ctx context.Context, userID, friendID domain.UserID) error
	ListFriends(ctx context.Context, userID domain.UserID) ([]domain.Friend, error)
	AreFriends(ctx context.Context, a, b domain.UserID) (bool, error)
}

// FriendService fronts the friend graph: both users must exist, a user
// cannot befriend themselves and the pair must not already be linked.
type FriendService struct {
	users       storage.IUserRepository
	friendships *storage.FriendshipRepository
}

func NewFriendService(users storage.IUserRepository, friendships *storage.FriendshipRepository) *FriendService {
	return &FriendService{users: users, friendships: friendships}
}

func (s *FriendService) AddFriend(ctx context.Context, userID, friendID domain.UserID) error {
	if userID == friendID {
		return apperrors.ErrSelfFriendship
	}
	if _, err := s.users.GetUserByID(userID); err != nil {
		return err
	}
	if _, err := s.users.GetUserByID(friendID); err != nil {
		return err
	}
	return s.friendships.AddFriendship(ctx, userID, friendID)
}

func (s *FriendService) ListFriends(ctx context.Context, userID domain.UserID) ([]domain.Friend, error) {
	if _, err := s.users.GetUserByID(userID); err != nil {
		return nil, err
	}
	return s.friendships.ListFriends(ctx, userID)
}

func (s *FriendService) AreFriends(ctx context.Context, a, b domain.UserID) (bool, error) {
	return s.friendships.AreFriends(ctx, a, b)
}

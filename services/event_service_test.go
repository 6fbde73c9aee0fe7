package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"pulse-lab/auth"
	"pulse-lab/domain"
	"pulse-lab/domain/notice"
	apperrors "pulse-lab/errors"
	"pulse-lab/infrastructure/storage"
)

// recordingNotifier captures enqueued notices in order.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice.Notice
}

func (n *recordingNotifier) EventCreated(evt notice.EventCreated) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, evt)
}

func (n *recordingNotifier) LeaderboardUpdated(evt notice.LeaderboardUpdated) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, evt)
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]string, 0, len(n.notices))
	for _, evt := range n.notices {
		kinds = append(kinds, evt.Kind())
	}
	return kinds
}

type fixture struct {
	users    *storage.UserRepository
	friends  *storage.FriendshipRepository
	service  *EventService
	notifier *recordingNotifier
}

func setupFixture(t *testing.T) (*fixture, func()) {
	req := require.New(t)
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	req.NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users, err := storage.NewUserRepository(db, logger)
	req.NoError(err)
	events, err := storage.NewEventRepository(db, logger)
	req.NoError(err)
	friends := storage.NewFriendshipRepository(db, logger)
	ledger := storage.NewAckLedger(db, logger)
	scores := storage.NewScoreStore(db, logger)
	notifier := &recordingNotifier{}

	service := NewEventService(logger, users, events, ledger, scores, friends, notifier, nil)

	return &fixture{
			users:    users,
			friends:  friends,
			service:  service,
			notifier: notifier,
		}, func() {
			users.Close()
			events.Close()
			db.Close()
		}
}

func (f *fixture) addUser(t *testing.T, name string) domain.UserID {
	id, err := f.users.CreateUser(name, name+"@example.com", "hash")
	require.NoError(t, err)
	return id
}

func validEvent(title string) auth.CreateEventRequest {
	return auth.CreateEventRequest{Title: title, MediaRef: "media/" + title + ".jpg"}
}

func TestEventService_AcknowledgmentFlow(t *testing.T) {
	req := require.New(t)
	f, cleanup := setupFixture(t)
	defer cleanup()
	ctx := context.Background()

	// Given a creator with three friends
	creator := f.addUser(t, "creator")
	f1 := f.addUser(t, "f1")
	f2 := f.addUser(t, "f2")
	f3 := f.addUser(t, "f3")
	req.NoError(f.friends.AddFriendship(ctx, creator, f1))
	req.NoError(f.friends.AddFriendship(ctx, creator, f2))
	req.NoError(f.friends.AddFriendship(ctx, creator, f3))

	// When the creator publishes an event
	event1, err := f.service.CreateEvent(ctx, creator, validEvent("ride"))
	req.NoError(err)

	// And the friends acknowledge in the order f2, f1, f3
	ack, err := f.service.Acknowledge(ctx, event1.ID, f2)
	req.NoError(err)
	req.Equal(1, ack.Position)
	req.Equal(100, ack.Points)
	ack, err = f.service.Acknowledge(ctx, event1.ID, f1)
	req.NoError(err)
	req.Equal(2, ack.Position)
	req.Equal(90, ack.Points)
	ack, err = f.service.Acknowledge(ctx, event1.ID, f3)
	req.NoError(err)
	req.Equal(3, ack.Position)
	req.Equal(80, ack.Points)

	// Then the lifetime leaderboard ranks by total points with names
	board, err := f.service.Leaderboard(ctx, creator)
	req.NoError(err)
	req.Equal([]domain.LeaderboardEntry{
		{FriendID: f2, Name: "f2", Points: 100},
		{FriendID: f1, Name: "f1", Points: 90},
		{FriendID: f3, Name: "f3", Points: 80},
	}, board)

	// When f1 is first on a second event
	event2, err := f.service.CreateEvent(ctx, creator, validEvent("hike"))
	req.NoError(err)
	ack, err = f.service.Acknowledge(ctx, event2.ID, f1)
	req.NoError(err)
	req.Equal(100, ack.Points)

	// Then f1 overtakes f2 on the lifetime board
	board, err = f.service.Leaderboard(ctx, creator)
	req.NoError(err)
	req.Equal([]domain.LeaderboardEntry{
		{FriendID: f1, Name: "f1", Points: 190},
		{FriendID: f2, Name: "f2", Points: 100},
		{FriendID: f3, Name: "f3", Points: 80},
	}, board)

	// And the per-event board of event1 is unchanged
	perEvent, err := f.service.EventLeaderboard(ctx, event1.ID)
	req.NoError(err)
	req.Equal([]domain.EventLeaderboardEntry{
		{FriendID: f2, Points: 100},
		{FriendID: f1, Points: 90},
		{FriendID: f3, Points: 80},
	}, perEvent)
}

func TestEventService_Rejections(t *testing.T) {
	req := require.New(t)
	f, cleanup := setupFixture(t)
	defer cleanup()
	ctx := context.Background()

	creator := f.addUser(t, "creator")
	friend := f.addUser(t, "friend")
	stranger := f.addUser(t, "stranger")
	req.NoError(f.friends.AddFriendship(ctx, creator, friend))

	event, err := f.service.CreateEvent(ctx, creator, validEvent("ride"))
	req.NoError(err)

	// Creators cannot acknowledge their own events
	_, err = f.service.Acknowledge(ctx, event.ID, creator)
	req.ErrorIs(err, apperrors.ErrSelfAck)

	// Strangers cannot acknowledge
	_, err = f.service.Acknowledge(ctx, event.ID, stranger)
	req.ErrorIs(err, apperrors.ErrNotFriends)

	// A second acknowledgment from the same friend is rejected
	_, err = f.service.Acknowledge(ctx, event.ID, friend)
	req.NoError(err)
	_, err = f.service.Acknowledge(ctx, event.ID, friend)
	req.ErrorIs(err, apperrors.ErrAlreadyAcknowledged)

	// Unknown events and unknown users are rejected
	_, err = f.service.Acknowledge(ctx, event.ID+100, friend)
	req.ErrorIs(err, apperrors.ErrEventNotFound)
	_, err = f.service.Acknowledge(ctx, event.ID, stranger+100)
	req.ErrorIs(err, apperrors.ErrUserNotFound)

	// And the rejections left the scores untouched
	board, err := f.service.Leaderboard(ctx, creator)
	req.NoError(err)
	req.Equal([]domain.LeaderboardEntry{
		{FriendID: friend, Name: "friend", Points: 100},
	}, board)
}

func TestEventService_CreateEventValidation(t *testing.T) {
	req := require.New(t)
	f, cleanup := setupFixture(t)
	defer cleanup()
	ctx := context.Background()

	creator := f.addUser(t, "creator")

	// Missing media reference
	_, err := f.service.CreateEvent(ctx, creator, auth.CreateEventRequest{Title: "ride"})
	req.ErrorIs(err, apperrors.ErrInvalidRequest)

	// Unknown creator
	_, err = f.service.CreateEvent(ctx, creator+100, validEvent("ride"))
	req.ErrorIs(err, apperrors.ErrUserNotFound)

	// Nothing was announced
	req.Empty(f.notifier.kinds())
}

func TestEventService_NoticeOrder(t *testing.T) {
	req := require.New(t)
	f, cleanup := setupFixture(t)
	defer cleanup()
	ctx := context.Background()

	creator := f.addUser(t, "creator")
	friend := f.addUser(t, "friend")
	req.NoError(f.friends.AddFriendship(ctx, creator, friend))

	event, err := f.service.CreateEvent(ctx, creator, validEvent("ride"))
	req.NoError(err)
	_, err = f.service.Acknowledge(ctx, event.ID, friend)
	req.NoError(err)

	// The announcement precedes the leaderboard update it caused
	req.Equal([]string{notice.KindEventCreated, notice.KindLeaderboardUpdated}, f.notifier.kinds())

	// And the update carries the event snapshot for the creator
	last, ok := f.notifier.notices[1].(notice.LeaderboardUpdated)
	req.True(ok)
	req.Equal(creator, last.CreatorID)
	req.Equal([]domain.EventLeaderboardEntry{{FriendID: friend, Points: 100}}, last.Leaderboard)
}

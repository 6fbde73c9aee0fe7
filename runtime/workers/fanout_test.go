package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pulse-lab/contract"
	"pulse-lab/domain"
	"pulse-lab/domain/notice"
	"pulse-lab/mocks"
)

func TestNotificationFanout_EventCreated(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockFriends := mocks.NewMockFriendGraph(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	fanout := NewNotificationFanout(log, mockRegistry, mockFriends, nil, 10, time.Second)

	// Given the creator has two friends, each with one connection in
	// its broadcast room
	mockFriends.EXPECT().
		ListFriends(gomock.Any(), domain.UserID(1)).
		Return([]domain.Friend{{ID: 2}, {ID: 3}}, nil).
		Times(1)
	mockRegistry.EXPECT().
		SinksForRoom(domain.BroadcastRoom(2)).
		Return([]contract.EventSink{mockSink}).
		Times(1)
	mockRegistry.EXPECT().
		SinksForRoom(domain.BroadcastRoom(3)).
		Return([]contract.EventSink{mockSink}).
		Times(1)

	delivered := 0
	mockSink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		Do(func(ctx context.Context, n notice.Notice) {
			delivered++
			req.Equal(notice.KindEventCreated, n.Kind())
		}).
		Return(nil).
		Times(2)

	// When the announcement is fanned out
	fanout.Fanout(context.Background(), notice.EventCreated{EventID: 5, CreatorID: 1})

	// Then every friend connection got it exactly once
	req.Equal(2, delivered)
}

func TestNotificationFanout_LeaderboardToCreatorOnly(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockFriends := mocks.NewMockFriendGraph(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	fanout := NewNotificationFanout(log, mockRegistry, mockFriends, nil, 10, time.Second)

	// Given only the creator's personal room is resolved, never the
	// friend graph
	mockRegistry.EXPECT().
		SinksForRoom(domain.PersonalRoom(1)).
		Return([]contract.EventSink{mockSink}).
		Times(1)
	mockSink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		Return(nil).
		Times(1)

	// When a leaderboard snapshot is fanned out
	// Then the mock expectations carry the assertions
	fanout.Fanout(context.Background(), notice.LeaderboardUpdated{EventID: 5, CreatorID: 1})
}

func TestNotificationFanout_NoRecipient(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockFriends := mocks.NewMockFriendGraph(ctrl)

	fanout := NewNotificationFanout(log, mockRegistry, mockFriends, nil, 10, time.Second)

	// Given the creator has one friend but nobody is connected
	mockFriends.EXPECT().
		ListFriends(gomock.Any(), domain.UserID(1)).
		Return([]domain.Friend{{ID: 2}}, nil).
		Times(1)
	mockRegistry.EXPECT().
		SinksForRoom(domain.BroadcastRoom(2)).
		Return(nil).
		Times(1)

	// When the announcement is fanned out
	// Then nothing blows up: zero recipients is not an error
	fanout.Fanout(context.Background(), notice.EventCreated{EventID: 5, CreatorID: 1})
}

func TestNotificationFanout_CausalOrder(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockFriends := mocks.NewMockFriendGraph(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	fanout := NewNotificationFanout(log, mockRegistry, mockFriends, nil, 10, time.Second)

	mockFriends.EXPECT().
		ListFriends(gomock.Any(), gomock.Any()).
		Return([]domain.Friend{{ID: 2}}, nil).
		AnyTimes()
	mockRegistry.EXPECT().
		SinksForRoom(gomock.Any()).
		Return([]contract.EventSink{mockSink}).
		AnyTimes()

	var kinds []string
	done := make(chan struct{})
	mockSink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		Do(func(ctx context.Context, n notice.Notice) {
			kinds = append(kinds, n.Kind())
			if len(kinds) == 2 {
				close(done)
			}
		}).
		Return(nil).
		Times(2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = fanout.Run(ctx) }()

	// When an announcement is enqueued before a leaderboard update
	fanout.EventCreated(notice.EventCreated{EventID: 5, CreatorID: 1})
	fanout.LeaderboardUpdated(notice.LeaderboardUpdated{EventID: 5, CreatorID: 1})

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Fan-out loop did not drain in time")
	}

	// Then the wire order matches the enqueue order
	req.Equal([]string{notice.KindEventCreated, notice.KindLeaderboardUpdated}, kinds)
}

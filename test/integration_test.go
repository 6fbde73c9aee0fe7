package test

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"pulse-lab/auth"
	"pulse-lab/infrastructure/storage"
	"pulse-lab/infrastructure/tcp"
	"pulse-lab/runtime"
	"pulse-lab/runtime/workers"
	"pulse-lab/services"
)

type frame struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

type client struct {
	t       *testing.T
	conn    net.Conn
	scanner *bufio.Scanner
}

func dialClient(t *testing.T, addr string) *client {
	var conn net.Conn
	var err error
	// The listener comes up asynchronously under the supervisor
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &client{t: t, conn: conn, scanner: bufio.NewScanner(conn)}
}

func (c *client) send(kind string, payload any) {
	data, err := json.Marshal(payload)
	require.NoError(c.t, err)
	line, err := json.Marshal(frame{Kind: kind, Data: data})
	require.NoError(c.t, err)
	_, err = c.conn.Write(append(line, '\n'))
	require.NoError(c.t, err)
}

// expect reads frames until one of the wanted kind arrives, skipping
// interleaved notices.
func (c *client) expect(kind string) frame {
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for c.scanner.Scan() {
		var f frame
		require.NoError(c.t, json.Unmarshal(c.scanner.Bytes(), &f))
		if f.Kind == kind {
			return f
		}
		require.NotEqual(c.t, "error", f.Kind, "unexpected error frame: %s", string(f.Data))
	}
	require.Failf(c.t, "missing frame", "never received a %q frame", kind)
	return frame{}
}

func Test_Scenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := require.New(t)

	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	users, err := storage.NewUserRepository(db, log)
	req.NoError(err)
	events, err := storage.NewEventRepository(db, log)
	req.NoError(err)
	friendships := storage.NewFriendshipRepository(db, log)
	ledger := storage.NewAckLedger(db, log)
	scores := storage.NewScoreStore(db, log)

	tokens := auth.NewTokenService("integration-secret", time.Hour)
	registry := runtime.NewRegistry(log, tokens, nil)
	fanout := workers.NewNotificationFanout(log, registry, friendships, nil, 100, time.Second)

	authService := services.NewAuthService(users, tokens)
	friendService := services.NewFriendService(users, friendships)
	eventService := services.NewEventService(log, users, events, ledger, scores,
		friendships, fanout, nil)

	// Reserve a port, then hand it to the server
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	req.NoError(err)
	addr := probe.Addr().String()
	req.NoError(probe.Close())

	server := tcp.NewServer(log, addr, registry, authService, friendService,
		eventService, 16, time.Second)
	sup := workers.NewSupervisor(log)
	sup.Add(fanout, server)
	go sup.Run(ctx)

	t.Cleanup(func() {
		sup.Stop()
		users.Close()
		events.Close()
		db.Close()
	})

	// Given a registered creator and friend, both connected
	creator := dialClient(t, addr)
	creator.send("register", map[string]string{
		"name": "Creator", "email": "creator@example.com", "password": "ComplexPass123!",
	})
	var creatorHello struct {
		UserID int64 `json:"userId"`
	}
	req.NoError(json.Unmarshal(creator.expect("connected").Data, &creatorHello))

	friend := dialClient(t, addr)
	friend.send("register", map[string]string{
		"name": "Friend", "email": "friend@example.com", "password": "ComplexPass123!",
	})
	var friendHello struct {
		UserID int64 `json:"userId"`
	}
	req.NoError(json.Unmarshal(friend.expect("connected").Data, &friendHello))

	// And the creator befriends them
	creator.send("add_friend", map[string]int64{"friendId": friendHello.UserID})
	creator.expect("ok")

	// When the creator publishes an event
	creator.send("create_event", map[string]string{
		"title": "Sunday ride", "mediaRef": "media/ride.jpg",
	})
	var created struct {
		EventID int64 `json:"eventId"`
	}
	req.NoError(json.Unmarshal(creator.expect("ok").Data, &created))
	req.NotZero(created.EventID)

	// Then the connected friend is notified
	var announced struct {
		EventID int64  `json:"eventId"`
		Title   string `json:"title"`
	}
	req.NoError(json.Unmarshal(friend.expect("event_created").Data, &announced))
	req.Equal(created.EventID, announced.EventID)
	req.Equal("Sunday ride", announced.Title)

	// When the friend acknowledges first
	friend.send("acknowledge", map[string]int64{"eventId": created.EventID})
	var ack struct {
		Position     int `json:"position"`
		PointsEarned int `json:"pointsEarned"`
	}
	req.NoError(json.Unmarshal(friend.expect("ok").Data, &ack))
	req.Equal(1, ack.Position)
	req.Equal(100, ack.PointsEarned)

	// Then the creator receives the refreshed event leaderboard
	var update struct {
		EventID     int64 `json:"eventId"`
		Leaderboard []struct {
			FriendID int64 `json:"friendId"`
			Points   int   `json:"points"`
		} `json:"leaderboard"`
	}
	req.NoError(json.Unmarshal(creator.expect("leaderboard_updated").Data, &update))
	req.Equal(created.EventID, update.EventID)
	req.Len(update.Leaderboard, 1)
	req.Equal(friendHello.UserID, update.Leaderboard[0].FriendID)
	req.Equal(100, update.Leaderboard[0].Points)

	// And the lifetime leaderboard reflects the points
	creator.send("leaderboard", nil)
	var board struct {
		Leaderboard []struct {
			FriendID int64  `json:"friendId"`
			Name     string `json:"name"`
			Points   int    `json:"points"`
		} `json:"leaderboard"`
	}
	req.NoError(json.Unmarshal(creator.expect("ok").Data, &board))
	req.Len(board.Leaderboard, 1)
	req.Equal("Friend", board.Leaderboard[0].Name)
	req.Equal(100, board.Leaderboard[0].Points)

	// And a second acknowledgment is rejected in-band
	friend.send("acknowledge", map[string]int64{"eventId": created.EventID})
	req.NoError(friend.conn.SetReadDeadline(time.Now().Add(3 * time.Second)))
	req.True(friend.scanner.Scan())
	var rejection frame
	req.NoError(json.Unmarshal(friend.scanner.Bytes(), &rejection))
	req.Equal("error", rejection.Kind)
	req.Contains(string(rejection.Data), "conflict")
}

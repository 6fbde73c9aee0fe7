// Package notice defines the messages pushed to connected peers.
package notice

import (
	"time"

	"pulse-lab/domain"
)

// Kinds of the two frames sent core -> peer.
const (
	KindEventCreated       = "event_created"
	KindLeaderboardUpdated = "leaderboard_updated"
)

type Notice interface {
	Kind() string
}

// EventCreated announces a new event to the creator's friends.
type EventCreated struct {
	EventID   domain.EventID `json:"eventId"`
	Title     string         `json:"title"`
	CreatorID domain.UserID  `json:"creatorId"`
	Timestamp time.Time      `json:"timestamp"`
}

func (EventCreated) Kind() string { return KindEventCreated }

// LeaderboardUpdated carries the event leaderboard snapshot taken right
// after an acknowledgment committed. Consumed by the creator only.
type LeaderboardUpdated struct {
	EventID     domain.EventID                 `json:"eventId"`
	CreatorID   domain.UserID                  `json:"-"`
	Leaderboard []domain.EventLeaderboardEntry `json:"leaderboard"`
}

func (LeaderboardUpdated) Kind() string { return KindLeaderboardUpdated }

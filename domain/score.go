package domain

// NoEvent is the sentinel event id of the lifetime-total bucket.
const NoEvent EventID = 0

// ScoreBucket accumulates points for a (creator, friend, event) triple.
// The bucket with Event == NoEvent holds the lifetime total and must
// always equal the sum of the per-event buckets for the same pair.
type ScoreBucket struct {
	Creator UserID  `json:"creator"`
	Friend  UserID  `json:"friend"`
	Event   EventID `json:"event"`
	Points  int     `json:"points"`
}

// LeaderboardEntry is one row of a creator's lifetime leaderboard.
type LeaderboardEntry struct {
	FriendID UserID `json:"friendId"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
}

// EventLeaderboardEntry is one row of a single event's leaderboard.
type EventLeaderboardEntry struct {
	FriendID UserID `json:"friendId"`
	Points   int    `json:"points"`
}

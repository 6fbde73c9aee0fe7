package domain

import "fmt"

// RoomID names a multicast group of live connections.
type RoomID string

// PersonalRoom addresses a single user's own connections. Leaderboard
// snapshots for a creator are delivered here.
func PersonalRoom(id UserID) RoomID {
	return RoomID(fmt.Sprintf("user:%d", id))
}

// BroadcastRoom addresses the connections a user keeps open to receive
// activity from their friends. A connection joins its own broadcast room
// at connect time; publishers resolve the friend list and target each
// friend's broadcast room.
func BroadcastRoom(id UserID) RoomID {
	return RoomID(fmt.Sprintf("feed:%d", id))
}

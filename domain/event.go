// Package domain contains core concepts of the pulse system.
// This file defines Event and Acknowledgment entities and the point rule.
package domain

import "time"

type EventID int64

// Event is immutable after creation; only its acknowledgment collection
// grows over time.
type Event struct {
	ID          EventID
	CreatorID   UserID
	Title       string
	Description string
	MediaRef    string
	CreatedAt   time.Time
}

// Acknowledgment records that a user acknowledged an event.
// Identity is the (EventID, UserID) pair: at most one record may exist
// per pair. Position is 1-based in arrival order.
type Acknowledgment struct {
	EventID  EventID   `json:"event_id"`
	UserID   UserID    `json:"user_id"`
	Position int       `json:"position"`
	Points   int       `json:"points"`
	AckedAt  time.Time `json:"acked_at"`
}

const (
	firstAckPoints = 100
	pointsStep     = 10
	minAckPoints   = 10
)

// Points returns the score earned at a given 1-based acknowledgment
// position: 100, 90, 80, ... floored at 10 from the tenth acknowledger on.
func Points(position int) int {
	p := firstAckPoints - (position-1)*pointsStep
	if p < minAckPoints {
		return minAckPoints
	}
	return p
}

// Package domain contains core concepts of the pulse system.
// This file defines User and Friend entities.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type UserID int64

// User is an account holder. PasswordHash carries the encoded Argon2id
// string, never a plain password.
type User struct {
	ID           UserID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Friend is the projection of a user as seen through the friend graph.
type Friend struct {
	ID    UserID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

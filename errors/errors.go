package errors

import (
	"errors"
	"fmt"
)

var (
	// Validation: malformed input, rejected before any state change.
	ErrInvalidRequest  = fmt.Errorf("invalid request")
	ErrInvalidPassword = fmt.Errorf("password does not meet complexity rules")
	ErrSelfFriendship  = fmt.Errorf("cannot add yourself as a friend")

	// Authorization: the caller is not allowed to perform the operation.
	ErrAuthRequired       = fmt.Errorf("identity token is missing")
	ErrInvalidIdentity    = fmt.Errorf("identity token is invalid or expired")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrSelfAck            = fmt.Errorf("cannot acknowledge your own event")
	ErrNotFriends         = fmt.Errorf("only friends can acknowledge events")

	// Conflict: the operation would duplicate existing state.
	ErrAlreadyAcknowledged = fmt.Errorf("event already acknowledged")
	ErrAlreadyFriends      = fmt.Errorf("already friends")
	ErrEmailTaken          = fmt.Errorf("email already in use")

	// Not found.
	ErrUserNotFound  = fmt.Errorf("user not found")
	ErrEventNotFound = fmt.Errorf("event not found")

	// Delivery: fan-out reached nobody. Logged, never surfaced to the
	// request that triggered the notification.
	ErrNoRecipients = fmt.Errorf("no connected recipients")

	ErrTokenGeneration = fmt.Errorf("token generation failed")
	ErrWorkerPanic     = fmt.Errorf("worker panic")
)

// Kind buckets the sentinel errors so callers can map them to a surface
// without matching each sentinel individually.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindConflict
	KindNotFound
	KindDelivery
)

func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrSelfFriendship):
		return KindValidation
	case errors.Is(err, ErrAuthRequired),
		errors.Is(err, ErrInvalidIdentity),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrSelfAck),
		errors.Is(err, ErrNotFriends):
		return KindAuthorization
	case errors.Is(err, ErrAlreadyAcknowledged),
		errors.Is(err, ErrAlreadyFriends),
		errors.Is(err, ErrEmailTaken):
		return KindConflict
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrEventNotFound):
		return KindNotFound
	case errors.Is(err, ErrNoRecipients):
		return KindDelivery
	default:
		return KindUnknown
	}
}

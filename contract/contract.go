//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"pulse-lab/domain"
	"pulse-lab/domain/notice"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one live peer connection seen from the core: a place
// notices can be pushed to, best effort.
type EventSink interface {
	Consume(ctx context.Context, n notice.Notice) error
}

// IRegistry tracks live connections, their bound identity and their room
// memberships. Connect binds the identity exactly once; Disconnect never
// fails. SinksForRoom returns a snapshot taken at call time.
type IRegistry interface {
	Connect(connID, token string, sink EventSink) (domain.UserID, error)
	Disconnect(connID string)
	SinksForRoom(roomID domain.RoomID) []EventSink
}

// Identity is the verified content of an identity token.
type Identity struct {
	UserID    domain.UserID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IdentityVerifier is the external credential collaborator. The token
// scheme is opaque here beyond this contract.
type IdentityVerifier interface {
	Verify(token string) (Identity, error)
}

// FriendGraph is the external friend-relationship collaborator,
// read-only from the core's perspective.
type FriendGraph interface {
	AreFriends(ctx context.Context, a, b domain.UserID) (bool, error)
	ListFriends(ctx context.Context, id domain.UserID) ([]domain.Friend, error)
}

// Notifier accepts notices for asynchronous fan-out. Both methods are
// fire-and-forget: enqueueing never reports delivery failures back.
type Notifier interface {
	EventCreated(n notice.EventCreated)
	LeaderboardUpdated(n notice.LeaderboardUpdated)
}

// Package runtime holds the live-connection machinery: the connection
// registry and the supervised workers that feed connected peers.
package runtime

import (
	"log/slog"
	"sync"

	"pulse-lab/contract"
	"pulse-lab/domain"
	"pulse-lab/observability"
)

type Set map[string]struct{}

type session struct {
	userID domain.UserID
	sink   contract.EventSink
	rooms  []domain.RoomID
}

// Registry tracks live connections, the identity bound to each and the
// rooms each belongs to. The identity is bound exactly once, at connect
// time, after the token has been verified. Mutations happen only on
// connect/disconnect; fan-out reads get a snapshot.
type Registry struct {
	mu          sync.RWMutex
	log         *slog.Logger
	verifier    contract.IdentityVerifier
	metrics     *observability.Metrics
	sessions    map[string]session
	roomMembers map[domain.RoomID]Set
}

func NewRegistry(log *slog.Logger, verifier contract.IdentityVerifier, metrics *observability.Metrics) *Registry {
	return &Registry{
		log:         log,
		verifier:    verifier,
		metrics:     metrics,
		sessions:    make(map[string]session),
		roomMembers: make(map[domain.RoomID]Set),
	}
}

// Connect verifies the identity token, binds the resulting user id to the
// connection and joins it to its personal room and its own broadcast
// room. On error the caller must terminate the connection.
func (r *Registry) Connect(connID, token string, sink contract.EventSink) (domain.UserID, error) {
	identity, err := r.verifier.Verify(token)
	if err != nil {
		return 0, err
	}

	rooms := []domain.RoomID{
		domain.PersonalRoom(identity.UserID),
		domain.BroadcastRoom(identity.UserID),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[connID] = session{userID: identity.UserID, sink: sink, rooms: rooms}
	for _, roomID := range rooms {
		if _, ok := r.roomMembers[roomID]; !ok {
			r.roomMembers[roomID] = make(Set)
		}
		r.roomMembers[roomID][connID] = struct{}{}
	}

	if r.metrics != nil {
		r.metrics.ConnectedPeers.Set(float64(len(r.sessions)))
	}
	r.log.Debug("peer connected", "user_id", identity.UserID, "conn_id", connID)
	return identity.UserID, nil
}

// Disconnect removes all room memberships and the identity binding.
// Unknown connection ids are ignored; disconnect never fails.
func (r *Registry) Disconnect(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[connID]
	if !ok {
		return
	}
	delete(r.sessions, connID)

	for _, roomID := range sess.rooms {
		if members, ok := r.roomMembers[roomID]; ok {
			delete(members, connID)
			// No empty sets left behind to prevent the room map from
			// growing with every user that ever connected.
			if len(members) == 0 {
				delete(r.roomMembers, roomID)
			}
		}
	}

	if r.metrics != nil {
		r.metrics.ConnectedPeers.Set(float64(len(r.sessions)))
	}
	r.log.Debug("peer disconnected", "user_id", sess.userID, "conn_id", connID)
}

// SinksForRoom returns the sinks of every connection currently in the
// room. The slice is a snapshot taken under the read lock; a concurrent
// connect or disconnect never exposes a partially updated membership set.
func (r *Registry) SinksForRoom(roomID domain.RoomID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(members))
	for connID := range members {
		if sess, exists := r.sessions[connID]; exists {
			sinks = append(sinks, sess.sink)
		}
	}
	return sinks
}

// ConnectionCount reports the number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Package tcp hosts the framed-message connection surface: one JSON
// object per line over a long-lived TCP connection. The first inbound
// frame must carry the identity token; no room is joined before it is
// verified.
package tcp

import (
	"encoding/json"

	"pulse-lab/domain"
	apperrors "pulse-lab/errors"
)

// Frame is the wire unit in both directions.
type Frame struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound frame kinds. The first frame must be one of the handshake
// kinds (auth, register, login); the rest are commands.
const (
	kindAuth        = "auth"
	kindRegister    = "register"
	kindLogin       = "login"
	kindCreateEvent = "create_event"
	kindAcknowledge = "acknowledge"
	kindAddFriend   = "add_friend"
	kindFriends     = "friends"
	kindLeaderboard = "leaderboard"
)

// Outbound frame kinds besides the notice kinds.
const (
	kindConnected = "connected"
	kindOK        = "ok"
	kindError     = "error"
)

type authPayload struct {
	Token string `json:"token"`
}

type registerPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type addFriendPayload struct {
	FriendID domain.UserID `json:"friendId"`
}

type createEventPayload struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	MediaRef    string `json:"mediaRef"`
}

type acknowledgePayload struct {
	EventID domain.EventID `json:"eventId"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newFrame(kind string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Kind: kind, Data: data}, nil
}

func errorCode(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return "validation"
	case apperrors.KindAuthorization:
		return "authorization"
	case apperrors.KindConflict:
		return "conflict"
	case apperrors.KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

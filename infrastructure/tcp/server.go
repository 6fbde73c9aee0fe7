package tcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"pulse-lab/auth"
	"pulse-lab/contract"
	"pulse-lab/domain"
	apperrors "pulse-lab/errors"
	"pulse-lab/services"
	"pulse-lab/sink"
)

const maxFrameBytes = 64 * 1024

// Server accepts peer connections and speaks the frame protocol. It runs
// as a supervised worker: Run blocks until the context is canceled.
type Server struct {
	log             *slog.Logger
	addr            string
	registry        contract.IRegistry
	accounts        services.IAuthService
	friends         services.IFriendService
	events          services.IEventService
	bufferSize      int
	deliveryTimeout time.Duration
}

func NewServer(log *slog.Logger, addr string, registry contract.IRegistry,
	accounts services.IAuthService, friends services.IFriendService,
	events services.IEventService, bufferSize int, deliveryTimeout time.Duration) *Server {
	return &Server{
		log:             log,
		addr:            addr,
		registry:        registry,
		accounts:        accounts,
		friends:         friends,
		events:          events,
		bufferSize:      bufferSize,
		deliveryTimeout: deliveryTimeout,
	}
}

func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.log.Info("Listening for peers", "address", s.addr)

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		go s.handle(ctx, conn)
	}
}

// handle owns one connection end to end: authentication, registry
// binding, the notice pump and the command loop.
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	connID := uuid.NewString()
	peer := &peerConn{conn: conn}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxFrameBytes)

	// Identity comes first, before any other frame is honored. The
	// handshake frame carries either an existing token or credentials
	// that resolve to one.
	token, err := s.handshake(scanner)
	if err != nil {
		_ = peer.writeError(err)
		return
	}

	notices := sink.NewStreamSink(s.log, s.bufferSize, s.deliveryTimeout)
	userID, err := s.registry.Connect(connID, token, notices)
	if err != nil {
		_ = peer.writeError(err)
		return
	}
	defer s.registry.Disconnect(connID)

	if err := peer.write(kindConnected, map[string]any{"userId": userID, "connId": connID}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go s.pumpNotices(ctx, done, peer, notices)

	for scanner.Scan() {
		var frame Frame
		if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
			_ = peer.writeError(fmt.Errorf("%w: malformed frame", apperrors.ErrInvalidRequest))
			continue
		}
		if err := s.dispatch(ctx, peer, userID, frame); err != nil {
			s.log.Warn("peer write failed, closing", "conn_id", connID, "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.log.Debug("peer read ended", "conn_id", connID, "error", err)
	}
}

// dispatch executes one inbound command. The returned error is a write
// failure only; command rejections are reported to the peer in-band.
func (s *Server) dispatch(ctx context.Context, peer *peerConn, userID domain.UserID, frame Frame) error {
	switch frame.Kind {
	case kindCreateEvent:
		var payload createEventPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return peer.writeError(fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err))
		}
		event, err := s.events.CreateEvent(ctx, userID, toCreateRequest(payload))
		if err != nil {
			return peer.writeError(err)
		}
		return peer.write(kindOK, map[string]any{"eventId": event.ID, "createdAt": event.CreatedAt})

	case kindAcknowledge:
		var payload acknowledgePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return peer.writeError(fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err))
		}
		ack, err := s.events.Acknowledge(ctx, payload.EventID, userID)
		if err != nil {
			return peer.writeError(err)
		}
		return peer.write(kindOK, map[string]any{"position": ack.Position, "pointsEarned": ack.Points})

	case kindLeaderboard:
		entries, err := s.events.Leaderboard(ctx, userID)
		if err != nil {
			return peer.writeError(err)
		}
		return peer.write(kindOK, map[string]any{"leaderboard": entries})

	case kindAddFriend:
		var payload addFriendPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return peer.writeError(fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err))
		}
		if err := s.friends.AddFriend(ctx, userID, payload.FriendID); err != nil {
			return peer.writeError(err)
		}
		return peer.write(kindOK, map[string]any{"friendId": payload.FriendID})

	case kindFriends:
		friends, err := s.friends.ListFriends(ctx, userID)
		if err != nil {
			return peer.writeError(err)
		}
		return peer.write(kindOK, map[string]any{"friends": friends})

	case kindAuth, kindRegister, kindLogin:
		// Identity is bound exactly once at connect time.
		return peer.writeError(fmt.Errorf("%w: already authenticated", apperrors.ErrInvalidRequest))

	default:
		return peer.writeError(fmt.Errorf("%w: unknown kind %q", apperrors.ErrInvalidRequest, frame.Kind))
	}
}

// pumpNotices drains the connection's sink onto the wire.
func (s *Server) pumpNotices(ctx context.Context, done <-chan struct{}, peer *peerConn, notices *sink.StreamSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case n := <-notices.Notices:
			if err := peer.write(n.Kind(), n); err != nil {
				return
			}
		}
	}
}

func (s *Server) handshake(scanner *bufio.Scanner) (string, error) {
	if !scanner.Scan() {
		return "", apperrors.ErrAuthRequired
	}
	var frame Frame
	if err := json.Unmarshal(scanner.Bytes(), &frame); err != nil {
		return "", apperrors.ErrAuthRequired
	}

	switch frame.Kind {
	case kindAuth:
		var payload authPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.Token == "" {
			return "", apperrors.ErrAuthRequired
		}
		return payload.Token, nil

	case kindRegister:
		var payload registerPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return "", apperrors.ErrAuthRequired
		}
		token, err := s.accounts.Register(payload.Name, payload.Email, payload.Password)
		return string(token), err

	case kindLogin:
		var payload loginPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return "", apperrors.ErrAuthRequired
		}
		token, err := s.accounts.Login(payload.Email, payload.Password)
		return string(token), err

	default:
		return "", apperrors.ErrAuthRequired
	}
}

func toCreateRequest(payload createEventPayload) auth.CreateEventRequest {
	return auth.CreateEventRequest{
		Title:       payload.Title,
		Description: payload.Description,
		MediaRef:    payload.MediaRef,
	}
}

// peerConn serializes writes: the command loop and the notice pump both
// write to the same connection.
type peerConn struct {
	mu   sync.Mutex
	conn net.Conn
}

func (p *peerConn) write(kind string, payload any) error {
	frame, err := newFrame(kind, payload)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return json.NewEncoder(p.conn).Encode(frame)
}

func (p *peerConn) writeError(err error) error {
	writeErr := p.write(kindError, errorPayload{Code: errorCode(err), Message: err.Error()})
	if writeErr != nil && !errors.Is(writeErr, net.ErrClosed) {
		return writeErr
	}
	return nil
}

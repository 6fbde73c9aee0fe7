package services

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"pulse-lab/auth"
	"pulse-lab/contract"
	"pulse-lab/domain"
	"pulse-lab/domain/notice"
	apperrors "pulse-lab/errors"
	"pulse-lab/infrastructure/storage"
	"pulse-lab/observability"
)

type IEventService interface {
	CreateEvent(ctx context.Context, creator domain.UserID, req auth.CreateEventRequest) (domain.Event, error)
	Acknowledge(ctx context.Context, event domain.EventID, user domain.UserID) (domain.Acknowledgment, error)
	Leaderboard(ctx context.Context, creator domain.UserID) ([]domain.LeaderboardEntry, error)
	EventLeaderboard(ctx context.Context, event domain.EventID) ([]domain.EventLeaderboardEntry, error)
}

// EventService coordinates event creation and acknowledgment. It is the
// only component with cross-cutting control flow: validation and every
// state mutation happen synchronously here, notification is handed to
// the fan-out strictly after the mutations committed.
type EventService struct {
	log      *slog.Logger
	users    storage.IUserRepository
	events   storage.IEventRepository
	ledger   storage.IAckLedger
	scores   storage.IScoreStore
	friends  contract.FriendGraph
	notifier contract.Notifier
	metrics  *observability.Metrics
}

func NewEventService(log *slog.Logger, users storage.IUserRepository,
	events storage.IEventRepository, ledger storage.IAckLedger,
	scores storage.IScoreStore, friends contract.FriendGraph,
	notifier contract.Notifier, metrics *observability.Metrics) *EventService {
	return &EventService{
		log:      log,
		users:    users,
		events:   events,
		ledger:   ledger,
		scores:   scores,
		friends:  friends,
		notifier: notifier,
		metrics:  metrics,
	}
}

// CreateEvent validates, persists and announces a new event. The
// announcement targets whoever is a friend of the creator at fan-out
// time; a delivery problem never affects the created event.
func (s *EventService) CreateEvent(ctx context.Context, creator domain.UserID,
	req auth.CreateEventRequest) (domain.Event, error) {
	if err := auth.ValidateCreateEvent(req); err != nil {
		return domain.Event{}, err
	}
	if _, err := s.users.GetUserByID(creator); err != nil {
		return domain.Event{}, err
	}

	event, err := s.events.CreateEvent(creator, req.Title, req.Description, req.MediaRef)
	if err != nil {
		return domain.Event{}, err
	}
	if s.metrics != nil {
		s.metrics.EventsCreated.Inc()
	}

	s.notifier.EventCreated(notice.EventCreated{
		EventID:   event.ID,
		Title:     event.Title,
		CreatorID: event.CreatorID,
		Timestamp: event.CreatedAt,
	})
	return event, nil
}

// Acknowledge runs one acknowledgment through its states: validate,
// ledger write, score aggregation, notification. A rejection at any
// validation step leaves no side effects. Once the ledger write has
// committed the acknowledgment is a success: later failures are logged
// and never unwind it.
func (s *EventService) Acknowledge(ctx context.Context, eventID domain.EventID,
	user domain.UserID) (domain.Acknowledgment, error) {
	event, err := s.events.GetEvent(eventID)
	if err != nil {
		return domain.Acknowledgment{}, err
	}
	if _, err := s.users.GetUserByID(user); err != nil {
		return domain.Acknowledgment{}, err
	}

	ack, err := s.ledger.Record(ctx, event.ID, user, event.CreatorID, s.friends.AreFriends)
	if err != nil {
		if s.metrics != nil {
			s.metrics.AcksRejected.WithLabelValues(rejectionReason(err)).Inc()
		}
		return domain.Acknowledgment{}, err
	}
	if s.metrics != nil {
		s.metrics.AcksProcessed.Inc()
	}

	if err := s.scores.AddPoints(ctx, event.CreatorID, user, event.ID, ack.Points); err != nil {
		// The ledger write committed; the caller still gets a success.
		s.log.Error("score aggregation failed",
			"event_id", event.ID, "user_id", user, "error", err)
		if s.metrics != nil {
			s.metrics.ScoringErrors.Inc()
		}
		return ack, nil
	}

	snapshot, err := s.scores.EventLeaderboard(ctx, event.CreatorID, event.ID)
	if err != nil {
		s.log.Error("event leaderboard snapshot failed",
			"event_id", event.ID, "error", err)
		return ack, nil
	}
	s.notifier.LeaderboardUpdated(notice.LeaderboardUpdated{
		EventID:     event.ID,
		CreatorID:   event.CreatorID,
		Leaderboard: snapshot,
	})
	return ack, nil
}

// Leaderboard returns the creator's lifetime leaderboard with friend
// names joined in.
func (s *EventService) Leaderboard(ctx context.Context, creator domain.UserID) ([]domain.LeaderboardEntry, error) {
	entries, err := s.scores.Leaderboard(ctx, creator)
	if err != nil {
		return nil, err
	}
	return lo.Map(entries, func(entry domain.LeaderboardEntry, _ int) domain.LeaderboardEntry {
		if user, err := s.users.GetUserByID(entry.FriendID); err == nil {
			entry.Name = user.Name
		}
		return entry
	}), nil
}

func (s *EventService) EventLeaderboard(ctx context.Context, eventID domain.EventID) ([]domain.EventLeaderboardEntry, error) {
	event, err := s.events.GetEvent(eventID)
	if err != nil {
		return nil, err
	}
	return s.scores.EventLeaderboard(ctx, event.CreatorID, event.ID)
}

func rejectionReason(err error) string {
	switch apperrors.KindOf(err) {
	case apperrors.KindAuthorization:
		return "authorization"
	case apperrors.KindConflict:
		return "conflict"
	case apperrors.KindNotFound:
		return "not_found"
	case apperrors.KindValidation:
		return "validation"
	default:
		return "internal"
	}
}

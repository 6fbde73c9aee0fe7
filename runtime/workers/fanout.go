package workers

import (
	"context"
	"log/slog"
	"time"

	"pulse-lab/contract"
	"pulse-lab/domain"
	"pulse-lab/domain/notice"
	"pulse-lab/observability"
)

// NotificationFanout pushes notices to the connections of the resolved
// recipient set.
//
// It provides best-effort delivery with no guarantees regarding
// durability or retries; absence of any connected recipient is an
// observability signal, never an error surfaced to the caller. Notices
// enqueued by one request are drained in FIFO order by a single loop, so
// an event_created always reaches the wire before a leaderboard_updated
// that was caused by a later acknowledgment of the same request flow.
type NotificationFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	friends     contract.FriendGraph
	metrics     *observability.Metrics
	notices     chan notice.Notice
	sinkTimeout time.Duration
}

func NewNotificationFanout(log *slog.Logger, registry contract.IRegistry,
	friends contract.FriendGraph, metrics *observability.Metrics,
	bufferSize int, sinkTimeout time.Duration) *NotificationFanout {
	return &NotificationFanout{
		log:         log,
		registry:    registry,
		friends:     friends,
		metrics:     metrics,
		notices:     make(chan notice.Notice, bufferSize),
		sinkTimeout: sinkTimeout,
	}
}

// EventCreated enqueues an event announcement for the creator's friends.
func (w *NotificationFanout) EventCreated(n notice.EventCreated) {
	w.enqueue(n)
}

// LeaderboardUpdated enqueues a leaderboard snapshot for the creator.
func (w *NotificationFanout) LeaderboardUpdated(n notice.LeaderboardUpdated) {
	w.enqueue(n)
}

func (w *NotificationFanout) enqueue(n notice.Notice) {
	select {
	case w.notices <- n:
	default:
		// A saturated queue sheds notices instead of stalling requests.
		w.log.Warn("notice queue full, dropping", "kind", n.Kind())
		if w.metrics != nil {
			w.metrics.NoticesDropped.Inc()
		}
	}
}

func (w *NotificationFanout) Run(ctx context.Context) error {
	for {
		select {
		case n := <-w.notices:
			w.Fanout(ctx, n)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fan-out")
			return nil
		}
	}
}

// Fanout resolves the recipient set of one notice and delivers it. The
// friend list is read at fan-out time: only current friends receive an
// event announcement.
func (w *NotificationFanout) Fanout(ctx context.Context, n notice.Notice) {
	switch evt := n.(type) {
	case notice.EventCreated:
		friends, err := w.friends.ListFriends(ctx, evt.CreatorID)
		if err != nil {
			w.log.Error("friend lookup failed, notice dropped",
				"creator_id", evt.CreatorID, "error", err)
			return
		}
		var sinks []contract.EventSink
		for _, friend := range friends {
			sinks = append(sinks, w.registry.SinksForRoom(domain.BroadcastRoom(friend.ID))...)
		}
		w.deliver(ctx, sinks, n)
	case notice.LeaderboardUpdated:
		sinks := w.registry.SinksForRoom(domain.PersonalRoom(evt.CreatorID))
		w.deliver(ctx, sinks, n)
	default:
		w.log.Warn("unknown notice kind", "kind", n.Kind())
	}
}

func (w *NotificationFanout) deliver(ctx context.Context, sinks []contract.EventSink, n notice.Notice) {
	if len(sinks) == 0 {
		w.log.Debug("no connected recipient", "kind", n.Kind())
		if w.metrics != nil {
			w.metrics.FanoutMisses.Inc()
		}
		return
	}

	for _, s := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		err := s.Consume(sinkCtx, n)
		cancel()
		if err != nil {
			w.log.Debug("delivery failed", "kind", n.Kind(), "error", err)
			if w.metrics != nil {
				w.metrics.NoticesDropped.Inc()
			}
			continue
		}
		if w.metrics != nil {
			w.metrics.NoticesDelivered.Inc()
		}
	}
}

// Package sink provides EventSink implementations.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pulse-lab/domain/notice"
)

// StreamSink bridges the fan-out path to one live connection. Notices are
// buffered in a channel drained by the connection's writer goroutine; a
// peer that stops reading only ever costs the fan-out one delivery
// timeout before the notice is dropped.
type StreamSink struct {
	log     *slog.Logger
	timeout time.Duration

	// Notices is drained by the owning connection.
	Notices chan notice.Notice
}

func NewStreamSink(log *slog.Logger, bufferSize int, timeout time.Duration) *StreamSink {
	return &StreamSink{
		log:     log,
		timeout: timeout,
		Notices: make(chan notice.Notice, bufferSize),
	}
}

// Consume enqueues the notice for the connection. It blocks at most the
// delivery timeout; a full buffer past that point means the notice is lost
// for this peer, which is acceptable for best-effort delivery.
func (s *StreamSink) Consume(ctx context.Context, n notice.Notice) error {
	select {
	case s.Notices <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.timeout):
		s.log.Debug("notice dropped, peer buffer full", "kind", n.Kind())
		return fmt.Errorf("delivery timed out after %s", s.timeout)
	}
}

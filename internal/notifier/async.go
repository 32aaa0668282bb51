package notifier

import (
	"context"
	"log/slog"

	"medledger/internal/platform/metrics"
)

// Async decouples change emission from delivery: services hand events to a
// buffered channel and a single worker drains it to the underlying notifier.
// Emission never blocks the originating mutation; a full buffer drops the
// event with a warning, and delivery failures are logged, not returned.
type Async struct {
	inner   Notifier
	logger  *slog.Logger
	metrics *metrics.Metrics
	inbox   chan ChangeEvent
}

func NewAsync(inner Notifier, buffer int, logger *slog.Logger, m *metrics.Metrics) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	return &Async{
		inner:   inner,
		logger:  logger,
		metrics: m,
		inbox:   make(chan ChangeEvent, buffer),
	}
}

// Publish queues the event and returns immediately. It always returns nil so
// no caller is ever tempted to roll back a write on notification failure.
func (a *Async) Publish(_ context.Context, event ChangeEvent) error {
	select {
	case a.inbox <- event:
	default:
		a.metrics.NotifierDropped.Inc()
		a.logger.Warn("notifier buffer full, dropping change event",
			"type", string(event.Type),
			"program_id", event.ProgramID.String(),
		)
	}
	return nil
}

// Run drains the inbox until ctx is cancelled. Run it under the process
// errgroup; it only returns ctx.Err.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-a.inbox:
			if err := a.inner.Publish(ctx, event); err != nil {
				a.metrics.NotifierPublishErrors.Inc()
				a.logger.Warn("change event publish failed",
					"type", string(event.Type),
					"program_id", event.ProgramID.String(),
					"error", err,
				)
			}
		}
	}
}

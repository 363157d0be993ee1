package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultEmitTimeout = 5 * time.Second

// Dispatcher publishes events in the background. Emit never blocks the
// caller and publish errors are logged and discarded.
type Dispatcher struct {
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewDispatcher builds a Dispatcher. A zero timeout uses five seconds.
func NewDispatcher(publisher Publisher, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultEmitTimeout
	}
	return &Dispatcher{publisher: publisher, logger: logger, timeout: timeout}
}

// Emit sends ev to userID on a detached goroutine.
func (d *Dispatcher) Emit(ctx context.Context, userID int64, ev Event) {
	if d == nil || d.publisher == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		emitCtx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()
		if err := d.publisher.Publish(emitCtx, userID, ev); err != nil {
			d.logger.Warn("notification not delivered",
				slog.String("event", ev.Name),
				slog.Int64("user_id", userID),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until in-flight emits finish.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultRecordTimeout = 5 * time.Second

// Recorder writes entries on detached goroutines. A slow or failing sink
// never delays or fails the caller; errors are logged and dropped.
type Recorder struct {
	sink    Sink
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewRecorder builds a Recorder. A zero timeout uses five seconds.
func NewRecorder(sink Sink, logger *slog.Logger, timeout time.Duration) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultRecordTimeout
	}
	return &Recorder{sink: sink, logger: logger, timeout: timeout, now: time.Now}
}

// Log records (actor, description) in the background.
func (r *Recorder) Log(ctx context.Context, actor, description string) {
	if r == nil || r.sink == nil {
		return
	}
	e := Entry{Actor: actor, Description: description, At: r.now()}
	base := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		recordCtx, cancel := context.WithTimeout(base, r.timeout)
		defer cancel()
		if err := r.sink.Record(recordCtx, e); err != nil {
			r.logger.Warn("activity not recorded",
				slog.String("actor", e.Actor),
				slog.String("description", e.Description),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until in-flight writes finish.
func (r *Recorder) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}

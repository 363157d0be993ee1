package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-social/internal/jobs"
)

const (
	// TaskRecord persists a single entry on the worker.
	TaskRecord = "activity:record"
	// TaskPrune applies the retention window.
	TaskPrune = "activity:prune"
	// Queue is where activity tasks are enqueued.
	Queue = "activity"
)

// Enqueuer submits tasks to the job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewRecordTask builds the task carrying e.
func NewRecordTask(e Entry) (*asynq.Task, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecord, body, asynq.Queue(Queue), asynq.MaxRetry(3)), nil
}

// NewPruneTask builds the retention task.
func NewPruneTask() *asynq.Task {
	return asynq.NewTask(TaskPrune, nil, asynq.Queue(Queue), asynq.MaxRetry(1))
}

// QueueSink hands entries to the worker instead of writing them inline.
type QueueSink struct {
	enqueuer Enqueuer
}

// NewQueueSink builds a QueueSink.
func NewQueueSink(enqueuer Enqueuer) *QueueSink {
	return &QueueSink{enqueuer: enqueuer}
}

// Record implements Sink.
func (q *QueueSink) Record(ctx context.Context, e Entry) error {
	task, err := NewRecordTask(e)
	if err != nil {
		return fmt.Errorf("encode activity task: %w", err)
	}
	if _, err := q.enqueuer.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueue activity: %w", err)
	}
	return nil
}

// NewRecordHandler consumes TaskRecord into sink.
func NewRecordHandler(sink Sink, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskRecord)
		var e Entry
		if err := json.Unmarshal(t.Payload(), &e); err != nil {
			return tracker.End(fmt.Errorf("decode activity: %v: %w", err, asynq.SkipRetry))
		}
		return tracker.End(sink.Record(ctx, e))
	}
}

// Pruner removes old entries.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// NewPruneHandler consumes TaskPrune, deleting entries older than retention.
func NewPruneHandler(store Pruner, retention time.Duration, metrics *jobmetrics.Metrics, now func() time.Time) asynq.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track(TaskPrune)
		if retention <= 0 {
			return tracker.End(nil)
		}
		n, err := store.Prune(ctx, now().Add(-retention))
		if err != nil {
			return tracker.End(err)
		}
		metrics.AddPruned(n)
		return tracker.End(nil)
	}
}

package activity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/odyssey-social/internal/jobs"
)

type memorySink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
	delay   time.Duration
}

func (m *memorySink) Record(ctx context.Context, e Entry) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memorySink) all() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

func TestRecorderWritesInBackground(t *testing.T) {
	sink := &memorySink{delay: 30 * time.Millisecond}
	rec := NewRecorder(sink, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	rec.Log(ctx, "alice", "followed bob")
	cancel()
	assert.Less(t, time.Since(start), 30*time.Millisecond)

	rec.Wait()
	entries := sink.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Actor)
	assert.Equal(t, "followed bob", entries[0].Description)
	assert.False(t, entries[0].At.IsZero())
}

func TestRecorderSwallowsSinkErrors(t *testing.T) {
	rec := NewRecorder(&memorySink{err: errors.New("db down")}, nil, time.Second)
	rec.Log(context.Background(), "alice", "logged in")
	rec.Wait()

	var nilRecorder *Recorder
	nilRecorder.Log(context.Background(), "x", "y")
	nilRecorder.Wait()
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func TestQueueSinkAndHandlerRoundTrip(t *testing.T) {
	enq := &fakeEnqueuer{}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, NewQueueSink(enq).Record(context.Background(), Entry{Actor: "bob", Description: "registered", At: at}))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskRecord, enq.tasks[0].Type())

	sink := &memorySink{}
	handler := NewRecordHandler(sink, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	require.NoError(t, handler(context.Background(), enq.tasks[0]))
	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].Actor)
	assert.Equal(t, "registered", got[0].Description)
	assert.True(t, at.Equal(got[0].At))
}

func TestQueueSinkEnqueueError(t *testing.T) {
	err := NewQueueSink(&fakeEnqueuer{err: errors.New("redis down")}).Record(context.Background(), Entry{Actor: "a"})
	assert.Error(t, err)
}

func TestRecordHandlerSkipsRetryOnBadPayload(t *testing.T) {
	handler := NewRecordHandler(&memorySink{}, nil)
	err := handler(context.Background(), asynq.NewTask(TaskRecord, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type stubExec struct {
	sql  string
	args []interface{}
	tag  pgconn.CommandTag
	err  error
}

func (s *stubExec) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	s.sql, s.args = sql, args
	return s.tag, s.err
}

func TestStoreRecordAndPrune(t *testing.T) {
	db := &stubExec{tag: pgconn.NewCommandTag("INSERT 0 1")}
	store := NewStore(db)
	require.NoError(t, store.Record(context.Background(), Entry{Actor: "alice", Description: "logged in"}))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(db.sql), "INSERT INTO activity_logs"))
	assert.Equal(t, "alice", db.args[0])

	db.tag = pgconn.NewCommandTag("DELETE 12")
	n, err := store.Prune(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	db.err = errors.New("timeout")
	assert.Error(t, store.Record(context.Background(), Entry{}))
}

type fixedPruner struct {
	before time.Time
	n      int64
}

func (p *fixedPruner) Prune(_ context.Context, before time.Time) (int64, error) {
	p.before = before
	return p.n, nil
}

func TestPruneHandlerUsesRetention(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p := &fixedPruner{n: 3}
	h := NewPruneHandler(p, 30*24*time.Hour, nil, func() time.Time { return now })
	require.NoError(t, h(context.Background(), NewPruneTask()))
	assert.Equal(t, now.Add(-30*24*time.Hour), p.before)

	disabled := &fixedPruner{}
	require.NoError(t, NewPruneHandler(disabled, 0, nil, nil)(context.Background(), NewPruneTask()))
	assert.True(t, disabled.before.IsZero())
}

package follows_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/odyssey-erp/odyssey-social/internal/notify"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
	"github.com/odyssey-erp/odyssey-social/internal/users"
	"github.com/odyssey-erp/odyssey-social/internal/users/userstest"
)

type edge struct{ follower, followee int64 }

// memoryEdges mirrors the Postgres table: a unique ordered pair, no self
// edges, and both endpoints must exist.
type memoryEdges struct {
	mu    sync.Mutex
	users *userstest.Memory
	edges map[edge]struct{}

	// staleExists makes Exists always answer false, as a read that raced
	// with a concurrent insert would.
	staleExists bool
	existsErr   error
}

func newMemoryEdges(u *userstest.Memory) *memoryEdges {
	return &memoryEdges{users: u, edges: make(map[edge]struct{})}
}

func (m *memoryEdges) Exists(_ context.Context, followerID, followeeID int64) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	if m.staleExists {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.edges[edge{followerID, followeeID}]
	return ok, nil
}

func (m *memoryEdges) Create(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return shared.ErrSelfReference
	}
	for _, id := range []int64{followerID, followeeID} {
		if _, err := m.users.FindByID(ctx, id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := edge{followerID, followeeID}
	if _, ok := m.edges[e]; ok {
		return fmt.Errorf("already following: %w", shared.ErrConflict)
	}
	m.edges[e] = struct{}{}
	return nil
}

func (m *memoryEdges) Delete(_ context.Context, followerID, followeeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := edge{followerID, followeeID}
	if _, ok := m.edges[e]; !ok {
		return fmt.Errorf("not following: %w", shared.ErrConflict)
	}
	delete(m.edges, e)
	return nil
}

func (m *memoryEdges) ListFollowers(ctx context.Context, userID int64) ([]users.PublicUser, error) {
	return m.collect(ctx, func(e edge) (int64, bool) { return e.follower, e.followee == userID })
}

func (m *memoryEdges) ListFollowing(ctx context.Context, userID int64) ([]users.PublicUser, error) {
	return m.collect(ctx, func(e edge) (int64, bool) { return e.followee, e.follower == userID })
}

func (m *memoryEdges) collect(ctx context.Context, pick func(edge) (int64, bool)) ([]users.PublicUser, error) {
	m.mu.Lock()
	var ids []int64
	for e := range m.edges {
		if id, ok := pick(e); ok {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]users.PublicUser, 0, len(ids))
	for _, id := range ids {
		u, err := m.users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, u.Public())
	}
	return out, nil
}

func (m *memoryEdges) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edges)
}

// countingLookup records how many user lookups a call made.
type countingLookup struct {
	inner *userstest.Memory
	calls atomic.Int32
}

func (c *countingLookup) FindByID(ctx context.Context, id int64) (*users.User, error) {
	c.calls.Add(1)
	return c.inner.FindByID(ctx, id)
}

type sentEvent struct {
	userID int64
	event  notify.Event
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (r *recordingNotifier) Emit(_ context.Context, userID int64, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentEvent{userID: userID, event: ev})
}

func (r *recordingNotifier) all() []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentEvent(nil), r.sent...)
}

type activityLog struct {
	mu      sync.Mutex
	entries []string
}

func (a *activityLog) Log(_ context.Context, actor, description string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, actor+": "+description)
}

func (a *activityLog) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.entries...)
}

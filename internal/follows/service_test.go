package follows_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-social/internal/follows"
	"github.com/odyssey-erp/odyssey-social/internal/notify"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
	"github.com/odyssey-erp/odyssey-social/internal/users"
	"github.com/odyssey-erp/odyssey-social/internal/users/userstest"
)

type harness struct {
	svc      *follows.Service
	store    *userstest.Memory
	lookup   *countingLookup
	edges    *memoryEdges
	notifier *recordingNotifier
	activity *activityLog
	metrics  *follows.Metrics
	alice    users.User
	bob      users.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := userstest.New()
	h := &harness{
		store:    store,
		lookup:   &countingLookup{inner: store},
		edges:    newMemoryEdges(store),
		notifier: &recordingNotifier{},
		activity: &activityLog{},
		metrics:  follows.NewMetrics(prometheus.NewRegistry()),
	}
	h.alice = store.Seed(users.User{Username: "alice", Email: "alice@example.com", Name: "Alice", PasswordHash: "secret-hash", IsAdmin: true})
	h.bob = store.Seed(users.User{Username: "bob", Email: "bob@example.com", Name: "Bob"})
	h.svc = follows.NewService(h.lookup, h.edges, h.notifier, h.activity, h.metrics, nil)
	return h
}

func publicIDs(list []users.PublicUser) []int64 {
	ids := make([]int64, 0, len(list))
	for _, u := range list {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestFollowCreatesEdge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Follow(ctx, h.alice.ID, h.bob.ID))

	following, err := h.svc.IsFollowing(ctx, h.alice.ID, h.bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	reverse, err := h.svc.IsFollowing(ctx, h.bob.ID, h.alice.ID)
	require.NoError(t, err)
	assert.False(t, reverse)

	followers, err := h.svc.ListFollowers(ctx, h.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{h.alice.ID}, publicIDs(followers))

	followingList, err := h.svc.ListFollowing(ctx, h.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{h.bob.ID}, publicIDs(followingList))

	assert.Equal(t, []string{"alice: followed bob"}, h.activity.all())
}

func TestFollowNotifiesTarget(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.svc.Follow(context.Background(), h.alice.ID, h.bob.ID))

	sent := h.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, h.bob.ID, sent[0].userID)
	assert.Equal(t, notify.EventNewFollower, sent[0].event.Name)

	var payload notify.NewFollower
	require.NoError(t, json.Unmarshal(sent[0].event.Payload, &payload))
	assert.Equal(t, notify.NewFollower{FollowerID: h.alice.ID, FollowerUsername: "alice"}, payload)
}

func TestSelfFollowRejectedWithoutLookups(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, id := range []int64{h.alice.ID, 999} {
		assert.ErrorIs(t, h.svc.Follow(ctx, id, id), shared.ErrSelfReference)
		assert.ErrorIs(t, h.svc.Unfollow(ctx, id, id), shared.ErrSelfReference)
	}
	assert.Zero(t, h.lookup.calls.Load())
	assert.Zero(t, h.edges.count())
	assert.Empty(t, h.notifier.all())
}

func TestFollowTwiceConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.svc.Follow(ctx, h.alice.ID, h.bob.ID))
	err := h.svc.Follow(ctx, h.alice.ID, h.bob.ID)
	assert.ErrorIs(t, err, shared.ErrConflict)

	assert.Equal(t, 1, h.edges.count())
	assert.Len(t, h.notifier.all(), 1)
	assert.Equal(t, []string{"alice: followed bob"}, h.activity.all())
}

func TestUnfollowWithoutEdgeConflicts(t *testing.T) {
	h := newHarness(t)
	err := h.svc.Unfollow(context.Background(), h.alice.ID, h.bob.ID)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Zero(t, h.edges.count())
	assert.Empty(t, h.activity.all())
}

func TestFollowUnfollowRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	before, err := h.svc.ListFollowers(ctx, h.bob.ID)
	require.NoError(t, err)

	require.NoError(t, h.svc.Follow(ctx, h.alice.ID, h.bob.ID))
	require.NoError(t, h.svc.Unfollow(ctx, h.alice.ID, h.bob.ID))

	following, err := h.svc.IsFollowing(ctx, h.alice.ID, h.bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	after, err := h.svc.ListFollowers(ctx, h.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NotContains(t, publicIDs(after), h.alice.ID)

	assert.Equal(t, []string{"alice: followed bob", "alice: unfollowed bob"}, h.activity.all())
	assert.Len(t, h.notifier.all(), 1, "unfollow does not notify")
}

func TestConcurrentDuplicateFollow(t *testing.T) {
	h := newHarness(t)
	h.edges.staleExists = true
	ctx := context.Background()

	const attempts = 8
	var (
		start = make(chan struct{})
		wg    sync.WaitGroup
		errs  = make([]error, attempts)
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = h.svc.Follow(ctx, h.alice.ID, h.bob.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, shared.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, 1, h.edges.count())
	assert.Len(t, h.notifier.all(), 1)
}

func TestFollowMissingUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.svc.Follow(ctx, h.alice.ID, 404), shared.ErrNotFound)
	assert.ErrorIs(t, h.svc.Follow(ctx, 404, h.bob.ID), shared.ErrNotFound)
	assert.ErrorIs(t, h.svc.Unfollow(ctx, h.alice.ID, 404), shared.ErrNotFound)
	assert.Zero(t, h.edges.count())
	assert.Empty(t, h.notifier.all())

	_, err := h.svc.ListFollowers(ctx, 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = h.svc.ListFollowing(ctx, 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListsAreEmptyNotNil(t *testing.T) {
	h := newHarness(t)
	list, err := h.svc.ListFollowers(context.Background(), h.alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestStoreFailureIsUnexpected(t *testing.T) {
	h := newHarness(t)
	h.edges.existsErr = errors.New("connection refused")

	err := h.svc.Follow(context.Background(), h.alice.ID, h.bob.ID)
	require.Error(t, err)
	for _, kind := range []error{shared.ErrNotFound, shared.ErrConflict, shared.ErrSelfReference} {
		assert.NotErrorIs(t, err, kind)
	}
	assert.Empty(t, h.notifier.all())
}

func TestFollowSucceedsWhenNotificationFails(t *testing.T) {
	store := userstest.New()
	alice := store.Seed(users.User{Username: "alice", Email: "alice@example.com"})
	bob := store.Seed(users.User{Username: "bob", Email: "bob@example.com"})
	edges := newMemoryEdges(store)

	failing := notify.NewDispatcher(failingPublisher{}, nil, 0)
	svc := follows.NewService(store, edges, failing, &activityLog{}, nil, nil)

	require.NoError(t, svc.Follow(context.Background(), alice.ID, bob.ID))
	failing.Wait()
	assert.Equal(t, 1, edges.count())
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, int64, notify.Event) error {
	return errors.New("no live session transport")
}

func TestFollowMetrics(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	m := follows.NewMetrics(reg)
	svc := follows.NewService(h.store, newMemoryEdges(h.store), nil, &activityLog{}, m, nil)
	require.NoError(t, svc.Follow(ctx, h.bob.ID, h.alice.ID))
	assert.ErrorIs(t, svc.Follow(ctx, h.bob.ID, h.bob.ID), shared.ErrSelfReference)

	count, err := testutil.GatherAndCount(reg, "odyssey_follow_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

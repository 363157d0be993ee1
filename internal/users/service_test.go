package users_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-social/internal/shared"
	"github.com/odyssey-erp/odyssey-social/internal/users"
	"github.com/odyssey-erp/odyssey-social/internal/users/userstest"
)

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func (plainHasher) Compare(hash, p string) error {
	if hash == "" || hash != "hashed:"+p {
		return shared.ErrInvalidCredentials
	}
	return nil
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

type fixedRelations struct {
	followers, following []users.PublicUser
}

func (f fixedRelations) ListFollowers(context.Context, int64) ([]users.PublicUser, error) {
	return f.followers, nil
}

func (f fixedRelations) ListFollowing(context.Context, int64) ([]users.PublicUser, error) {
	return f.following, nil
}

type stubSigner struct{ key, contentType string }

func (s *stubSigner) PresignUpload(_ context.Context, key, contentType string) (string, time.Time, error) {
	s.key, s.contentType = key, contentType
	return "https://bucket.example/" + key + "?sig=1", time.Unix(1700000000, 0), nil
}

func setup(t *testing.T) (*users.Service, *userstest.Memory, *activityLog, users.User) {
	t.Helper()
	repo := userstest.New()
	alice := repo.Seed(users.User{Username: "alice", Email: "alice@example.com", Name: "Alice", PasswordHash: "hashed:wonderland", IsActive: true})
	repo.Seed(users.User{Username: "bob", Email: "bob@example.com", Name: "Bob", PasswordHash: "hashed:builder", IsActive: true})
	act := &activityLog{}
	return users.NewService(repo, plainHasher{}, act, nil, nil), repo, act, alice
}

func TestUpdateRejectsPrivilegedFlags(t *testing.T) {
	svc, repo, _, alice := setup(t)
	ctx := context.Background()

	for _, raw := range []string{`true`, `"true"`, `1`, `"yes"`} {
		_, err := svc.Update(ctx, alice.ID, users.UpdateRequest{Name: "Mallory", IsAdmin: json.RawMessage(raw)})
		assert.ErrorIs(t, err, shared.ErrForbidden, raw)

		_, err = svc.Update(ctx, alice.ID, users.UpdateRequest{IsActive: json.RawMessage(raw)})
		assert.ErrorIs(t, err, shared.ErrForbidden, raw)
	}

	stored, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.Name)
	assert.False(t, stored.IsAdmin)
}

func TestUpdateIgnoresFalseFlags(t *testing.T) {
	svc, _, _, alice := setup(t)
	u, err := svc.Update(context.Background(), alice.ID, users.UpdateRequest{Name: "Alice L.", IsAdmin: json.RawMessage(`false`), IsActive: json.RawMessage(`"0"`)})
	require.NoError(t, err)
	assert.Equal(t, "Alice L.", u.Name)
}

func TestUpdateRehashesPasswordAndSetsBirthday(t *testing.T) {
	svc, repo, act, alice := setup(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, alice.ID, users.UpdateRequest{Password: "looking-glass", Birthday: "1990-04-02"})
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "hashed:looking-glass", stored.PasswordHash)
	require.NotNil(t, stored.Birthday)
	assert.Equal(t, "1990-04-02", stored.Birthday.Format("2006-01-02"))
	assert.Contains(t, act.entries, "alice: updated profile")
}

func TestUpdateConflictAndValidation(t *testing.T) {
	svc, _, _, alice := setup(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, alice.ID, users.UpdateRequest{Username: "bob"})
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = svc.Update(ctx, alice.ID, users.UpdateRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Update(ctx, alice.ID, users.UpdateRequest{Birthday: "02/04/1990"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown username", func(t *testing.T) {
		svc, _, _, alice := setup(t)
		err := svc.Delete(ctx, alice.ID, users.DeleteRequest{Username: "nobody", Password: "x"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("someone else's account", func(t *testing.T) {
		svc, repo, _, alice := setup(t)
		err := svc.Delete(ctx, alice.ID, users.DeleteRequest{Username: "bob", Password: "builder"})
		assert.ErrorIs(t, err, shared.ErrForbidden)
		_, err = repo.FindByUsername(ctx, "bob")
		assert.NoError(t, err)
	})

	t.Run("password required", func(t *testing.T) {
		svc, _, _, alice := setup(t)
		err := svc.Delete(ctx, alice.ID, users.DeleteRequest{Username: "alice"})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _, _, alice := setup(t)
		err := svc.Delete(ctx, alice.ID, users.DeleteRequest{Username: "alice", Password: "nope"})
		assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	})

	t.Run("verified", func(t *testing.T) {
		svc, repo, act, alice := setup(t)
		require.NoError(t, svc.Delete(ctx, alice.ID, users.DeleteRequest{Username: "alice", Password: "wonderland"}))
		_, err := repo.FindByID(ctx, alice.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, []string{"alice: deleted account"}, act.entries)
	})
}

func TestProfileIncludesRelations(t *testing.T) {
	repo := userstest.New()
	alice := repo.Seed(users.User{Username: "alice", Email: "alice@example.com"})
	bob := repo.Seed(users.User{Username: "bob", Email: "bob@example.com"})
	rel := fixedRelations{followers: []users.PublicUser{bob.Public()}, following: []users.PublicUser{}}
	svc := users.NewService(repo, plainHasher{}, &activityLog{}, rel, nil)

	p, err := svc.Profile(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, 1, p.FollowerCount)
	assert.Equal(t, 0, p.FollowingCount)
	assert.Equal(t, "bob", p.Followers[0].Username)

	_, err = svc.Profile(context.Background(), 999)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

type oneSidedRelations struct {
	followers []users.PublicUser
	calls     []string
}

func (o *oneSidedRelations) ListFollowers(context.Context, int64) ([]users.PublicUser, error) {
	o.calls = append(o.calls, "followers")
	return o.followers, nil
}

func (o *oneSidedRelations) ListFollowing(context.Context, int64) ([]users.PublicUser, error) {
	o.calls = append(o.calls, "following")
	return nil, errors.New("following unavailable")
}

func TestRelationListsReadOneSide(t *testing.T) {
	ctx := context.Background()
	repo := userstest.New()
	alice := repo.Seed(users.User{Username: "alice", Email: "alice@example.com"})
	bob := repo.Seed(users.User{Username: "bob", Email: "bob@example.com"})
	rel := &oneSidedRelations{followers: []users.PublicUser{bob.Public()}}
	svc := users.NewService(repo, plainHasher{}, &activityLog{}, rel, nil)

	followers, err := svc.Followers(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "bob", followers[0].Username)
	assert.Equal(t, []string{"followers"}, rel.calls)

	_, err = svc.Following(ctx, alice.ID)
	assert.ErrorContains(t, err, "following unavailable")

	rel.calls = nil
	_, err = svc.Followers(ctx, 999)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, rel.calls)

	empty, err := users.NewService(repo, plainHasher{}, &activityLog{}, nil, nil).Following(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestAvatarUploadURL(t *testing.T) {
	repo := userstest.New()
	alice := repo.Seed(users.User{Username: "alice", Email: "alice@example.com"})
	ctx := context.Background()

	unconfigured := users.NewService(repo, plainHasher{}, &activityLog{}, nil, nil)
	_, err := unconfigured.AvatarUploadURL(ctx, alice.ID, users.AvatarRequest{ContentType: "image/png"})
	assert.ErrorIs(t, err, shared.ErrUnavailable)

	signer := &stubSigner{}
	svc := users.NewService(repo, plainHasher{}, &activityLog{}, nil, signer)

	_, err = svc.AvatarUploadURL(ctx, alice.ID, users.AvatarRequest{ContentType: "application/pdf"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	upload, err := svc.AvatarUploadURL(ctx, alice.ID, users.AvatarRequest{ContentType: "image/png"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(upload.Key, "avatars/1/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".png"))
	assert.Equal(t, upload.Key, signer.key)
	assert.Equal(t, "image/png", signer.contentType)
	assert.Contains(t, upload.UploadURL, upload.Key)
}

func TestListNeverReturnsNil(t *testing.T) {
	svc := users.NewService(userstest.New(), plainHasher{}, &activityLog{}, nil, nil)
	out, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, out)

	failing := userstest.New()
	failing.FailWith = errors.New("db down")
	svc = users.NewService(failing, plainHasher{}, &activityLog{}, nil, nil)
	_, err = svc.List(context.Background())
	assert.Error(t, err)
}

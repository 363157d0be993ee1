package follows

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-social/internal/notify"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
	"github.com/odyssey-erp/odyssey-social/internal/users"
)

// Service is the relationship manager. Acting and target user ids are
// always passed explicitly.
type Service struct {
	users    UserLookup
	repo     Repository
	notifier Notifier
	activity ActivityLogger
	metrics  *Metrics
	logger   *slog.Logger
}

// NewService builds Service instance. metrics may be nil.
func NewService(lookup UserLookup, repo Repository, notifier Notifier, activity ActivityLogger, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: lookup, repo: repo, notifier: notifier, activity: activity, metrics: metrics, logger: logger}
}

// Follow creates the edge actingUserID -> targetUserID, then notifies the
// target and records the activity. Side effects never affect the result.
func (s *Service) Follow(ctx context.Context, actingUserID, targetUserID int64) (err error) {
	defer func() { s.metrics.observe("follow", err) }()

	actor, target, err := s.resolvePair(ctx, actingUserID, targetUserID)
	if err != nil {
		return err
	}
	exists, err := s.repo.Exists(ctx, actor.ID, target.ID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("already following %s: %w", target.Username, shared.ErrConflict)
	}
	// The primary key decides concurrent duplicates; the check above only
	// short-circuits the common case.
	if err := s.repo.Create(ctx, actor.ID, target.ID); err != nil {
		return err
	}

	s.notifyNewFollower(ctx, actor, target)
	s.activity.Log(ctx, actor.Username, "followed "+target.Username)
	return nil
}

// Unfollow removes the edge actingUserID -> targetUserID.
func (s *Service) Unfollow(ctx context.Context, actingUserID, targetUserID int64) (err error) {
	defer func() { s.metrics.observe("unfollow", err) }()

	actor, target, err := s.resolvePair(ctx, actingUserID, targetUserID)
	if err != nil {
		return err
	}
	exists, err := s.repo.Exists(ctx, actor.ID, target.ID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("not following %s: %w", target.Username, shared.ErrConflict)
	}
	if err := s.repo.Delete(ctx, actor.ID, target.ID); err != nil {
		return err
	}

	s.activity.Log(ctx, actor.Username, "unfollowed "+target.Username)
	return nil
}

// IsFollowing reports whether followerID follows followeeID.
func (s *Service) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	if _, err := s.users.FindByID(ctx, followeeID); err != nil {
		return false, fmt.Errorf("user %d: %w", followeeID, err)
	}
	return s.repo.Exists(ctx, followerID, followeeID)
}

// ListFollowers returns the users following userID.
func (s *Service) ListFollowers(ctx context.Context, userID int64) ([]users.PublicUser, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	return nonNil(s.repo.ListFollowers(ctx, userID))
}

// ListFollowing returns the users userID follows.
func (s *Service) ListFollowing(ctx context.Context, userID int64) ([]users.PublicUser, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	return nonNil(s.repo.ListFollowing(ctx, userID))
}

// resolvePair applies the shared preconditions of follow and unfollow:
// no self edges, and both endpoints must exist.
func (s *Service) resolvePair(ctx context.Context, actingUserID, targetUserID int64) (*users.User, *users.User, error) {
	if actingUserID == targetUserID {
		return nil, nil, shared.ErrSelfReference
	}
	target, err := s.users.FindByID(ctx, targetUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("target user %d: %w", targetUserID, err)
	}
	actor, err := s.users.FindByID(ctx, actingUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("acting user %d: %w", actingUserID, err)
	}
	return actor, target, nil
}

func (s *Service) notifyNewFollower(ctx context.Context, actor, target *users.User) {
	if s.notifier == nil {
		return
	}
	ev, err := notify.NewEvent(notify.EventNewFollower, notify.NewFollower{
		FollowerID:       actor.ID,
		FollowerUsername: actor.Username,
	})
	if err != nil {
		s.logger.Warn("build follow notification", slog.Any("error", err))
		return
	}
	s.notifier.Emit(ctx, target.ID, ev)
}

func nonNil(list []users.PublicUser, err error) ([]users.PublicUser, error) {
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []users.PublicUser{}
	}
	return list, nil
}

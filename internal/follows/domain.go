// Package follows manages the directed follow relation between users.
package follows

import (
	"context"

	"github.com/odyssey-erp/odyssey-social/internal/notify"
	"github.com/odyssey-erp/odyssey-social/internal/users"
)

// UserLookup resolves users by id.
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (*users.User, error)
}

// Notifier emits best-effort events to a user's live sessions.
type Notifier interface {
	Emit(ctx context.Context, userID int64, ev notify.Event)
}

// ActivityLogger records best-effort audit lines.
type ActivityLogger interface {
	Log(ctx context.Context, actor, description string)
}

// Repository stores follow edges. Every method names the direction
// explicitly: followerID follows followeeID.
type Repository interface {
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	Create(ctx context.Context, followerID, followeeID int64) error
	Delete(ctx context.Context, followerID, followeeID int64) error
	ListFollowers(ctx context.Context, userID int64) ([]users.PublicUser, error)
	ListFollowing(ctx context.Context, userID int64) ([]users.PublicUser, error)
}

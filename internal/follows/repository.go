package follows

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/odyssey-social/internal/platform/db"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
	"github.com/odyssey-erp/odyssey-social/internal/users"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository builds the Postgres edge store. Uniqueness of an ordered
// pair is enforced by the follows primary key.
func NewRepository(conn dbtx) Repository {
	return &repository{db: conn}
}

func (r *repository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`,
		followerID, followeeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return exists, nil
}

func (r *repository) Create(ctx context.Context, followerID, followeeID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)`,
		followerID, followeeID)
	if err == nil {
		return nil
	}
	switch db.ErrorCode(err) {
	case db.CodeUniqueViolation:
		return fmt.Errorf("already following: %w", shared.ErrConflict)
	case db.CodeForeignKeyViolation:
		return fmt.Errorf("follow endpoint missing: %w", shared.ErrNotFound)
	case db.CodeCheckViolation:
		return shared.ErrSelfReference
	}
	return fmt.Errorf("create follow: %w", err)
}

func (r *repository) Delete(ctx context.Context, followerID, followeeID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("not following: %w", shared.ErrConflict)
	}
	return nil
}

func (r *repository) ListFollowers(ctx context.Context, userID int64) ([]users.PublicUser, error) {
	return r.list(ctx, `
		SELECT u.id, u.username, u.image, u.email, u.name
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1
		ORDER BY u.id`, userID)
}

func (r *repository) ListFollowing(ctx context.Context, userID int64) ([]users.PublicUser, error) {
	return r.list(ctx, `
		SELECT u.id, u.username, u.image, u.email, u.name
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1
		ORDER BY u.id`, userID)
}

func (r *repository) list(ctx context.Context, query string, userID int64) ([]users.PublicUser, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[users.PublicUser])
	if err != nil {
		return nil, fmt.Errorf("scan follows: %w", err)
	}
	return out, nil
}

package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type execer interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
}

// Store writes entries to the activity_logs table.
type Store struct {
	db execer
}

// NewStore builds a Store over a pool or transaction.
func NewStore(db execer) *Store {
	return &Store{db: db}
}

// Record implements Sink.
func (s *Store) Record(ctx context.Context, e Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO activity_logs (actor, description, created_at) VALUES ($1, $2, $3)`,
		e.Actor, e.Description, at.UTC())
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Prune deletes entries older than before and reports how many went.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM activity_logs WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	return tag.RowsAffected(), nil
}

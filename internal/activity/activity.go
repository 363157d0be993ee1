// Package activity records append-only audit lines. Writes are best effort:
// callers never see a failure.
package activity

import (
	"context"
	"time"
)

// Entry is one audit line.
type Entry struct {
	Actor       string    `json:"actor"`
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// Sink persists entries.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Entry) error

// Record implements Sink.
func (f SinkFunc) Record(ctx context.Context, e Entry) error { return f(ctx, e) }

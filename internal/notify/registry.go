package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrDropped reports that at least one live session could not take an event.
var ErrDropped = errors.New("notification dropped")

// Session is one live delivery channel. Send must not block.
type Session interface {
	Send(Event) bool
}

// Registry maps user ids to their live sessions. A user may hold several
// sessions at once; users without any are simply absent.
type Registry struct {
	mu       sync.RWMutex
	nextID   uint64
	sessions map[int64]map[uint64]Session
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]map[uint64]Session)}
}

// Register adds s under userID and returns the function that removes it.
func (r *Registry) Register(userID int64, s Session) (release func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	byID := r.sessions[userID]
	if byID == nil {
		byID = make(map[uint64]Session)
		r.sessions[userID] = byID
	}
	byID[id] = s
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.sessions[userID], id)
			if len(r.sessions[userID]) == 0 {
				delete(r.sessions, userID)
			}
		})
	}
}

// Lookup returns the live sessions of userID, or nil when there are none.
func (r *Registry) Lookup(userID int64) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byID := r.sessions[userID]
	if len(byID) == 0 {
		return nil
	}
	out := make([]Session, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	return out
}

// Connected reports the number of users with at least one live session.
func (r *Registry) Connected() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Deliver hands ev to every live session of userID. Absent users are a no-op.
func (r *Registry) Deliver(ctx context.Context, userID int64, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dropped := 0
	for _, s := range r.Lookup(userID) {
		if !s.Send(ev) {
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("user %d: %d session(s): %w", userID, dropped, ErrDropped)
	}
	return nil
}

// Publish makes Registry usable as the single-instance Publisher.
func (r *Registry) Publish(ctx context.Context, userID int64, ev Event) error {
	return r.Deliver(ctx, userID, ev)
}

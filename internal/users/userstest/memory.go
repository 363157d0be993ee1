// Package userstest provides an in-memory users.Repository for tests.
package userstest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-social/internal/shared"
	"github.com/odyssey-erp/odyssey-social/internal/users"
)

// Memory is a concurrency-safe users.Repository with the same uniqueness
// and not-found semantics as the Postgres one.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]users.User
	// FailWith, when set, is returned from every call.
	FailWith error
}

// New returns an empty store.
func New() *Memory {
	return &Memory{nextID: 1, rows: make(map[int64]users.User)}
}

var _ users.Repository = (*Memory)(nil)

// Seed inserts u as-is, assigning an id when u.ID is zero.
func (m *Memory) Seed(u users.User) users.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.nextID
	}
	if u.ID >= m.nextID {
		m.nextID = u.ID + 1
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
		u.UpdatedAt = u.CreatedAt
	}
	m.rows[u.ID] = u
	return u
}

func (m *Memory) FindByID(_ context.Context, id int64) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	u, ok := m.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) FindByUsername(_ context.Context, username string) (*users.User, error) {
	return m.findBy(func(u users.User) bool { return u.Username == username })
}

func (m *Memory) FindByEmail(_ context.Context, email string) (*users.User, error) {
	return m.findBy(func(u users.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *Memory) findBy(match func(users.User) bool) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	for _, u := range m.rows {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *Memory) List(context.Context) ([]users.PublicUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	out := make([]users.PublicUser, 0, len(m.rows))
	for _, u := range m.rows {
		out = append(out, u.Public())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Create(_ context.Context, p users.CreateParams) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if m.takenLocked(0, p.Username, p.Email) {
		return nil, fmt.Errorf("username or email already taken: %w", shared.ErrConflict)
	}
	now := time.Now()
	u := users.User{
		ID:           m.nextID,
		Username:     p.Username,
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Image:        p.Image,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.nextID++
	m.rows[u.ID] = u
	return &u, nil
}

func (m *Memory) Update(_ context.Context, id int64, p users.UpdateParams) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	u, ok := m.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	username, email := u.Username, u.Email
	if p.Username != nil {
		username = *p.Username
	}
	if p.Email != nil {
		email = *p.Email
	}
	if m.takenLocked(id, username, email) {
		return nil, fmt.Errorf("username or email already taken: %w", shared.ErrConflict)
	}
	u.Username, u.Email = username, email
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Image != nil {
		u.Image = *p.Image
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Birthday != nil {
		b := *p.Birthday
		u.Birthday = &b
	}
	u.UpdatedAt = time.Now()
	m.rows[id] = u
	return &u, nil
}

func (m *Memory) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	if _, ok := m.rows[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *Memory) takenLocked(self int64, username, email string) bool {
	for id, u := range m.rows {
		if id == self {
			continue
		}
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

package oauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/odyssey-social/internal/shared"
	"github.com/odyssey-erp/odyssey-social/internal/users"
)

const (
	maxUsernameLen      = 32
	maxUsernameAttempts = 20
)

// UserStore is the slice of the user directory the bridge needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	Create(ctx context.Context, params users.CreateParams) (*users.User, error)
}

// ActivityLogger records best-effort audit lines.
type ActivityLogger interface {
	Log(ctx context.Context, actor, description string)
}

// Bridge maps provider identities onto local accounts by email.
type Bridge struct {
	users    UserStore
	activity ActivityLogger
	group    singleflight.Group
}

// NewBridge builds a Bridge.
func NewBridge(store UserStore, activity ActivityLogger) *Bridge {
	return &Bridge{users: store, activity: activity}
}

// Resolve returns the account owning p.Email, creating a password-less one
// on first login. Only provider-verified emails are linked. Concurrent
// callbacks for the same email share one lookup, which runs detached from
// the first caller's cancellation.
func (b *Bridge) Resolve(ctx context.Context, p Profile) (*users.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: provider returned no email", shared.ErrValidation)
	}
	if !p.EmailVerified {
		return nil, fmt.Errorf("%s email %q is not verified: %w", p.Provider, email, shared.ErrForbidden)
	}
	detached := context.WithoutCancel(ctx)
	v, err, _ := b.group.Do(email, func() (interface{}, error) {
		return b.findOrCreate(detached, email, p)
	})
	if err != nil {
		return nil, err
	}
	u := *v.(*users.User)
	return &u, nil
}

func (b *Bridge) findOrCreate(ctx context.Context, email string, p Profile) (*users.User, error) {
	u, err := b.users.FindByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	local, _, _ := strings.Cut(email, "@")
	base := Handle(p.Name)
	if base == "" {
		base = Handle(local)
	}
	if base == "" {
		base = "user"
	}

	for attempt := 1; attempt <= maxUsernameAttempts; attempt++ {
		candidate := withSuffix(base, attempt)
		u, err := b.users.Create(ctx, users.CreateParams{
			Username: candidate,
			Name:     strings.TrimSpace(p.Name),
			Email:    email,
			Image:    p.Picture,
		})
		if err == nil {
			b.activity.Log(ctx, u.Username, "registered with "+p.Provider)
			return u, nil
		}
		if !errors.Is(err, shared.ErrConflict) {
			return nil, err
		}
		// The conflict may be on email: another instance created the account.
		if existing, findErr := b.users.FindByEmail(ctx, email); findErr == nil {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("no free username for %q after %d attempts: %w", base, maxUsernameAttempts, shared.ErrConflict)
}

// Handle turns a display name into a lowercase ASCII username: accents are
// stripped, whitespace becomes underscores and other symbols are dropped.
func Handle(display string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), display)
	if err != nil {
		folded = display
	}
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(folded)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.':
			sb.WriteRune(r)
			lastUnderscore = false
		case r == '_' || r == '-' || unicode.IsSpace(r):
			if sb.Len() > 0 && !lastUnderscore {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(sb.String(), "_.")
	if len(out) > maxUsernameLen-3 {
		out = strings.TrimRight(out[:maxUsernameLen-3], "_.")
	}
	if out != "" && len(out) < 3 {
		out += "_user"
	}
	return out
}

func withSuffix(base string, attempt int) string {
	if attempt == 1 {
		return base
	}
	return base + strconv.Itoa(attempt)
}

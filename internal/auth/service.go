package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-social/internal/shared"
	"github.com/odyssey-erp/odyssey-social/internal/users"
)

// UserStore is the slice of the user directory auth needs.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*users.User, error)
	Create(ctx context.Context, params users.CreateParams) (*users.User, error)
}

// ActivityLogger records best-effort audit lines.
type ActivityLogger interface {
	Log(ctx context.Context, actor, description string)
}

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Name     string `json:"name" validate:"max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Image    string `json:"image" validate:"max=512"`
}

// LoginRequest is the credential login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is a freshly issued bearer token with its owner.
type Session struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      users.PublicUser `json:"user"`
}

// Service implements registration and credential login.
type Service struct {
	users    UserStore
	hasher   *PasswordHasher
	tokens   *TokenIssuer
	activity ActivityLogger
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(store UserStore, hasher *PasswordHasher, tokens *TokenIssuer, activity ActivityLogger) *Service {
	return &Service{users: store, hasher: hasher, tokens: tokens, activity: activity, validate: validator.New()}
}

// Register creates a local account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*users.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, users.CreateParams{
		Username:     req.Username,
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Image:        strings.TrimSpace(req.Image),
	})
	if err != nil {
		return nil, err
	}
	s.activity.Log(ctx, u.Username, "registered")
	return u, nil
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return nil, err
	}
	u, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(u.PasswordHash, req.Password); err != nil {
		s.activity.Log(ctx, u.Username, "failed login")
		return nil, err
	}
	sess, err := s.IssueFor(u)
	if err != nil {
		return nil, err
	}
	s.activity.Log(ctx, u.Username, "logged in")
	return sess, nil
}

// IssueFor issues a token for an already authenticated user. Disabled
// accounts are refused regardless of how they authenticated.
func (s *Service) IssueFor(u *users.User) (*Session, error) {
	if !u.IsActive {
		return nil, fmt.Errorf("account %q disabled: %w", u.Username, shared.ErrForbidden)
	}
	token, expiresAt, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: u.Public()}, nil
}

// Logout revokes the presented token.
func (s *Service) Logout(ctx context.Context, username, token string) error {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return err
	}
	s.activity.Log(ctx, username, "logged out")
	return nil
}

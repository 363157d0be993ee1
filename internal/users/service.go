package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-social/internal/shared"
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

// ActivityLogger records best-effort audit lines.
type ActivityLogger interface {
	Log(ctx context.Context, actor, description string)
}

// Relations supplies both sides of a user's follow graph.
type Relations interface {
	ListFollowers(ctx context.Context, userID int64) ([]PublicUser, error)
	ListFollowing(ctx context.Context, userID int64) ([]PublicUser, error)
}

// AvatarSigner presigns direct uploads to object storage.
type AvatarSigner interface {
	PresignUpload(ctx context.Context, key, contentType string) (url string, expiresAt time.Time, err error)
}

// Service implements the user directory.
type Service struct {
	repo      Repository
	hasher    PasswordHasher
	activity  ActivityLogger
	relations Relations
	avatars   AvatarSigner
	validate  *validator.Validate
}

// NewService builds Service instance. relations and avatars may be nil.
func NewService(repo Repository, hasher PasswordHasher, activity ActivityLogger, relations Relations, avatars AvatarSigner) *Service {
	return &Service{
		repo:      repo,
		hasher:    hasher,
		activity:  activity,
		relations: relations,
		avatars:   avatars,
		validate:  validator.New(),
	}
}

// Get returns the stored user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns every user's public projection.
func (s *Service) List(ctx context.Context) ([]PublicUser, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []PublicUser{}
	}
	return out, nil
}

// Profile returns a user with followers and following.
func (s *Service) Profile(ctx context.Context, id int64) (*Profile, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &Profile{PublicUser: u.Public(), Followers: []PublicUser{}, Following: []PublicUser{}}
	if u.Birthday != nil {
		p.Birthday = u.Birthday.Format(birthdayLayout)
	}
	if s.relations != nil {
		if p.Followers, err = s.relations.ListFollowers(ctx, id); err != nil {
			return nil, fmt.Errorf("list followers: %w", err)
		}
		if p.Following, err = s.relations.ListFollowing(ctx, id); err != nil {
			return nil, fmt.Errorf("list following: %w", err)
		}
	}
	p.FollowerCount = len(p.Followers)
	p.FollowingCount = len(p.Following)
	return p, nil
}

// Followers lists the accounts following id.
func (s *Service) Followers(ctx context.Context, id int64) ([]PublicUser, error) {
	return s.relationSide(ctx, id, "followers")
}

// Following lists the accounts id follows.
func (s *Service) Following(ctx context.Context, id int64) ([]PublicUser, error) {
	return s.relationSide(ctx, id, "following")
}

func (s *Service) relationSide(ctx context.Context, id int64, side string) ([]PublicUser, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if s.relations == nil {
		return []PublicUser{}, nil
	}
	list := s.relations.ListFollowing
	if side == "followers" {
		list = s.relations.ListFollowers
	}
	out, err := list(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", side, err)
	}
	if out == nil {
		out = []PublicUser{}
	}
	return out, nil
}

// Update applies a self-service edit for actingUserID.
func (s *Service) Update(ctx context.Context, actingUserID int64, req UpdateRequest) (*User, error) {
	if flagRequested(req.IsAdmin) || flagRequested(req.IsActive) {
		return nil, fmt.Errorf("admin and active flags are not self-editable: %w", shared.ErrForbidden)
	}
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return nil, err
	}

	params := UpdateParams{
		Username: nonEmpty(req.Username),
		Name:     nonEmpty(req.Name),
		Email:    nonEmpty(req.Email),
		Image:    nonEmpty(req.Image),
	}
	if req.Birthday != "" {
		b, err := time.Parse(birthdayLayout, req.Birthday)
		if err != nil {
			return nil, fmt.Errorf("%w: birthday: %v", shared.ErrValidation, err)
		}
		params.Birthday = &b
	}
	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		params.PasswordHash = &hash
	}

	u, err := s.repo.Update(ctx, actingUserID, params)
	if err != nil {
		return nil, err
	}
	s.activity.Log(ctx, u.Username, "updated profile")
	return u, nil
}

// Delete removes the acting user's account after re-verifying the password.
func (s *Service) Delete(ctx context.Context, actingUserID int64, req DeleteRequest) error {
	u, err := s.repo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return err
	}
	if u.ID != actingUserID {
		return fmt.Errorf("cannot delete another user's account: %w", shared.ErrForbidden)
	}
	if req.Password == "" {
		return fmt.Errorf("%w: password is required", shared.ErrValidation)
	}
	if err := s.hasher.Compare(u.PasswordHash, req.Password); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, u.ID); err != nil {
		return err
	}
	s.activity.Log(ctx, u.Username, "deleted account")
	return nil
}

// AvatarUploadURL presigns an avatar upload for actingUserID.
func (s *Service) AvatarUploadURL(ctx context.Context, actingUserID int64, req AvatarRequest) (*AvatarUpload, error) {
	if s.avatars == nil {
		return nil, fmt.Errorf("avatar storage: %w", shared.ErrUnavailable)
	}
	if err := shared.ValidateStruct(s.validate, req); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindByID(ctx, actingUserID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%d/%s%s", actingUserID, uuid.NewString(), avatarExt(req.ContentType))
	url, expiresAt, err := s.avatars.PresignUpload(ctx, key, req.ContentType)
	if err != nil {
		return nil, fmt.Errorf("presign avatar: %w", err)
	}
	return &AvatarUpload{Key: key, UploadURL: url, ExpiresAt: expiresAt}, nil
}

const birthdayLayout = "2006-01-02"

func avatarExt(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ""
}

func nonEmpty(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

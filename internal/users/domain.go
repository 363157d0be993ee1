package users

import (
	"encoding/json"
	"strings"
	"time"
)

// User is a stored account.
type User struct {
	ID           int64
	Username     string
	Name         string
	Email        string
	PasswordHash string
	Image        string
	Birthday     *time.Time
	IsAdmin      bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the projection exposed to other users.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Image    string `json:"image"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// Public strips credentials and flags from u.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Image: u.Image, Email: u.Email, Name: u.Name}
}

// Profile is a user together with both sides of their follow graph.
type Profile struct {
	PublicUser
	Birthday       string       `json:"birthday,omitempty"`
	Followers      []PublicUser `json:"followers"`
	Following      []PublicUser `json:"following"`
	FollowerCount  int          `json:"followerCount"`
	FollowingCount int          `json:"followingCount"`
}

// CreateParams carries the columns set on registration.
type CreateParams struct {
	Username     string
	Name         string
	Email        string
	PasswordHash string
	Image        string
}

// UpdateParams lists optional column changes; nil fields are left alone.
type UpdateParams struct {
	Username     *string
	Name         *string
	Email        *string
	Image        *string
	PasswordHash *string
	Birthday     *time.Time
}

// Empty reports whether no column would change.
func (p UpdateParams) Empty() bool {
	return p.Username == nil && p.Name == nil && p.Email == nil &&
		p.Image == nil && p.PasswordHash == nil && p.Birthday == nil
}

// UpdateRequest is the self-service profile edit payload. IsAdmin and
// IsActive are accepted only so that attempts to set them can be refused.
type UpdateRequest struct {
	Username string          `json:"username" validate:"omitempty,min=3,max=32"`
	Name     string          `json:"name" validate:"omitempty,max=120"`
	Email    string          `json:"email" validate:"omitempty,email"`
	Image    string          `json:"image" validate:"omitempty,max=512"`
	Birthday string          `json:"birthday" validate:"omitempty,datetime=2006-01-02"`
	Password string          `json:"password" validate:"omitempty,min=8"`
	IsAdmin  json.RawMessage `json:"isAdmin"`
	IsActive json.RawMessage `json:"isActive"`
}

// DeleteRequest confirms account deletion.
type DeleteRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AvatarRequest asks for a presigned avatar upload.
type AvatarRequest struct {
	ContentType string `json:"contentType" validate:"required,oneof=image/png image/jpeg image/webp image/gif"`
}

// AvatarUpload is a presigned PUT target for a new avatar.
type AvatarUpload struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// flagRequested reports whether a raw flag value asks to turn something on.
// Form bodies deliver "true"/"1" as strings; JSON bodies deliver booleans.
func flagRequested(raw json.RawMessage) bool {
	v := strings.TrimSpace(string(raw))
	switch v {
	case "", "null", "false", `"false"`, `""`, "0", `"0"`:
		return false
	}
	return true
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-social/internal/shared"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// TokenIssuer issues and validates HS256 bearer tokens. Revoked token ids
// are kept in Redis until the token would have expired anyway.
type TokenIssuer struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	revoked *redis.Client
	now     func() time.Time
}

// NewTokenIssuer builds a TokenIssuer. A nil redis client disables revocation.
func NewTokenIssuer(cfg TokenConfig, revoked *redis.Client) *TokenIssuer {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}
}

// Issue signs a token for the given user.
func (t *TokenIssuer) Issue(userID int64, username string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate resolves a bearer token into an identity.
func (t *TokenIssuer) Validate(ctx context.Context, raw string) (shared.Identity, error) {
	claims, err := t.parse(raw)
	if err != nil {
		return shared.Identity{}, err
	}
	if t.revoked != nil {
		n, err := t.revoked.Exists(ctx, revokedKey(claims.ID)).Result()
		if err != nil {
			return shared.Identity{}, fmt.Errorf("revocation lookup: %w", err)
		}
		if n > 0 {
			return shared.Identity{}, fmt.Errorf("token revoked: %w", shared.ErrUnauthenticated)
		}
	}
	return shared.Identity{UserID: claims.UserID, Username: claims.Username, TokenID: claims.ID}, nil
}

// Revoke blacklists raw for the rest of its lifetime.
func (t *TokenIssuer) Revoke(ctx context.Context, raw string) error {
	claims, err := t.parse(raw)
	if err != nil {
		return err
	}
	if t.revoked == nil {
		return nil
	}
	remaining := claims.ExpiresAt.Time.Sub(t.now())
	if remaining <= 0 {
		return nil
	}
	if err := t.revoked.Set(ctx, revokedKey(claims.ID), "1", remaining).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (t *TokenIssuer) parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, shared.ErrUnauthenticated
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", shared.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("invalid token: %w", shared.ErrUnauthenticated)
	}
	if claims.UserID == 0 || claims.ID == "" {
		return nil, fmt.Errorf("incomplete claims: %w", shared.ErrUnauthenticated)
	}
	return claims, nil
}

func revokedKey(jti string) string {
	return "auth:revoked:" + jti
}

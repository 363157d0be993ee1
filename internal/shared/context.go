package shared

import "context"

type identityContextKey struct{}

// Identity is the acting user resolved from a bearer credential.
type Identity struct {
	UserID   int64
	Username string
	TokenID  string
}

// ContextWithIdentity stores the resolved identity for the HTTP layer.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity placed by the auth middleware.
// Handlers read it once and pass the user id explicitly to services.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// RequireIdentity is IdentityFromContext for routes behind the auth
// middleware; a missing identity is reported as ErrUnauthenticated.
func RequireIdentity(ctx context.Context) (Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok || id.UserID == 0 {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}

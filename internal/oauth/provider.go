// Package oauth implements federated login: an OAuth provider yields a
// verified email, which is mapped onto a local account (found or created).
package oauth

import "context"

// Profile is the identity asserted by a provider.
type Profile struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// Provider runs the authorization-code flow with PKCE.
type Provider interface {
	Name() string
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*Profile, error)
}

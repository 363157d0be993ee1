package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-social/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
)

// TokenValidator resolves bearer tokens.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (shared.Identity, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// resolved identity in the request context.
func Middleware(tokens TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := tokens.Validate(r.Context(), BearerToken(r))
			if err != nil {
				httpx.RespondError(w, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), ident)))
		})
	}
}

// BearerToken extracts the token from the Authorization header, falling
// back to the token query parameter used by websocket clients.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		if !found {
			return header
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

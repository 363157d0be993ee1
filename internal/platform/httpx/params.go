package httpx

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-social/internal/shared"
)

// UserIDParam reads a numeric user id from the named route parameter. A
// value that cannot name a user is reported as ErrNotFound.
func UserIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("user %q: %w", raw, shared.ErrNotFound)
	}
	return id, nil
}

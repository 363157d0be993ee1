package follows

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-social/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
)

// Handler exposes follow operations for the authenticated user.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers follow routes. The auth middleware must already be
// in the chain.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/follow/{targetId}", h.follow)
	r.Post("/unfollow/{targetId}", h.unfollow)
	r.Get("/following/{targetId}", h.isFollowing)
	r.Get("/followers", h.followers)
	r.Get("/followings", h.followings)
}

func (h *Handler) follow(w http.ResponseWriter, r *http.Request) {
	ident, target, ok := h.pair(w, r)
	if !ok {
		return
	}
	if err := h.service.Follow(r.Context(), ident.UserID, target); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Message{Message: "Followed successfully"})
}

func (h *Handler) unfollow(w http.ResponseWriter, r *http.Request) {
	ident, target, ok := h.pair(w, r)
	if !ok {
		return
	}
	if err := h.service.Unfollow(r.Context(), ident.UserID, target); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Message{Message: "Unfollowed successfully"})
}

func (h *Handler) isFollowing(w http.ResponseWriter, r *http.Request) {
	ident, target, ok := h.pair(w, r)
	if !ok {
		return
	}
	following, err := h.service.IsFollowing(r.Context(), ident.UserID, target)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"following": following})
}

func (h *Handler) followers(w http.ResponseWriter, r *http.Request) {
	ident, err := shared.RequireIdentity(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	list, err := h.service.ListFollowers(r.Context(), ident.UserID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"followers": list})
}

func (h *Handler) followings(w http.ResponseWriter, r *http.Request) {
	ident, err := shared.RequireIdentity(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	list, err := h.service.ListFollowing(r.Context(), ident.UserID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"following": list})
}

func (h *Handler) pair(w http.ResponseWriter, r *http.Request) (shared.Identity, int64, bool) {
	ident, err := shared.RequireIdentity(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return shared.Identity{}, 0, false
	}
	target, err := httpx.UserIDParam(r, "targetId")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return shared.Identity{}, 0, false
	}
	return ident, target, true
}

package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-social/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
)

// Handler exposes the user directory over HTTP. Routes expect the auth
// middleware to have run.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/me", h.me)
	r.Put("/me", h.update)
	r.Delete("/me", h.delete)
	r.Post("/me/avatar", h.avatar)
	r.Get("/{id}", h.profile)
	r.Get("/{id}/followers", h.followers)
	r.Get("/{id}/following", h.following)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	ident, err := shared.RequireIdentity(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.writeProfile(w, r, ident.UserID)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UserIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.writeProfile(w, r, id)
}

func (h *Handler) writeProfile(w http.ResponseWriter, r *http.Request, id int64) {
	p, err := h.service.Profile(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) followers(w http.ResponseWriter, r *http.Request) {
	h.relationList(w, r, "followers")
}

func (h *Handler) following(w http.ResponseWriter, r *http.Request) {
	h.relationList(w, r, "following")
}

func (h *Handler) relationList(w http.ResponseWriter, r *http.Request, side string) {
	id, err := httpx.UserIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	list := h.service.Followers
	if side == "following" {
		list = h.service.Following
	}
	out, err := list(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{side: out})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	ident, err := shared.RequireIdentity(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req UpdateRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	u, err := h.service.Update(r.Context(), ident.UserID, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "User updated", "user": u.Public()})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	ident, err := shared.RequireIdentity(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req DeleteRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), ident.UserID, req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) avatar(w http.ResponseWriter, r *http.Request) {
	ident, err := shared.RequireIdentity(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req AvatarRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	upload, err := h.service.AvatarUploadURL(r.Context(), ident.UserID, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, upload)
}

package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-social/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
)

// Handler provides HTTP endpoints for credential auth.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	tokens      TokenValidator
	loginPerMin int
}

// NewHandler creates a new auth handler. loginPerMinute bounds login
// attempts per client IP; zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, tokens TokenValidator, loginPerMinute int) *Handler {
	return &Handler{logger: logger, service: service, tokens: tokens, loginPerMin: loginPerMinute}
}

// MountRoutes registers auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Group(func(r chi.Router) {
		if h.loginPerMin > 0 {
			r.Use(httprate.Limit(h.loginPerMin, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}
		r.Post("/login", h.login)
	})
	r.Group(func(r chi.Router) {
		r.Use(Middleware(h.tokens, h.logger))
		r.Post("/logout", h.logout)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	u, err := h.service.Register(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"message": "User registered", "user": u.Public()})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	sess, err := h.service.Login(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ident, err := shared.RequireIdentity(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Logout(r.Context(), ident.Username, BearerToken(r)); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Message{Message: "Logged out"})
}

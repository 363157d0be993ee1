package oauth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/odyssey-erp/odyssey-social/internal/auth"
	"github.com/odyssey-erp/odyssey-social/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
	"github.com/odyssey-erp/odyssey-social/internal/users"
)

const (
	sessionStateKey    = "oauth_state"
	sessionVerifierKey = "oauth_verifier"
)

// TokenIssuer issues bearer tokens for resolved accounts.
type TokenIssuer interface {
	IssueFor(u *users.User) (*auth.Session, error)
}

// HandlerConfig wires the OAuth endpoints.
type HandlerConfig struct {
	Logger          *slog.Logger
	Sessions        *shared.SessionManager
	Provider        Provider
	Bridge          *Bridge
	Tokens          TokenIssuer
	Activity        ActivityLogger
	SuccessRedirect string
	FailurePath     string
}

// Handler runs the browser side of the OAuth flow.
type Handler struct {
	cfg HandlerConfig
}

// NewHandler builds Handler instance. A nil Provider answers 503.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.FailurePath == "" {
		cfg.FailurePath = "/auth/google/failure"
	}
	return &Handler{cfg: cfg}
}

// MountRoutes registers the provider routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.begin)
	r.Get("/callback", h.callback)
	r.Get("/failure", h.failure)
}

type userData struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Image    string `json:"image"`
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Provider == nil {
		httpx.RespondError(w, h.cfg.Logger, shared.ErrUnavailable)
		return
	}
	sess, err := h.cfg.Sessions.Load(r.Context(), r)
	if err != nil {
		httpx.RespondError(w, h.cfg.Logger, err)
		return
	}
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	sess.Set(sessionStateKey, state)
	sess.Set(sessionVerifierKey, verifier)
	if err := h.cfg.Sessions.Commit(r.Context(), w, sess); err != nil {
		httpx.RespondError(w, h.cfg.Logger, err)
		return
	}
	http.Redirect(w, r, h.cfg.Provider.AuthCodeURL(state, verifier), http.StatusFound)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Provider == nil {
		httpx.RespondError(w, h.cfg.Logger, shared.ErrUnavailable)
		return
	}
	ctx := r.Context()
	sess, err := h.cfg.Sessions.Load(ctx, r)
	if err != nil {
		httpx.RespondError(w, h.cfg.Logger, err)
		return
	}
	state := sess.Pop(sessionStateKey)
	verifier := sess.Pop(sessionVerifierKey)
	h.cfg.Sessions.Destroy(sess)
	if err := h.cfg.Sessions.Commit(ctx, w, sess); err != nil {
		h.cfg.Logger.Warn("oauth session cleanup", slog.Any("error", err))
	}

	query := r.URL.Query()
	if reason := query.Get("error"); reason != "" {
		h.cfg.Logger.Info("oauth denied", slog.String("provider", h.cfg.Provider.Name()), slog.String("reason", reason))
		http.Redirect(w, r, h.cfg.FailurePath, http.StatusFound)
		return
	}
	if state == "" || query.Get("state") != state {
		h.cfg.Logger.Warn("oauth state mismatch", slog.String("provider", h.cfg.Provider.Name()))
		http.Redirect(w, r, h.cfg.FailurePath, http.StatusFound)
		return
	}

	profile, err := h.cfg.Provider.Exchange(ctx, query.Get("code"), verifier)
	if err != nil {
		h.cfg.Logger.Warn("oauth exchange failed", slog.String("provider", h.cfg.Provider.Name()), slog.Any("error", err))
		http.Redirect(w, r, h.cfg.FailurePath, http.StatusFound)
		return
	}
	u, err := h.cfg.Bridge.Resolve(ctx, *profile)
	if err != nil {
		h.refuse(w, r, err)
		return
	}
	issued, err := h.cfg.Tokens.IssueFor(u)
	if err != nil {
		h.refuse(w, r, err)
		return
	}
	if h.cfg.Activity != nil {
		h.cfg.Activity.Log(ctx, u.Username, "logged in with "+h.cfg.Provider.Name())
	}

	image := u.Image
	if image == "" {
		image = profile.Picture
	}
	data, err := json.Marshal(userData{ID: u.ID, Username: u.Username, Email: u.Email, Image: image})
	if err != nil {
		httpx.RespondError(w, h.cfg.Logger, err)
		return
	}
	if h.cfg.SuccessRedirect == "" {
		httpx.JSON(w, http.StatusOK, issued)
		return
	}
	target, err := url.Parse(h.cfg.SuccessRedirect)
	if err != nil {
		httpx.RespondError(w, h.cfg.Logger, err)
		return
	}
	values := target.Query()
	values.Set("token", issued.Token)
	values.Set("userData", string(data))
	target.RawQuery = values.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// refuse sends policy rejections (unverified email, disabled account) to the
// failure page; anything else is a server-side error.
func (h *Handler) refuse(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, shared.ErrForbidden) && !errors.Is(err, shared.ErrValidation) {
		httpx.RespondError(w, h.cfg.Logger, err)
		return
	}
	h.cfg.Logger.Info("oauth login refused", slog.String("provider", h.cfg.Provider.Name()), slog.Any("error", err))
	http.Redirect(w, r, h.cfg.FailurePath, http.StatusFound)
}

func (h *Handler) failure(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, httpx.Message{Message: "Google login failed"})
}

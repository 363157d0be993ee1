package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-social/internal/auth"
	"github.com/odyssey-erp/odyssey-social/internal/follows"
	"github.com/odyssey-erp/odyssey-social/internal/notify"
	"github.com/odyssey-erp/odyssey-social/internal/oauth"
	"github.com/odyssey-erp/odyssey-social/internal/observability"
	"github.com/odyssey-erp/odyssey-social/internal/users"
	"github.com/odyssey-erp/odyssey-social/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Tokens  auth.TokenValidator
	Metrics *observability.Metrics

	AuthHandler    *auth.Handler
	OAuthHandler   *oauth.Handler
	UsersHandler   *users.Handler
	FollowsHandler *follows.Handler
	NotifyHandler  *notify.Handler
	JobHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router with Odyssey defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(RequestTimeout(params.Config))

		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
		r.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountRoutes(r)
			if params.OAuthHandler != nil {
				r.Route("/google", params.OAuthHandler.MountRoutes)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(params.Tokens, logger))
			if params.FollowsHandler != nil {
				params.FollowsHandler.MountRoutes(r)
			}
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
		})
	})

	// Live sessions outlive the request timeout.
	if params.NotifyHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(params.Tokens, logger))
			r.Route("/ws", params.NotifyHandler.MountRoutes)
		})
	}

	return r
}

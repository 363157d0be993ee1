package app

import (
	"log/slog"

	"github.com/odyssey-erp/odyssey-social/internal/activity"
	"github.com/odyssey-erp/odyssey-social/internal/auth"
	"github.com/odyssey-erp/odyssey-social/internal/follows"
	"github.com/odyssey-erp/odyssey-social/internal/notify"
	"github.com/odyssey-erp/odyssey-social/internal/oauth"
	"github.com/odyssey-erp/odyssey-social/internal/observability"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
	"github.com/odyssey-erp/odyssey-social/internal/users"
	"github.com/odyssey-erp/odyssey-social/jobs"
)

// Dependencies are the infrastructure pieces the HTTP surface is built on.
// Storage and transport are chosen by the caller. Avatars must be left nil,
// not a typed nil, when uploads are disabled.
type Dependencies struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	Users    users.Repository
	Follows  follows.Repository
	Tokens   *auth.TokenIssuer
	Activity *activity.Recorder
	Notifier *notify.Dispatcher
	Registry *notify.Registry
	Avatars  users.AvatarSigner

	Sessions *shared.SessionManager
	Google   oauth.Provider
	Queues   jobs.QueueInspector
}

// BuildRouterParams constructs the services and handlers over deps.
func BuildRouterParams(deps Dependencies) RouterParams {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &Config{}
	}

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	authSvc := auth.NewService(deps.Users, hasher, deps.Tokens, deps.Activity)

	var followMetrics *follows.Metrics
	if deps.Metrics != nil {
		followMetrics = follows.NewMetrics(deps.Metrics.Registerer())
	}
	followSvc := follows.NewService(deps.Users, deps.Follows, deps.Notifier, deps.Activity, followMetrics, logger)
	userSvc := users.NewService(deps.Users, hasher, deps.Activity, followSvc, deps.Avatars)

	params := RouterParams{
		Logger:         logger,
		Config:         cfg,
		Tokens:         deps.Tokens,
		Metrics:        deps.Metrics,
		AuthHandler:    auth.NewHandler(logger, authSvc, deps.Tokens, cfg.LoginPerMinute),
		UsersHandler:   users.NewHandler(logger, userSvc),
		FollowsHandler: follows.NewHandler(logger, followSvc),
	}
	if deps.Registry != nil {
		params.NotifyHandler = notify.NewHandler(logger, deps.Registry, cfg.NotifyBuffer, cfg.AllowedOrigins)
	}
	if deps.Sessions != nil {
		params.OAuthHandler = oauth.NewHandler(oauth.HandlerConfig{
			Logger:          logger,
			Sessions:        deps.Sessions,
			Provider:        deps.Google,
			Bridge:          oauth.NewBridge(deps.Users, deps.Activity),
			Tokens:          authSvc,
			Activity:        deps.Activity,
			SuccessRedirect: cfg.OAuthSuccessRedirect,
			FailurePath:     "/auth/google/failure",
		})
	}
	if deps.Queues != nil {
		params.JobHandler = jobs.NewHandler(deps.Queues, logger)
	}
	return params
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-social/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-social/internal/activity"
	"github.com/odyssey-erp/odyssey-social/internal/app"
	"github.com/odyssey-erp/odyssey-social/internal/auth"
	"github.com/odyssey-erp/odyssey-social/internal/follows"
	"github.com/odyssey-erp/odyssey-social/internal/notify"
	"github.com/odyssey-erp/odyssey-social/internal/oauth"
	"github.com/odyssey-erp/odyssey-social/internal/observability"
	"github.com/odyssey-erp/odyssey-social/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-social/internal/platform/db"
	"github.com/odyssey-erp/odyssey-social/internal/platform/storage"
	"github.com/odyssey-erp/odyssey-social/internal/shared"
	"github.com/odyssey-erp/odyssey-social/internal/users"
	"github.com/odyssey-erp/odyssey-social/jobs"
)

const sideEffectTimeout = 5 * time.Second

func main() {
	if app.SkipStartup(slog.Default(), "odyssey") {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		if err := runJobs(ctx, cfg, os.Args[2:]); err != nil {
			logger.Error("jobs command", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}

	var sink activity.Sink
	switch cfg.ActivityMode {
	case app.ActivityModeQueue:
		client := jobs.NewClient(redisOpts)
		defer client.Close()
		sink = activity.NewQueueSink(client)
	default:
		sink = activity.NewStore(pool)
	}
	recorder := activity.NewRecorder(sink, logger, sideEffectTimeout)

	registry := notify.NewRegistry()
	var publisher notify.Publisher = registry
	var relay *notify.Relay
	if cfg.NotifyTransport == app.NotifyTransportRedis {
		publisher = notify.NewRedisPublisher(redisClient)
		relay = notify.NewRelay(redisClient, registry, logger)
	}
	dispatcher := notify.NewDispatcher(publisher, logger, sideEffectTimeout)

	deps := app.Dependencies{
		Logger:   logger,
		Config:   cfg,
		Metrics:  observability.NewMetrics(),
		Users:    users.NewRepository(pool),
		Follows:  follows.NewRepository(pool),
		Tokens:   auth.NewTokenIssuer(auth.TokenConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.JWTTTL}, redisClient),
		Activity: recorder,
		Notifier: dispatcher,
		Registry: registry,
		Sessions: shared.NewSessionManager(redisClient, "odyssey_oauth", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction()),
	}
	if cfg.GoogleEnabled() {
		deps.Google = oauth.NewGoogleProvider(oauth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	}
	s3cfg := storage.S3Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Expires:   cfg.S3URLExpiry,
	}
	if s3cfg.Enabled() {
		presigner, err := storage.NewPresigner(ctx, s3cfg)
		if err != nil {
			return err
		}
		deps.Avatars = presigner
	}

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	deps.Queues = inspector

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      app.NewRouter(app.BuildRouterParams(deps)),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("notify relay: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown", slog.Any("error", err))
		}
		return nil
	})

	err = g.Wait()
	dispatcher.Wait()
	recorder.Wait()
	return err
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) error {
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	client := jobs.NewClient(redisOpts)
	defer client.Close()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()
	c := cli.NewJobsCLI(client, inspector)

	if len(args) == 0 {
		return errors.New("usage: odyssey jobs trigger <job> | stats [queue] | scheduled [queue]")
	}
	queue := activity.Queue
	if len(args) > 1 {
		queue = args[1]
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("usage: odyssey jobs trigger <job>")
		}
		info, err := c.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := c.InspectQueue(queue)
		if err != nil {
			return err
		}
		fmt.Printf("%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	case "scheduled":
		tasks, err := c.ListScheduled(queue, 20)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Printf("%s %s next=%s\n", t.ID, t.Type, t.NextProcessAt.Format(time.RFC3339))
		}
	default:
		return fmt.Errorf("unknown jobs command %q", args[0])
	}
	return nil
}

// Package main is the entrypoint for the card generation API server.
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

	"github.com/getsentry/sentry-go"
	"github.com/lmittmann/tint"
	"github.com/ombulabs/rails-superhero-cards/internal/api"
	"github.com/ombulabs/rails-superhero-cards/internal/api/handler"
	mw "github.com/ombulabs/rails-superhero-cards/internal/api/middleware"
	"github.com/ombulabs/rails-superhero-cards/internal/api/response"
	"github.com/ombulabs/rails-superhero-cards/internal/blob"
	"github.com/ombulabs/rails-superhero-cards/internal/config"
	"github.com/ombulabs/rails-superhero-cards/internal/jobs"
	"github.com/ombulabs/rails-superhero-cards/internal/progress"
	"github.com/ombulabs/rails-superhero-cards/internal/store"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 30 * time.Second

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	initLogger(cfg.Development())
	slog.Info("config loaded", "env", cfg.Server.Env)

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Server.Env,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		slog.Info("sentry initialized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Redis: one client shared by the job queue and the progress bus
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	queue := jobs.NewRedisQueueFromClient(redisClient, cfg.Queue.JobTTL)
	if err := queue.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	bus := progress.NewRedisBusFromClient(redisClient)

	// 5. Object storage
	blobs, err := blob.NewS3Store(ctx, cfg.S3)
	if err != nil {
		return fmt.Errorf("create s3 store: %w", err)
	}
	slog.Info("object storage ready", "bucket", cfg.S3.Bucket)

	// 6. Build router with dependencies
	pgStore := store.NewPostgresStore(pool)

	deps := api.Dependencies{
		RateLimit:     mw.NewRateLimit(queue, cfg.RateLimit.Requests, cfg.RateLimit.Window),
		MaxUploadSize: cfg.Server.MaxUploadSize,
		AllowOrigins:  cfg.Server.AllowOrigins,

		HealthHandler:   healthHandler(pgStore, queue),
		GenerateHandler: handler.NewGenerateHandler(queue, cfg.Card.MaxImageBytes),
		StatusHandler:   handler.NewStatusHandler(queue, pgStore, blobs),
		StreamHandler:   handler.NewStreamHandler(bus, cfg.Stream.Timeout),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server. WriteTimeout stays unset: event streams are held
	// open for up to the stream timeout.
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func initLogger(dev bool) {
	var h slog.Handler
	if dev {
		h = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.TimeOnly,
		})
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(h))
}

// pinger is anything with a connectivity check.
type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and redis connectivity.
func healthHandler(db pinger, queue pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"redis":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := queue.Ping(r.Context()); err != nil {
			checks["redis"] = "degraded"
		}

		if checks["database"] != "ok" || checks["redis"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}

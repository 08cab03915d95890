// Package main is the entrypoint for the card generation worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lmittmann/tint"
	"github.com/ombulabs/rails-superhero-cards/internal/ai/openai"
	"github.com/ombulabs/rails-superhero-cards/internal/blob"
	"github.com/ombulabs/rails-superhero-cards/internal/card"
	"github.com/ombulabs/rails-superhero-cards/internal/config"
	"github.com/ombulabs/rails-superhero-cards/internal/jobs"
	"github.com/ombulabs/rails-superhero-cards/internal/pipeline"
	"github.com/ombulabs/rails-superhero-cards/internal/progress"
	"github.com/ombulabs/rails-superhero-cards/internal/store"
	"github.com/ombulabs/rails-superhero-cards/internal/worker"
	"github.com/redis/go-redis/v9"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	initLogger(cfg.Development())
	slog.Info("config loaded", "env", cfg.Server.Env, "workers", cfg.Queue.Workers)

	reporter := func(error) {}
	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Server.Env,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		reporter = func(err error) {
			sentry.CaptureException(err)
		}
		slog.Info("sentry initialized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

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

	blobs, err := blob.NewS3Store(ctx, cfg.S3)
	if err != nil {
		return fmt.Errorf("create s3 store: %w", err)
	}
	slog.Info("object storage ready", "bucket", cfg.S3.Bucket)

	provider := openai.NewProvider(cfg.OpenAI)
	slog.Info("AI provider initialized", "provider", provider.Name())

	generator := pipeline.NewGenerator(pipeline.Deps{
		Provider:   provider,
		Progress:   progress.NewRedisBusFromClient(redisClient),
		Store:      store.NewPostgresStore(pool),
		Blobs:      blobs,
		Compositor: card.NewCompositor(cfg.Card),
		Reporter:   reporter,
	}, pipeline.Options{
		ImageSize:           cfg.OpenAI.ImageSize,
		PartialImages:       cfg.OpenAI.PartialImages,
		FolderPrefix:        cfg.S3.FolderPrefix,
		HolidayFolderPrefix: cfg.S3.HolidayFolderPrefix,
	})

	// Blocks until the signal context is canceled and in-flight jobs finish.
	worker.NewPool(queue, generator, cfg.Queue.Workers, cfg.Queue.ClaimTimeout).Run(ctx)

	slog.Info("worker stopped gracefully")
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

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/n8Develop/BeeBeeBee/internal/directory"
	"github.com/n8Develop/BeeBeeBee/internal/ephemeral"
	"github.com/n8Develop/BeeBeeBee/internal/history"
	"github.com/n8Develop/BeeBeeBee/internal/presence"
	"github.com/n8Develop/BeeBeeBee/internal/ratelimit"
	"github.com/n8Develop/BeeBeeBee/internal/router"
	"github.com/n8Develop/BeeBeeBee/internal/server"
	"github.com/n8Develop/BeeBeeBee/internal/session"
	"github.com/n8Develop/BeeBeeBee/internal/uploads"
	"github.com/n8Develop/BeeBeeBee/pkg/config"
	"github.com/n8Develop/BeeBeeBee/pkg/logging"
)

func main() {
	bootLogger := logging.New(logging.LevelInfo)

	cfg, err := config.Load(bootLogger, "config")
	if err != nil {
		bootLogger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := ephemeral.NewRedisStore(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Error("Failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	dir, err := directory.NewPostgresDirectory(ctx, cfg.Postgres.URL)
	if err != nil {
		logger.Error("Failed to connect to postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dir.Close()

	remover, err := uploads.NewRemover(cfg.Uploads.Dir, logger)
	if err != nil {
		logger.Error("Failed to initialize upload remover", slog.Any("error", err))
		os.Exit(1)
	}
	sweeper := uploads.NewSweeper(cfg.Uploads.Dir, cfg.Uploads.MaxAge, cfg.Uploads.SweepInterval, logger)
	go sweeper.Run(ctx)

	sessions := session.NewManager(logger)
	eventRouter := router.New(
		logger,
		sessions,
		presence.NewTracker(store),
		history.NewStore(store, logger),
		ratelimit.NewLimiter(store),
		dir,
		remover,
	)

	app := server.NewApp(logger, ctx, cfg, sessions, eventRouter, dir, store, dir)
	if err := app.Run(); err != nil {
		logger.Error("Application run failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down successfully.")
}

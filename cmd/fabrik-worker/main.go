package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fabrik/internal/config"
	"fabrik/internal/economy"
	"fabrik/internal/storage"
)

// The worker maintains the optional read-only view cache: it recomputes
// fabric projections and per-guild leaderboards on a fixed interval. It
// never writes account state.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	store, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Error("storage open failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	eco := economy.NewService(store, logger, cfg.EconomyOptions())

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("FABRIK_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if err := eco.Refresh(ctx); err != nil {
			logger.Error("refresh failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.RefreshEvery)
	defer ticker.Stop()

	logger.Info("worker started", "refresh_every", cfg.RefreshEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := eco.Refresh(ctx); err != nil {
				logger.Error("refresh failed", "err", err)
				continue
			}
		}
	}
}

func openStorage(ctx context.Context, cfg config.APIConfig) (economy.Storage, error) {
	switch cfg.StorageDriver {
	case "sqlite":
		return storage.OpenSQLite(cfg.SQLitePath)
	case "memory":
		return storage.NewMemory(), nil
	default:
		return storage.ConnectPostgres(ctx, cfg.DatabaseURL)
	}
}

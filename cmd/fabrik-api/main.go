package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fabrik/internal/api"
	"fabrik/internal/config"
	"fabrik/internal/economy"
	"fabrik/internal/metrics"
	"fabrik/internal/storage"
)

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

	items, err := config.LoadItems(cfg.ItemsFile)
	if err != nil {
		logger.Error("load store items failed", "err", err)
		os.Exit(1)
	}

	eco := economy.NewService(store, logger, cfg.EconomyOptions())
	catalog, err := economy.NewStore(eco, items)
	if err != nil {
		logger.Error("store catalog invalid", "err", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()

	// Keep the in-process view cache warm so cached leaderboard reads work
	// without the standalone worker.
	go func() {
		ticker := time.NewTicker(cfg.RefreshEvery)
		defer ticker.Stop()
		for {
			if err := eco.Refresh(ctx); err != nil {
				logger.Error("view cache refresh failed", "err", err)
			} else if rows, _, ok := eco.CachedLeaderboard(nil, 0); ok {
				collector.SetCachedAccounts(len(rows))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	server := api.New(cfg, logger, eco, catalog, collector)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("fabrik api listening", "addr", cfg.Addr, "driver", cfg.StorageDriver)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
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

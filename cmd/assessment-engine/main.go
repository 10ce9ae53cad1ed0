package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terra-clan/assessment-engine/internal/api"
	"github.com/terra-clan/assessment-engine/internal/cleanup"
	"github.com/terra-clan/assessment-engine/internal/config"
	"github.com/terra-clan/assessment-engine/internal/normalize"
	"github.com/terra-clan/assessment-engine/internal/storage"
	"github.com/terra-clan/assessment-engine/pkg/client"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting assessment-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"backend", cfg.Backend.URL,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	backend := client.NewClient(cfg.Backend.URL, client.WithTimeout(cfg.Backend.Timeout))

	deps := api.Deps{
		Starter:      backend,
		Auth:         backend,
		Normalizer:   normalize.New(cfg.Normalizer),
		TickInterval: cfg.Timer.TickInterval,
	}

	// Tab snapshots (optional)
	var snapshots *storage.RedisSnapshotStore
	if cfg.Redis.Address != "" {
		snapshots, err = storage.NewRedisSnapshotStore(initCtx, storage.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.SnapshotTTL,
		})
		if err != nil {
			slog.Error("failed to create snapshot store", "error", err)
			os.Exit(1)
		}
		deps.Snapshots = snapshots
		slog.Info("redis connected successfully", "address", cfg.Redis.Address)
	} else {
		slog.Warn("redis not configured, tabs will not survive reconnects")
	}

	// Funnel journal (optional)
	var journal *storage.PostgresJournal
	if cfg.Database.DSN != "" {
		journal, err = storage.NewPostgresJournal(initCtx, storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
		})
		if err != nil {
			slog.Error("failed to create funnel journal", "error", err)
			os.Exit(1)
		}

		// Run database migrations
		migrations, err := storage.MigrationSource(cfg.Database.MigrationsDir)
		if err != nil {
			slog.Error("failed to open migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.RunMigrations(initCtx, journal.Pool(), migrations); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}

		deps.Journal = journal
		slog.Info("database connected successfully")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start journal retention worker
	if journal != nil {
		cleanup.NewCleaner(journal, cfg.Cleanup.Interval, cfg.Cleanup.JournalRetention).Start(ctx)
	}

	// Setup HTTP server. No write timeout: tab websockets are long-lived.
	server := api.NewServer(cfg.Server, deps)
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if snapshots != nil {
		if err := snapshots.Close(); err != nil {
			slog.Error("snapshot store close error", "error", err)
		}
	}
	if journal != nil {
		journal.Close()
	}

	slog.Info("assessment-engine stopped")
}

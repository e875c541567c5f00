// SOL SMITH - Solana vanity wallet Telegram bot
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/solsmith/solsmith/internal/api"
	"github.com/solsmith/solsmith/internal/config"
	"github.com/solsmith/solsmith/internal/display"
	"github.com/solsmith/solsmith/internal/grinder"
	"github.com/solsmith/solsmith/internal/session"
	"github.com/solsmith/solsmith/internal/store"
	"github.com/solsmith/solsmith/internal/telegram"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting SOL SMITH", "port", cfg.Port, "store", cfg.StoreBackend)

	for _, dir := range []string{cfg.DataDir, cfg.UsersDir(), cfg.WorkDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			slog.Error("Failed to create directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	repo, err := store.Open(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Storage health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Storage ready")

	// Gateway authentication is the only unrecoverable startup failure.
	bot, err := telegram.New(cfg.BotToken, cfg.PollTimeout)
	if err != nil {
		slog.Error("Failed to authenticate Telegram bot", "error", err)
		os.Exit(1)
	}

	tracker := display.NewTracker(bot)
	runner := grinder.NewRunner(cfg.KeygenBin, cfg.WorkDir)
	orch := session.NewOrchestrator(bot, tracker, repo, runner)
	registry := session.NewRegistry(orch, cfg.SessionTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry.StartEvictionWorker(ctx)
	slog.Info("Session eviction worker started", "session_ttl", cfg.SessionTTL)

	healthHandler := api.NewHealthHandler(repo)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      healthHandler.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		slog.Info("Operational server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Operational server failed", "error", err)
		}
	}()

	// Long-poll loop; returns once ctx is canceled.
	slog.Info("Bot polling for updates")
	bot.Run(ctx, registry.Dispatch)

	slog.Info("Shutting down gracefully...")

	// Drain per-chat workers so in-flight generations finish their writes;
	// the canceled context has already killed their subprocesses.
	registry.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Operational server forced to shutdown", "error", err)
	}

	slog.Info("Bot stopped successfully")
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wealthlings/internal/api"
	"wealthlings/internal/backend"
	"wealthlings/internal/config"
	"wealthlings/internal/db"
	"wealthlings/internal/game"
	"wealthlings/internal/snapshot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := config.LoadDotEnv(); err != nil {
		logger.Warn("dotenv not loaded", "err", err)
	}
	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}

	var snapshots snapshot.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		pg := snapshot.NewPGStore(pool, logger)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("snapshot schema init failed", "err", err)
			os.Exit(1)
		}
		snapshots = pg
	} else {
		logger.Warn("DATABASE_URL not set, sessions will not survive restarts")
	}

	if cfg.BackendURL == "" {
		logger.Warn("BACKEND_URL not set, using mock scanner and fixed valuations")
	}
	hub := game.NewHub(logger, backend.SessionFactory(backend.Options{
		BaseURL:       cfg.BackendURL,
		Timeout:       cfg.BackendTimeout,
		MockScanDelay: cfg.MockScanDelay,
		PerLevel:      cfg.SellValuePerLevel,
		Storm:         cfg.StormConfig(),
	}, logger))

	go api.Autosave(ctx, hub, snapshots, cfg.AutosaveEvery, logger)

	server := api.New(cfg, logger, hub, snapshots)
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

	logger.Info("wealthlings api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}

	final := hub.CloseAll()
	if snapshots != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		saved := api.SaveAll(saveCtx, final, snapshots, logger)
		logger.Info("sessions saved on shutdown", "saved", saved, "open", len(final))
	}
}

package api

import (
	"context"
	"log/slog"
	"time"

	"wealthlings/internal/game"
	"wealthlings/internal/snapshot"
)

// Autosave snapshots every open session each tick until ctx is done.
func Autosave(ctx context.Context, hub *game.Hub, store snapshot.Store, every time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	logger.Info("autosave started", "every", every.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("autosave shutdown")
			return
		case <-ticker.C:
			saved := SaveAll(ctx, hub.Snapshot(), store, logger)
			logger.Debug("autosave complete", "sessions", saved)
		}
	}
}

// SaveAll writes each state and returns how many saves succeeded.
func SaveAll(ctx context.Context, states map[string]game.State, store snapshot.Store, logger *slog.Logger) int {
	saved := 0
	for id, st := range states {
		if err := store.Save(ctx, id, st); err != nil {
			logger.Error("snapshot save failed", "session_id", id, "err", err)
			continue
		}
		saved++
	}
	return saved
}

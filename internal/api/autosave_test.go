package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"wealthlings/internal/backend"
	"wealthlings/internal/game"
	"wealthlings/internal/snapshot"
)

func TestAutosaveWritesOpenSessions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	storm := game.StormConfig{PollEvery: time.Hour, Threshold: 0.7, Dwell: time.Hour}
	hub := game.NewHub(logger, backend.SessionFactory(backend.Options{Storm: storm}, logger))
	defer hub.CloseAll()

	store, err := snapshot.OpenSQLite(filepath.Join(t.TempDir(), "auto.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sess := hub.Open("p1", game.SeedState(time.Now()))
	sess.Store().SetCoins(42)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		Autosave(ctx, hub, store, 10*time.Millisecond, logger)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := store.Load(context.Background(), "p1")
		if err == nil && st.Coins == 42 {
			break
		}
		if err != nil && !errors.Is(err, snapshot.ErrNotFound) {
			t.Fatalf("load: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatalf("autosave never wrote the session")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("autosave did not stop")
	}
}

func TestAutosaveDisabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		Autosave(context.Background(), nil, nil, time.Millisecond, nil)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("autosave without a store should return immediately")
	}
}

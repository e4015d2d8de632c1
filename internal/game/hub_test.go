package game

import (
	"errors"
	"testing"
	"time"
)

func TestHubLifecycle(t *testing.T) {
	hub := NewHub(discardLogger(), func(id string, st State) *Session {
		return NewSession(id, st, DefaultStormConfig(), discardLogger())
	})

	sess := hub.Open("s1", SeedState(time.Now()))
	if again := hub.Open("s1", State{}); again != sess {
		t.Fatalf("reopening a running id should return the same session")
	}
	if hub.Len() != 1 {
		t.Fatalf("len %d want 1", hub.Len())
	}
	got, err := hub.Get("s1")
	if err != nil || got != sess {
		t.Fatalf("get returned %v, %v", got, err)
	}
	if _, err := sess.Purchase("healing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	final, err := hub.Close("s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.Inventory.Potions != StarterPotions+1 {
		t.Fatalf("final state lost purchase: %+v", final.Inventory)
	}
	if _, err := hub.Get("s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected closed session to be gone, got %v", err)
	}
	if _, err := hub.Close("s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected double close to fail, got %v", err)
	}
}

func TestHubCloseAll(t *testing.T) {
	hub := NewHub(discardLogger(), func(id string, st State) *Session {
		return NewSession(id, st, DefaultStormConfig(), discardLogger())
	})
	hub.Open("a", SeedState(time.Now()))
	hub.Open("b", State{Coins: 7})
	out := hub.CloseAll()
	if len(out) != 2 || out["b"].Coins != 7 {
		t.Fatalf("unexpected final states: %+v", out)
	}
	if hub.Len() != 0 {
		t.Fatalf("sessions left open: %d", hub.Len())
	}
}

func TestHubSnapshotKeepsSessionsOpen(t *testing.T) {
	hub := NewHub(discardLogger(), func(id string, st State) *Session {
		return NewSession(id, st, DefaultStormConfig(), discardLogger())
	})
	defer hub.CloseAll()

	sess := hub.Open("a", SeedState(time.Now()))
	if _, err := sess.Purchase("healing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := hub.Snapshot()
	if got := snap["a"].Coins; got != StarterCoins-500 {
		t.Fatalf("snapshot coins %d", got)
	}
	if hub.Len() != 1 {
		t.Fatalf("snapshot should not close sessions")
	}
	if _, err := hub.Get("a"); err != nil {
		t.Fatalf("session gone after snapshot: %v", err)
	}
}

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wealthlings/internal/game"
)

func TestProfileSessionRoundTrip(t *testing.T) {
	p := Profile{Dir: filepath.Join(t.TempDir(), "wl")}

	if _, err := p.LoadSession(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession before any save, got %v", err)
	}
	if err := p.SaveSession(Session{SessionID: "  "}); err == nil {
		t.Fatalf("expected blank id to be refused")
	}
	want := Session{SessionID: "abc", APIBaseURL: "http://localhost:8080", StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	if err := p.SaveSession(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := p.LoadSession()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SessionID != want.SessionID || got.APIBaseURL != want.APIBaseURL || !got.StartedAt.Equal(want.StartedAt) {
		t.Fatalf("got %+v want %+v", got, want)
	}
	info, err := os.Stat(filepath.Join(p.Dir, "session.json"))
	if err != nil || info.Mode().Perm() != 0o600 {
		t.Fatalf("session file = %v, %v", info, err)
	}
	if err := p.ClearSession(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := p.ClearSession(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if _, err := p.LoadSession(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}

func TestProfileQueueSharesDir(t *testing.T) {
	p := Profile{Dir: t.TempDir()}
	if got, want := p.Queue().Path(), filepath.Join(p.Dir, "queue.json"); got != want {
		t.Fatalf("queue path %s want %s", got, want)
	}
}

func TestClientSendsIdempotencyKeyAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sessions/p1/purchase" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Idempotency-Key") != "k-1" {
			t.Fatalf("missing idempotency key")
		}
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["kind"] != "xp" {
			t.Fatalf("body = %v", in)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"inventory": map[string]any{"potions": 2, "snacks": 1}, "coins": 1250})
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL+"/").Purchase(context.Background(), "p1", "xp", "k-1")
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if out.Coins != 1250 || out.Inventory != (game.Inventory{Potions: 2, Snacks: 1}) {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"no potions left"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Heal(context.Background(), "p1", "2", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Message != "no potions left" {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsAPIError(err) {
		t.Fatalf("IsAPIError should be true")
	}

	srv.Close()
	_, err = NewClient(srv.URL).Heal(context.Background(), "p1", "2", "")
	if err == nil || IsAPIError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestClientScanUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Fatalf("content type = %s", r.Header.Get("Content-Type"))
		}
		f, _, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		raw, _ := io.ReadAll(f)
		if string(raw) != "img" {
			t.Fatalf("image = %q", raw)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"creature": map[string]any{"id": "x", "name": "Flash", "health": 100}})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL).Scan(context.Background(), "p1", "logo.png", strings.NewReader("img"), "")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if c.ID != "x" || c.Health != 100 {
		t.Fatalf("unexpected creature: %+v", c)
	}
}

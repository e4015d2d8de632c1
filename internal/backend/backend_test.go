package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wealthlings/internal/game"
)

func TestScanClientPostsMultipartImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/scan" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("user_id"); got != "player-1" {
			t.Fatalf("user_id = %q", got)
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("missing image: %v", err)
		}
		defer f.Close()
		raw, _ := io.ReadAll(f)
		if string(raw) != "logo-bytes" || hdr.Filename != "nike.png" {
			t.Fatalf("unexpected upload %q %q", hdr.Filename, raw)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"success": true,
			"is_new": true,
			"creature": {"id":"c-9","ticker":"NKE","name":"Swoosh","company_name":"Nike","sector":"Consumer","personality":"sprinter","level":2,"confidence":0.91},
			"market_storm": {"active": true, "severity": 0.4, "affected_sector": "consumer"}
		}`)
	}))
	defer srv.Close()

	sc := NewScanClient(NewClient(srv.URL+"/", time.Second))
	d, err := sc.Scan(context.Background(), game.ScanRequest{
		UserID:   "player-1",
		Filename: "nike.png",
		Image:    strings.NewReader("logo-bytes"),
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if d.ID != "c-9" || d.Name != "Swoosh" || d.Brand != "Nike" || d.Ticker != "NKE" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	if d.Archetype != game.Sprinter || d.Level != 2 || !d.AffectedSector {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
}

func TestScanClientUnknownPersonalityFallsBack(t *testing.T) {
	var r scanResponse
	r.Creature.Personality = "Moonshot"
	r.Creature.Ticker = "XYZ"
	d := r.descriptor()
	if d.Archetype != game.TrendChaser {
		t.Fatalf("archetype = %q want Trend Chaser", d.Archetype)
	}
	if d.Brand != "XYZ" {
		t.Fatalf("brand should fall back to ticker, got %q", d.Brand)
	}
}

func TestScanClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("user_id") == "unrecognised" {
			_, _ = io.WriteString(w, `{"success": false}`)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":"vision model offline"}`)
	}))
	defer srv.Close()
	sc := NewScanClient(NewClient(srv.URL, time.Second))

	if _, err := sc.Scan(context.Background(), game.ScanRequest{}); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}

	_, err := sc.Scan(context.Background(), game.ScanRequest{Image: strings.NewReader("x")})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway || se.Message != "vision model offline" {
		t.Fatalf("expected status error, got %v", err)
	}

	_, err = sc.Scan(context.Background(), game.ScanRequest{UserID: "unrecognised", Image: strings.NewReader("x")})
	if err == nil {
		t.Fatalf("expected unsuccessful scan to error")
	}
}

func TestValuationClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/creature/c 1/sell" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "value": 42.5, "warning": "sold at a loss"})
	}))
	defer srv.Close()

	v, err := NewValuationClient(NewClient(srv.URL, time.Second)).Value(context.Background(), "c 1")
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if !v.Success || v.Value != 42.5 || v.Warning != "sold at a loss" {
		t.Fatalf("unexpected valuation: %+v", v)
	}
}

func TestFixedValuer(t *testing.T) {
	store := game.NewStore(game.SeedState(time.Now()), nil)
	v := FixedValuer{Store: store}

	got, err := v.Value(context.Background(), "2")
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if !got.Success || got.Value != 120 {
		t.Fatalf("unexpected valuation for level 12: %+v", got)
	}
	got, _ = v.Value(context.Background(), "missing")
	if got.Success {
		t.Fatalf("missing creature should not value")
	}
}

func TestMockScanner(t *testing.T) {
	m := NewMockScanner(0, 0)
	d, err := m.Scan(context.Background(), game.ScanRequest{})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if d.Archetype != game.Sprinter || d.Name != "Flash" || d.Sector != "Market DNA" {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	found := false
	for _, b := range MockBrands {
		if b == d.Brand {
			found = true
		}
	}
	if !found {
		t.Fatalf("brand %q not in mock list", d.Brand)
	}

	slow := NewMockScanner(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := slow.Scan(ctx, game.ScanRequest{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestSessionFactoryOffline(t *testing.T) {
	factory := SessionFactory(Options{PerLevel: 2, Storm: game.DefaultStormConfig()}, nil)
	sess := factory("offline", game.SeedState(time.Now()))

	c, err := sess.Scan(context.Background(), game.ScanRequest{})
	if err != nil {
		t.Fatalf("mock scan: %v", err)
	}
	if c.Archetype != game.Sprinter || c.Health != game.MaxHealth {
		t.Fatalf("unexpected creature: %+v", c)
	}

	before := sess.Store().Coins()
	res, err := sess.Sell(context.Background(), "2")
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	// level 12 * 2 per level = 24 value, credited x10
	if res.Credited != 240 || res.Coins != before+240 {
		t.Fatalf("unexpected sell result: %+v", res)
	}
}

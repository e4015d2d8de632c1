package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadAPIDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "WEALTHLINGS_API_ADDR", "STORM_POLL_EVERY", "STORM_THRESHOLD", "STORM_DWELL", "INCOME_EVERY", "INCOME_AMOUNT", "BACKEND_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	sc := cfg.StormConfig()
	if sc.PollEvery != 20*time.Second || sc.Threshold != 0.7 || sc.Dwell != 12*time.Second {
		t.Fatalf("unexpected storm config: %+v", sc)
	}
	if sc.IncomeEvery != time.Minute || sc.IncomeAmount != 10 {
		t.Fatalf("unexpected income config: %+v", sc)
	}
	if cfg.BackendTimeout != 20*time.Second {
		t.Fatalf("backend timeout = %v", cfg.BackendTimeout)
	}
}

func TestLoadAPIOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BACKEND_URL", " http://scan.local/ ")
	t.Setenv("STORM_THRESHOLD", "0.9")
	t.Setenv("STORM_DWELL", "3s")
	cfg, err := LoadAPIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("PORT should win, got %q", cfg.Addr)
	}
	if cfg.BackendURL != "http://scan.local" {
		t.Fatalf("backend url = %q", cfg.BackendURL)
	}
	if cfg.StormThreshold != 0.9 || cfg.StormDwell != 3*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg.GameConfig)
	}
}

func TestLoadAPIRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"STORM_THRESHOLD":  "1.5",
		"STORM_DWELL":      "0s",
		"STORM_POLL_EVERY": "banana",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := LoadAPIFromEnv(); err == nil {
				t.Fatalf("expected %s=%s to be rejected", key, val)
			}
		})
	}
}

func TestLoadCLIDefaultsSaveFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("WL_SAVE_FILE", "")
	t.Setenv("WL_API_BASE_URL", "http://api.local/")
	cfg, err := LoadCLIFromEnv()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "http://api.local" {
		t.Fatalf("api base = %q", cfg.APIBaseURL)
	}
	if cfg.SaveFile != filepath.Join(home, ".wealthlings", "save.db") {
		t.Fatalf("save file = %q", cfg.SaveFile)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("WL_DOTENV_PROBE=from-file\nWL_DOTENV_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("WL_DOTENV_KEEP", "from-env")
	t.Setenv("WL_DOTENV_PROBE", "")
	os.Unsetenv("WL_DOTENV_PROBE")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("WL_DOTENV_PROBE"); got != "from-file" {
		t.Fatalf("probe = %q", got)
	}
	if got := os.Getenv("WL_DOTENV_KEEP"); !strings.EqualFold(got, "from-env") {
		t.Fatalf("existing env overridden: %q", got)
	}
}

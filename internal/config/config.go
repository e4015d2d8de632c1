package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"wealthlings/internal/game"
)

// GameConfig holds the tunables shared by the server and local play.
type GameConfig struct {
	StormPollEvery    time.Duration `env:"STORM_POLL_EVERY" envDefault:"20s"`
	StormThreshold    float64       `env:"STORM_THRESHOLD" envDefault:"0.7"`
	StormDwell        time.Duration `env:"STORM_DWELL" envDefault:"12s"`
	IncomeEvery       time.Duration `env:"INCOME_EVERY" envDefault:"60s"`
	IncomeAmount      int64         `env:"INCOME_AMOUNT" envDefault:"10"`
	BackendURL        string        `env:"BACKEND_URL"`
	BackendTimeout    time.Duration `env:"BACKEND_TIMEOUT" envDefault:"20s"`
	MockScanDelay     time.Duration `env:"MOCK_SCAN_DELAY" envDefault:"1500ms"`
	SellValuePerLevel float64       `env:"SELL_VALUE_PER_LEVEL" envDefault:"10"`
}

type APIConfig struct {
	Port          string        `env:"PORT"`
	Addr          string        `env:"WEALTHLINGS_API_ADDR" envDefault:":8080"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	AutosaveEvery time.Duration `env:"AUTOSAVE_EVERY" envDefault:"1m"`
	GameConfig
}

type CLIConfig struct {
	APIBaseURL string `env:"WL_API_BASE_URL" envDefault:"http://localhost:8080"`
	SaveFile   string `env:"WL_SAVE_FILE"`
	GameConfig
}

// LoadDotEnv reads .env files into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func LoadAPIFromEnv() (APIConfig, error) {
	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if port := strings.TrimSpace(cfg.Port); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Addr = port
	}
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	if cfg.AutosaveEvery < 0 {
		return cfg, fmt.Errorf("AUTOSAVE_EVERY must not be negative")
	}
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	if err := cfg.GameConfig.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func LoadCLIFromEnv() (CLIConfig, error) {
	var cfg CLIConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	if strings.TrimSpace(cfg.SaveFile) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.SaveFile = filepath.Join(home, ".wealthlings", "save.db")
	}
	if err := cfg.GameConfig.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c GameConfig) validate() error {
	if c.StormThreshold < 0 || c.StormThreshold > 1 {
		return fmt.Errorf("STORM_THRESHOLD must be within [0,1], got %v", c.StormThreshold)
	}
	if c.StormPollEvery <= 0 {
		return fmt.Errorf("STORM_POLL_EVERY must be positive")
	}
	if c.StormDwell <= 0 {
		return fmt.Errorf("STORM_DWELL must be positive")
	}
	if c.IncomeEvery < 0 || c.IncomeAmount < 0 {
		return fmt.Errorf("INCOME_EVERY and INCOME_AMOUNT must not be negative")
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	return nil
}

// StormConfig converts the env tunables into the scheduler's config.
// INCOME_EVERY=0 turns passive income off.
func (c GameConfig) StormConfig() game.StormConfig {
	return game.StormConfig{
		PollEvery:    c.StormPollEvery,
		Threshold:    c.StormThreshold,
		Dwell:        c.StormDwell,
		IncomeEvery:  c.IncomeEvery,
		IncomeAmount: c.IncomeAmount,
	}
}

package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendSQLite = "sqlite"
	BackendSheet  = "sheet"
)

type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	// HistoryBackend selects the storage variant at process start. There is
	// no ambient global: the chosen store is passed into the memory manager.
	HistoryBackend string `env:"HISTORY_BACKEND" default:"sqlite"`
	SQLitePath     string `env:"SQLITE_PATH" default:"empath.db"`
	SheetID        string `env:"SHEET_ID"`
	SheetAPIURL    string `env:"SHEET_API_URL"`

	// RedisURL enables the read-through recent-history cache when set.
	RedisURL       string        `env:"REDIS_URL"`
	RecentCacheTTL time.Duration `env:"RECENT_CACHE_TTL" default:"10s"`

	EmotionModelURL   string        `env:"EMOTION_MODEL_URL"`
	SentimentModelURL string        `env:"SENTIMENT_MODEL_URL"`
	ClassifyTimeout   time.Duration `env:"CLASSIFY_TIMEOUT" default:"10s"`

	StoreTimeout        time.Duration `env:"STORE_TIMEOUT" default:"5s"`
	StoreMaxAttempts    int           `env:"STORE_MAX_ATTEMPTS" default:"4"`
	StoreInitialBackoff time.Duration `env:"STORE_INITIAL_BACKOFF" default:"250ms"`
	StoreMaxBackoff     time.Duration `env:"STORE_MAX_BACKOFF" default:"5s"`

	FallbackBufferSize int `env:"FALLBACK_BUFFER_SIZE" default:"100"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.HistoryBackend {
	case BackendSQLite:
		if cfg.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendSheet:
		if cfg.SheetID == "" {
			return fmt.Errorf("SHEET_ID is required for the sheet backend")
		}
		if cfg.SheetAPIURL == "" {
			return fmt.Errorf("SHEET_API_URL is required for the sheet backend")
		}
	default:
		return fmt.Errorf("HISTORY_BACKEND must be %q or %q, got %q", BackendSQLite, BackendSheet, cfg.HistoryBackend)
	}

	if cfg.StoreMaxAttempts < 1 {
		return fmt.Errorf("STORE_MAX_ATTEMPTS must be at least 1, got %d", cfg.StoreMaxAttempts)
	}
	if cfg.StoreInitialBackoff <= 0 || cfg.StoreMaxBackoff < cfg.StoreInitialBackoff {
		return fmt.Errorf("store backoff range invalid: initial=%s max=%s", cfg.StoreInitialBackoff, cfg.StoreMaxBackoff)
	}
	if cfg.FallbackBufferSize < 1 {
		return fmt.Errorf("FALLBACK_BUFFER_SIZE must be at least 1, got %d", cfg.FallbackBufferSize)
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL      string
	ServerAddr       string
	MarketplaceURL   string
	MarketplaceToken string
	PushWSURL        string
	SyncInterval     time.Duration
	SyncDebounce     time.Duration
	DedupWindow      time.Duration
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "deal_hub")
		pass := getenv("POSTGRES_PASSWORD", "deal_hub_pass")
		db := getenv("POSTGRES_DB", "deal_hub")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}
	marketplaceURL := os.Getenv("MARKETPLACE_BASE_URL")
	if marketplaceURL == "" {
		return nil, fmt.Errorf("MARKETPLACE_BASE_URL is required")
	}

	return &Config{
		DatabaseURL:      dsn,
		ServerAddr:       getenv("SERVER_ADDR", "0.0.0.0:8080"),
		MarketplaceURL:   marketplaceURL,
		MarketplaceToken: os.Getenv("MARKETPLACE_TOKEN"),
		PushWSURL:        os.Getenv("PUSH_WS_URL"),
		SyncInterval:     parseDuration(getenv("SYNC_INTERVAL", "60s"), 60*time.Second),
		SyncDebounce:     parseDuration(getenv("SYNC_DEBOUNCE", "2s"), 2*time.Second),
		DedupWindow:      parseDuration(getenv("DEDUP_WINDOW", "15s"), 15*time.Second),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

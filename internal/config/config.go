// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the SQLite databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool
	Feed     FeedConfig

	// StablecoinSymbol is the asset that absorbs sell proceeds and funds buys
	// when settlement is requested.
	StablecoinSymbol string

	// Cron expressions for background jobs. Empty disables the job.
	PreloadSchedule string
	CatalogSchedule string
}

// FeedConfig holds market-data index (CoinGecko) settings
type FeedConfig struct {
	BaseURL           string
	APIKey            string
	QuoteCurrency     string
	PreloadPages      int
	RequestsPerMinute int
	Timeout           time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("CRYPTOFOLIO_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		Feed: FeedConfig{
			BaseURL:           strings.TrimRight(getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"), "/"),
			APIKey:            getEnv("COINGECKO_API_KEY", ""),
			QuoteCurrency:     strings.ToLower(getEnv("QUOTE_CURRENCY", "usd")),
			PreloadPages:      getEnvAsInt("PRELOAD_PAGES", 4),
			RequestsPerMinute: getEnvAsInt("FEED_REQUESTS_PER_MINUTE", 30),
			Timeout:           time.Duration(getEnvAsInt("FEED_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		StablecoinSymbol: strings.ToLower(getEnv("STABLECOIN_SYMBOL", "usdc")),
		PreloadSchedule:  getEnv("PRELOAD_SCHEDULE", "@every 10m"),
		CatalogSchedule:  getEnv("CATALOG_SCHEDULE", "@daily"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed base URL is required")
	}
	if c.Feed.QuoteCurrency == "" {
		return fmt.Errorf("quote currency is required")
	}
	if c.Feed.PreloadPages < 1 {
		return fmt.Errorf("preload pages must be at least 1, got %d", c.Feed.PreloadPages)
	}
	if c.Feed.RequestsPerMinute < 1 {
		return fmt.Errorf("feed requests per minute must be at least 1, got %d", c.Feed.RequestsPerMinute)
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed timeout must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CRYPTOFOLIO_DATA_DIR", filepath.Join(dir, "data"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.DirExists(t, cfg.DataDir)
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.Feed.BaseURL)
	assert.Equal(t, "usd", cfg.Feed.QuoteCurrency)
	assert.Equal(t, 4, cfg.Feed.PreloadPages)
	assert.Equal(t, 30, cfg.Feed.RequestsPerMinute)
	assert.Equal(t, 15*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, "usdc", cfg.StablecoinSymbol)
	assert.Equal(t, "@every 10m", cfg.PreloadSchedule)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CRYPTOFOLIO_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "9100")
	t.Setenv("QUOTE_CURRENCY", "EUR")
	t.Setenv("STABLECOIN_SYMBOL", "USDT")
	t.Setenv("COINGECKO_BASE_URL", "http://localhost:1234/api/")
	t.Setenv("PRELOAD_PAGES", "2")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "eur", cfg.Feed.QuoteCurrency)
	assert.Equal(t, "usdt", cfg.StablecoinSymbol)
	assert.Equal(t, "http://localhost:1234/api", cfg.Feed.BaseURL)
	assert.Equal(t, 2, cfg.Feed.PreloadPages)
	assert.True(t, cfg.DevMode)
}

func TestLoad_InvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("CRYPTOFOLIO_DATA_DIR", t.TempDir())
	t.Setenv("GO_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.Port)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port: 8001,
			Feed: FeedConfig{
				BaseURL:           "https://example.com",
				QuoteCurrency:     "usd",
				PreloadPages:      4,
				RequestsPerMinute: 30,
				Timeout:           time.Second,
			},
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Feed.PreloadPages = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Feed.RequestsPerMinute = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Feed.QuoteCurrency = ""
	assert.Error(t, cfg.Validate())
}

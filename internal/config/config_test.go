package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WHALE_QUANTILE", "")
	t.Setenv("MAX_RETRIES", "")
	t.Setenv("CONTRACT_ADDRESS", "")

	cfg := Load()

	assert.Equal(t, CryptoPunksContract, cfg.ContractAddress)
	assert.Equal(t, 0.9, cfg.WhaleQuantile)
	assert.Equal(t, 50, cfg.AnomalyWindow)
	assert.Equal(t, 3.0, cfg.AnomalySigma)
	assert.Equal(t, 3, cfg.MaxRetries)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WHALE_QUANTILE", "0.95")
	t.Setenv("ANOMALY_WINDOW", "20")
	t.Setenv("PRICE_CACHE_TTL", "90s")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := Load()

	assert.Equal(t, 0.95, cfg.WhaleQuantile)
	assert.Equal(t, 20, cfg.AnomalyWindow)
	assert.Equal(t, 90*time.Second, cfg.PriceCacheTTL)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 3, cfg.MaxRetries, "unparseable values fall back to the default")

	params := cfg.AnalysisParams()
	assert.Equal(t, 0.95, params.WhaleQuantile)
	assert.Equal(t, 20, params.AnomalyWindow)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad contract", func(c *Config) { c.ContractAddress = "punks" }},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"quantile out of range", func(c *Config) { c.WhaleQuantile = 2 }},
		{"zero rate limit", func(c *Config) { c.EtherscanRateLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_NaNAnalysisParams(t *testing.T) {
	t.Setenv("WHALE_QUANTILE", "NaN")
	assert.Error(t, Load().Validate())

	t.Setenv("WHALE_QUANTILE", "")
	t.Setenv("ANOMALY_SIGMA", "NaN")
	assert.Error(t, Load().Validate())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CRYPTOPUNKS_TEST_KEY=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("CRYPTOPUNKS_TEST_KEY") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-file", os.Getenv("CRYPTOPUNKS_TEST_KEY"))

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env")))
}

func TestNewLogger_Level(t *testing.T) {
	cfg := Load()
	cfg.LogLevel = "debug"

	logger := cfg.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cryptopunks-analysis/internal/analytics"
)

// CryptoPunksContract is the CryptoPunks token contract on Ethereum mainnet.
const CryptoPunksContract = "0xb47e3cd837dDF8e4c57F05d70Ab865de6e193BBB"

type Config struct {
	// Etherscan
	EtherscanAPIKey    string
	EtherscanBaseURL   string
	EtherscanRateLimit float64 // requests per second
	ContractAddress    string

	// CoinGecko
	CoinGeckoAPIKey  string
	CoinGeckoBaseURL string
	PriceCoin        string
	PriceCurrency    string

	// Data directories
	RawDataDir       string
	ProcessedDataDir string

	// Storage
	PostgresDSN   string
	ClickHouseDSN string

	// Redis
	RedisAddr     string
	PriceCacheTTL time.Duration

	// API
	APIAddr string
	APIKey  string
	DevMode bool

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Analysis
	WhaleQuantile float64
	AnomalyWindow int
	AnomalySigma  float64

	LogLevel string
}

// LoadEnv loads variables from path (or ./.env when empty) without
// overriding variables already set. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads Config from the environment.
func Load() *Config {
	defaults := analytics.DefaultParams()

	return &Config{
		// Etherscan
		EtherscanAPIKey:    getEnv("ETHERSCAN_API_KEY", ""),
		EtherscanBaseURL:   getEnv("ETHERSCAN_BASE_URL", "https://api.etherscan.io/api"),
		EtherscanRateLimit: getFloatEnv("ETHERSCAN_RATE_LIMIT", 5),
		ContractAddress:    getEnv("CONTRACT_ADDRESS", CryptoPunksContract),

		// CoinGecko
		CoinGeckoAPIKey:  getEnv("COINGECKO_API_KEY", ""),
		CoinGeckoBaseURL: getEnv("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		PriceCoin:        getEnv("PRICE_COIN", "ethereum"),
		PriceCurrency:    getEnv("PRICE_CURRENCY", "usd"),

		// Data
		RawDataDir:       getEnv("RAW_DATA_DIR", "data/raw"),
		ProcessedDataDir: getEnv("PROCESSED_DATA_DIR", "data/processed"),

		// Storage
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		ClickHouseDSN: getEnv("CLICKHOUSE_DSN", ""),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		PriceCacheTTL: getDurationEnv("PRICE_CACHE_TTL", 5*time.Minute),

		// API
		APIAddr: getEnv("API_ADDR", ":8080"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 500*time.Millisecond),

		// Analysis
		WhaleQuantile: getFloatEnv("WHALE_QUANTILE", defaults.WhaleQuantile),
		AnomalyWindow: getIntEnv("ANOMALY_WINDOW", defaults.AnomalyWindow),
		AnomalySigma:  getFloatEnv("ANOMALY_SIGMA", defaults.AnomalySigma),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// AnalysisParams returns analytics parameters with the configured thresholds.
func (c *Config) AnalysisParams() analytics.Params {
	p := analytics.DefaultParams()
	p.WhaleQuantile = c.WhaleQuantile
	p.AnomalyWindow = c.AnomalyWindow
	p.AnomalySigma = c.AnomalySigma
	return p
}

// Validate checks settings that every command depends on.
// Command-specific requirements (API keys, DSNs) are checked by the command.
func (c *Config) Validate() error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0")
	}
	if c.EtherscanRateLimit <= 0 {
		return fmt.Errorf("ETHERSCAN_RATE_LIMIT must be positive")
	}
	if !strings.HasPrefix(c.ContractAddress, "0x") || len(c.ContractAddress) != 42 {
		return fmt.Errorf("CONTRACT_ADDRESS must be a 0x-prefixed 20-byte hex address")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if err := c.AnalysisParams().Validate(); err != nil {
		return fmt.Errorf("analysis params: %w", err)
	}
	return nil
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the ledger database (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Price feed endpoint delivering asset_id -> price maps
	PriceFeedURL string

	// Exchange client settings
	ExchangeBaseURL string
	ExchangeAPIKey  string

	// EnableTrading is the safety switch: when false the exchange client
	// refuses to place orders.
	EnableTrading bool

	// PaperFeeRate is the simulated fee rate applied by the paper
	// exchange client, as a decimal fraction of notional.
	PaperFeeRate string

	// Scheduler cron expressions (robfig/cron format)
	PriceRefreshSchedule string
	StrategySchedule     string

	// Default portfolio bootstrapped at startup
	PortfolioName     string
	PortfolioExchange string
	PortfolioCurrency string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("COSTBOOK_DATA_DIR", "./data")

	// Always resolve to absolute path and ensure it exists
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("COSTBOOK_PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		PriceFeedURL:    getEnv("PRICE_FEED_URL", "http://localhost:9100"),
		ExchangeBaseURL: getEnv("EXCHANGE_BASE_URL", "http://localhost:9200"),
		ExchangeAPIKey:  getEnv("EXCHANGE_API_KEY", ""),
		EnableTrading:   getEnvAsBool("ENABLE_TRADING", false),
		PaperFeeRate:    getEnv("PAPER_FEE_RATE", "0"),

		PriceRefreshSchedule: getEnv("PRICE_REFRESH_SCHEDULE", "@every 1m"),
		StrategySchedule:     getEnv("STRATEGY_SCHEDULE", "@every 5m"),

		PortfolioName:     getEnv("PORTFOLIO_NAME", "main"),
		PortfolioExchange: getEnv("PORTFOLIO_EXCHANGE", "paper"),
		PortfolioCurrency: getEnv("PORTFOLIO_CURRENCY", "USD"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath returns the ledger database location inside the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PortfolioName == "" {
		return fmt.Errorf("portfolio name must not be empty")
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

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("COSTBOOK_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.False(t, cfg.EnableTrading)
	assert.Equal(t, "main", cfg.PortfolioName)
	assert.Equal(t, "paper", cfg.PortfolioExchange)
	assert.Equal(t, "USD", cfg.PortfolioCurrency)
	assert.Equal(t, "@every 1m", cfg.PriceRefreshSchedule)
	assert.Equal(t, "@every 5m", cfg.StrategySchedule)
	assert.Equal(t, "0", cfg.PaperFeeRate)
}

func TestLoad_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("COSTBOOK_DATA_DIR", dir)
	t.Setenv("COSTBOOK_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("ENABLE_TRADING", "true")
	t.Setenv("PORTFOLIO_NAME", "research")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.True(t, cfg.EnableTrading)
	assert.Equal(t, "research", cfg.PortfolioName)
	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("COSTBOOK_DATA_DIR", t.TempDir())
	t.Setenv("COSTBOOK_PORT", "not-a-number")
	t.Setenv("DEV_MODE", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.DevMode)
}

func TestDatabasePath(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{DataDir: dir}

	assert.Equal(t, filepath.Join(dir, "ledger.db"), cfg.DatabasePath())
}

func TestValidate(t *testing.T) {
	cfg := &Config{Port: 8080, PortfolioName: "main"}
	assert.NoError(t, cfg.Validate())

	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Port = 8080
	cfg.PortfolioName = ""
	assert.Error(t, cfg.Validate())
}

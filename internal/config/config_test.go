package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"TRADING_PAIRS", "DRY_RUN", "KRAKEN_API_KEY", "KRAKEN_API_SECRET",
		"MAX_TOTAL_EXPOSURE", "CONFIRMATIONS_REQUIRED", "OHLC_INTERVAL",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("TRADING_PAIRS", "BTC/USD,ETH/USD")
	defer os.Unsetenv("TRADING_PAIRS")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, cfg.TradingPairs)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 5*time.Minute, cfg.OHLCInterval)
	assert.Equal(t, 3, cfg.ConfirmationsRequired)
}

func TestLoad_MissingTradingPairs(t *testing.T) {
	clearEnv(t)

	_, err := config.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestLoad_LiveModeRequiresCredentials(t *testing.T) {
	clearEnv(t)
	os.Setenv("TRADING_PAIRS", "BTC/USD")
	os.Setenv("DRY_RUN", "false")
	defer os.Unsetenv("TRADING_PAIRS")
	defer os.Unsetenv("DRY_RUN")

	_, err := config.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestLoad_InvalidExposureRejected(t *testing.T) {
	clearEnv(t)
	os.Setenv("TRADING_PAIRS", "BTC/USD")
	os.Setenv("MAX_TOTAL_EXPOSURE", "150")
	defer os.Unsetenv("TRADING_PAIRS")
	defer os.Unsetenv("MAX_TOTAL_EXPOSURE")

	_, err := config.Load()
	require.Error(t, err)
}

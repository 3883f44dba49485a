package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoForecast/internal/recorder"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CONFIG_PATH", "SYMBOL", "MARKET", "ALPHAVANTAGE_API_KEY", "HTTPS_PROXY",
		"REDIS_ADDR", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "SQLITE_PATH", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_FileAndFlags(t *testing.T) {
	clearEnv(t)
	path := filepath.Join("..", "..", "internal", "config", "testdata", "config.yaml")

	cfg, err := loadConfig(options{configPath: path})
	require.NoError(t, err)
	assert.Equal(t, "ETH", cfg.Pipeline.Symbol)
	assert.Equal(t, "csv", cfg.DataSource.Provider)

	cfg, err = loadConfig(options{configPath: path, symbol: "SOL", model: "linear", provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "SOL", cfg.Pipeline.Symbol)
	assert.Equal(t, "linear", cfg.Pipeline.ModelType)
	assert.Equal(t, "mock", cfg.DataSource.Provider)

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("pipeline: [unclosed"), 0o644))
	_, err = loadConfig(options{configPath: broken})
	assert.ErrorContains(t, err, "load config")
}

func TestNewFetcher_WithoutCache(t *testing.T) {
	clearEnv(t)
	path := filepath.Join("..", "..", "internal", "config", "testdata", "config.yaml")
	cfg, err := loadConfig(options{configPath: path, provider: "mock"})
	require.NoError(t, err)
	cfg.Cache.Addr = ""

	f, closer := newFetcher(context.Background(), cfg, zerolog.Nop())
	assert.Equal(t, "mock", f.Name())
	assert.Nil(t, closer)

	cfg.DataSource.Provider = "yahoo"
	f, _ = newFetcher(context.Background(), cfg, zerolog.Nop())
	assert.Equal(t, "yahoo", f.Name())
}

func TestRunOnce_MockProvider(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yaml := "pipeline:\n  symbol: BTC\n  forecast_months: 4\n" +
		"data_source:\n  provider: mock\n" +
		"output:\n  dir: " + filepath.Join(dir, "out") + "\n" +
		"database:\n  sqlite_path: " + filepath.Join(dir, "runs.db") + "\n" +
		"log:\n  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	var out bytes.Buffer
	require.NoError(t, runOnce(context.Background(), options{configPath: path}, &out))
	assert.Contains(t, out.String(), "BTC/USD")
	assert.Contains(t, out.String(), "LinearRegression")

	_, err := os.Stat(filepath.Join(dir, "out", "btc_monthly_forecast.csv"))
	assert.NoError(t, err)

	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	defer rec.Close()
	last, err := rec.LastRun("BTC")
	require.NoError(t, err)
	assert.Equal(t, 4, last.ForecastPoints)
}

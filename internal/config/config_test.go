package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"miim/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	configPathEnv, apiKeyEnv, modelEnv, endpointEnv, maxRetriesEnv,
	portEnv, ginModeEnv, workerEnabledEnv, workerIntervalEnv, batchSizeEnv,
	"DB_DRIVER", "DB_HOST", "DB_PATH",
}

func clearEnv(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "miim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, services.DefaultThresholds(), cfg.Thresholds)
	assert.Equal(t, 50, cfg.Pipeline.BatchSize)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 2, cfg.LLM.MaxRetries)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Worker.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Scraper.RateLimit)
	assert.False(t, cfg.Quality.Commit)
	assert.NotEmpty(t, cfg.Scraper.Sources)
	assert.InDelta(t, 2.50, cfg.Pricing.InputPerMillion, 1e-9)

	ec := cfg.ExtractionConfig()
	assert.Equal(t, 3, ec.Retry.MaxAttempts)
	assert.NotNil(t, ec.Retry.Retryable)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(configPathEnv, writeConfig(t, `
database:
  driver: sqlite
  path: /tmp/miim-test.db
llm:
  model: gpt-4o-mini
  max_retries: 4
pricing:
  input_per_million: 0.15
  output_per_million: 0.60
thresholds:
  auto_approve: 0.9
  review_queue: 0.7
  discard: 0.1
worker:
  enabled: true
  interval: 30m
scraper:
  rate_limit: 1s
  sources:
    - name: Leseco
      listing_urls: [https://leseco.ma/business]
      link_pattern: /article/
`))
	t.Setenv(modelEnv, "gpt-4.1")
	t.Setenv(portEnv, "9090")
	t.Setenv(batchSizeEnv, "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/miim-test.db", cfg.Database.Path)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model, "environment wins over the file")
	assert.Equal(t, 4, cfg.LLM.MaxRetries)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.LLM.Endpoint)
	assert.InDelta(t, 0.60, cfg.Pricing.OutputPerMillion, 1e-9)
	assert.Equal(t, services.Thresholds{AutoApprove: 0.9, ReviewQueue: 0.7, Discard: 0.1}, cfg.Thresholds)
	assert.True(t, cfg.Worker.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Worker.Interval)
	assert.Equal(t, time.Second, cfg.Scraper.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.Scraper.Timeout)
	require.Len(t, cfg.Scraper.Sources, 1)
	assert.Equal(t, "/article/", cfg.Scraper.Sources[0].LinkPattern)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Pipeline.BatchSize)

	pc := cfg.PipelineServiceConfig()
	assert.Equal(t, 10, pc.BatchSize)
	assert.InDelta(t, 0.15, pc.Pricing.InputPerMillion, 1e-9)
	assert.Equal(t, 5, cfg.ExtractionConfig().Retry.MaxAttempts)
}

func TestLoad_InvalidThresholds(t *testing.T) {
	clearEnv(t)
	t.Setenv(configPathEnv, writeConfig(t, `
thresholds:
  auto_approve: 0.6
  review_queue: 0.7
  discard: 0.0
`))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BadFiles(t *testing.T) {
	clearEnv(t)

	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	cfg, err := Load()
	require.NoError(t, err, "an unreadable file falls back to defaults")
	assert.Equal(t, 50, cfg.Pipeline.BatchSize)

	t.Setenv(configPathEnv, writeConfig(t, "thresholds: [not, a, map"))
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_EnvValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv(workerIntervalEnv, "soon")
	t.Setenv(workerEnabledEnv, "true")
	t.Setenv(maxRetriesEnv, "0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Worker.Enabled)
	assert.Equal(t, time.Hour, cfg.Worker.Interval, "unparseable interval is ignored")
	assert.Equal(t, 1, cfg.ExtractionConfig().Retry.MaxAttempts)

	t.Setenv(batchSizeEnv, "-1")
	_, err = Load()
	assert.Error(t, err)
}

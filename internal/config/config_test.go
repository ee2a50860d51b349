package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Runtime.MaxConcurrentExtractions)
	assert.Equal(t, 3, cfg.Runtime.MaxConcurrentBatches)
	assert.Equal(t, int64(10), cfg.RateLimit.Search.Capacity)
	assert.Equal(t, int64(20), cfg.RateLimit.Crawl.Capacity)
	assert.Equal(t, int64(5), cfg.RateLimit.Extraction.Capacity)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.Retry.Jitter)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 30, cfg.Breaker.RecoveryTimeoutS)
	assert.True(t, cfg.Cache.Enable)
	assert.Equal(t, 24, cfg.Cache.CompanyTTLH)
	assert.Equal(t, 6, cfg.Cache.SERPTTLH)
	assert.Equal(t, 2048, cfg.Governor.MemCapMB)
	assert.Equal(t, 30, cfg.Governor.SampleIntervalS)
	assert.Equal(t, 1, cfg.Politeness.MinHostDelayS)
	assert.True(t, cfg.Politeness.EnableRobots)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://api.firecrawl.dev/v2", cfg.Firecrawl.BaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
runtime:
  max_concurrent_extractions: 4
log:
  level: debug
  format: console
cache:
  enable: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Runtime.MaxConcurrentExtractions)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.False(t, cfg.Cache.Enable)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Runtime.MaxConcurrentBatches)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("INTEL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("INTEL_RUNTIME_MAX_CONCURRENT_EXTRACTIONS", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Runtime.MaxConcurrentExtractions)
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Runtime.MaxConcurrentExtractions = 10
	cfg.Runtime.MaxConcurrentBatches = 3
	cfg.Breaker.FailureThreshold = 5
	cfg.Breaker.SuccessThreshold = 2
	cfg.Retry.MaxAttempts = 3
	cfg.Politeness.MinHostDelayS = 1
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_MissingFields(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent_extractions must be >= 1")
	assert.Contains(t, err.Error(), "max_concurrent_batches must be >= 1")
	assert.Contains(t, err.Error(), "breaker.failure_threshold must be >= 1")
	assert.Contains(t, err.Error(), "retry.max_attempts must be >= 1")
}

func TestValidate_NegativeHostDelay(t *testing.T) {
	cfg := validConfig()
	cfg.Politeness.MinHostDelayS = -1
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "min_host_delay_s must be >= 0")
}

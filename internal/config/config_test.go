package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Quota.FreeViewLimit)
	assert.Equal(t, 20, cfg.Enrich.DailyBatchSize)
	assert.Equal(t, 10, cfg.Enrich.ImportBatchSize)
	assert.Equal(t, 24, cfg.Enrich.IntervalHours)
	assert.Equal(t, 500*time.Millisecond, cfg.Enrich.Pause())
	assert.Equal(t, 5*time.Minute, cfg.Enrich.RunBudget())
	assert.Equal(t, 30*time.Second, cfg.Enrich.Timeout())
	assert.Equal(t, []string{"cache", "reader", "searchapi", "llm"}, cfg.Search.Order)
	assert.Equal(t, 24, cfg.Search.CacheTTLHours)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
  database_url: hub.db
quota:
  free_view_limit: 5
enrich:
  daily_batch_size: 50
  pause_ms: 100
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "hub.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 5, cfg.Quota.FreeViewLimit)
	assert.Equal(t, 50, cfg.Enrich.DailyBatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Enrich.Pause())
	// Untouched keys keep their defaults.
	assert.Equal(t, 10, cfg.Enrich.ImportBatchSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}

func TestInitLogger_Console(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}

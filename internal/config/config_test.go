package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  env: prod\n"))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":8086", cfg.App.HTTPAddr)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 10, cfg.Feed.TimeoutSeconds)
	assert.Equal(t, "configs/advisory.yaml", cfg.Advisory.ProfilesPath)
	assert.True(t, cfg.Monitor.Enabled)
	assert.Equal(t, 30, cfg.Monitor.IntervalMinutes)
	assert.False(t, cfg.Oracle.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	body := `
app:
  log_level: debug
feed:
  base_url: http://feed.local
  timeout_seconds: 3
cache:
  backend: redis
  redis:
    addr: redis:6379
    db: 2
oracle:
  enabled: true
  model: gpt-4o-mini
  api_key: sk-test
monitor:
  enabled: false
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "http://feed.local", cfg.Feed.BaseURL)
	assert.Equal(t, 3, cfg.Feed.TimeoutSeconds)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.True(t, cfg.Oracle.Enabled)
	assert.Equal(t, 60, cfg.Oracle.TimeoutSeconds)
	// Explicitly set false must survive the defaulting pass.
	assert.False(t, cfg.Monitor.Enabled)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "app:\n  log_level: noisy\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "cache:\n  backend: memcached\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "cache:\n  backend: redis\n  redis:\n    addr: \"\"\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "oracle:\n  enabled: true\n"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

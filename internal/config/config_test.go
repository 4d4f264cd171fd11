package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
mode: development
term: "2024-92"

websoc:
  base_url: "http://localhost:9999/perl/WebSoc"
  timeout_seconds: 3
  safe_window: 500
  max_concurrent: 4
  user_agents:
    - "agent-a"
    - "agent-b"

polling:
  interval_seconds: 30
  jitter_seconds: 5
  idle_backoff_seconds: 90
  error_backoff_seconds: 600

storage:
  type: postgres
  database_url: "postgres://watch@localhost/watch?sslmode=disable"

notify:
  dispatch: true
  sms:
    enabled: true
    sender_id: "AntAlmanac"
  email:
    enabled: true
    from_email: "notify@antalmanac.com"

alerts:
  numbers: ["9495550001"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeDevelopment, cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "2024-92", cfg.Term)

	assert.Equal(t, "http://localhost:9999/perl/WebSoc", cfg.WebSoc.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.WebSoc.Timeout())
	assert.Equal(t, 500, cfg.WebSoc.SafeWindow)
	assert.Equal(t, 4, cfg.WebSoc.MaxConcurrent)
	assert.Equal(t, []string{"agent-a", "agent-b"}, cfg.WebSoc.UserAgents)

	assert.Equal(t, 30*time.Second, cfg.Polling.Interval())
	assert.Equal(t, 5*time.Second, cfg.Polling.Jitter())
	assert.Equal(t, 90*time.Second, cfg.Polling.IdleBackoff())
	assert.Equal(t, 10*time.Minute, cfg.Polling.ErrorBackoff())

	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.True(t, cfg.Notify.Dispatch)
	assert.True(t, cfg.Notify.SMS.Enabled)
	assert.Equal(t, "notify@antalmanac.com", cfg.Notify.Email.FromEmail)
	assert.Equal(t, []string{"9495550001"}, cfg.Alerts.Numbers)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `term: "2024-92"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ModeProduction, cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://www.reg.uci.edu/perl/WebSoc", cfg.WebSoc.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.WebSoc.Timeout())
	assert.Equal(t, 900, cfg.WebSoc.SafeWindow)
	assert.Equal(t, 1, cfg.WebSoc.MaxConcurrent)
	assert.Equal(t, 60*time.Second, cfg.Polling.Interval())
	assert.Equal(t, "aws", cfg.Storage.Type)
	assert.Equal(t, "notifications", cfg.Storage.DynamoDBTable)
	assert.Equal(t, 24*time.Hour, cfg.Redis.CatalogTTL())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "http://tinyurl.com/api-create.php", cfg.Notify.Shortener.APIURL)
	assert.False(t, cfg.Notify.Dispatch)
	assert.Equal(t, "Dispatcher has failed. Please check logs and restart.", cfg.Alerts.Message)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	assert.Error(t, cfg.Validate(), "term is required")

	cfg.Term = "2024-92"
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Type = "postgres"
	assert.Error(t, cfg.Validate(), "postgres needs a database url")

	cfg.Storage.Type = "mongo"
	assert.Error(t, cfg.Validate())

	cfg.Storage.Type = "local"
	cfg.Mode = "staging"
	assert.Error(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, `
term: "2024-92"
redis:
  url: "redis://file:6379"
`)

	t.Setenv("WATCH_TERM", "2025-03")
	t.Setenv("REDIS_URL", "redis://env:6379/0")
	t.Setenv("WATCH_DISPATCH", "true")
	t.Setenv("ALERT_NUMBERS", "9495550001, 9495550002,")
	t.Setenv("DATABASE_URL", "postgres://env")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "2025-03", cfg.Term)
	assert.Equal(t, "redis://env:6379/0", cfg.Redis.URL)
	assert.True(t, cfg.Notify.Dispatch)
	assert.Equal(t, []string{"9495550001", "9495550002"}, cfg.Alerts.Numbers)
	assert.Equal(t, "postgres://env", cfg.Storage.DatabaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-meet-client/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "Meet Client", cfg.GetAppName())
	assert.Equal(t, 15*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, 10*time.Minute, cfg.GetRefreshInterval())
	assert.Equal(t, []int{401}, cfg.GetRejectStatuses())
	assert.Equal(t, "/login", cfg.GetLoginPath())
	assert.Empty(t, cfg.GetCacheDir())

	auth := cfg.GetServices()[config.ServiceAuth]
	assert.Equal(t, "http://localhost:8001/api/auth", auth.BaseURL)
	assert.Equal(t, "/refresh", auth.Endpoints["refresh"])
	assert.Len(t, cfg.GetServices(), 7)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
app:
  name: Meet Staging
log:
  level: debug
http:
  timeout: 3s
  origin: https://meet.example.com
session:
  refreshInterval: 5m
  rejectStatuses: [401, 419]
cache:
  dir: /tmp/meet-cache
services:
  users:
    baseUrl: https://users.example.com/api/users
    endpoints:
      profile: /me
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Meet Staging", cfg.GetAppName())
	assert.Equal(t, "debug", cfg.GetLogLevel())
	assert.Equal(t, 3*time.Second, cfg.GetRequestTimeout())
	assert.Equal(t, "https://meet.example.com", cfg.GetOrigin())
	assert.Equal(t, 5*time.Minute, cfg.GetRefreshInterval())
	assert.Equal(t, []int{401, 419}, cfg.GetRejectStatuses())
	assert.Equal(t, "/tmp/meet-cache", cfg.GetCacheDir())

	users := cfg.GetServices()[config.ServiceUsers]
	assert.Equal(t, "https://users.example.com/api/users", users.BaseURL)
	assert.Equal(t, "/me", users.Endpoints["profile"])
	assert.Equal(t, "/edit", users.Endpoints["edit"], "missing endpoints filled from defaults")
	assert.Equal(t, "http://localhost:8001/api/auth", cfg.GetServices()[config.ServiceAuth].BaseURL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "http:\n  timeout: 3s\n")
	t.Setenv("MEET_HTTP_TIMEOUT", "750ms")
	t.Setenv("MEET_SESSION_REJECT_STATUSES", "401,403")
	t.Setenv("MEET_SESSION_REFRESH_INTERVAL", "90s")
	t.Setenv("MEET_LOG_PRETTY", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.GetRequestTimeout())
	assert.Equal(t, []int{401, 403}, cfg.GetRejectStatuses())
	assert.Equal(t, 90*time.Second, cfg.GetRefreshInterval())
	assert.True(t, cfg.GetLogPretty())
}

func TestServiceURLOverrideWins(t *testing.T) {
	path := writeConfig(t, "services:\n  auth:\n    baseUrl: https://file.example.com/api/auth\n")
	t.Setenv(config.ServiceURLVar(config.ServiceAuth), "https://env.example.com/api/auth")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/api/auth", cfg.GetServices()[config.ServiceAuth].BaseURL)

	assert.Equal(t, "https://env.example.com/api/auth", config.New().GetServices()[config.ServiceAuth].BaseURL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestNegativeTimeoutDisables(t *testing.T) {
	cfg := config.Defaults()
	cfg.HTTP.Timeout = -time.Second
	cfg.Normalize()
	assert.Zero(t, cfg.GetRequestTimeout())
}

func TestGetRejectStatusesReturnsCopy(t *testing.T) {
	cfg := config.Defaults()
	statuses := cfg.GetRejectStatuses()
	statuses[0] = 500
	assert.Equal(t, []int{401}, cfg.GetRejectStatuses())
}

func TestServiceURLVar(t *testing.T) {
	assert.Equal(t, "MEET_NOTIFICATIONS_URL", config.ServiceURLVar(config.ServiceNotifications))
}

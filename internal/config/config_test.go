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
	path := filepath.Join(t.TempDir(), "app.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
apiPort: 9090
database:
  driver: postgres
  dsn: "host=localhost user=apisite dbname=apisite sslmode=disable"
redis:
  addr: redis.internal:6379
jwt:
  secret: super-secret
  sessionTTL: 30m
session:
  ttl: 12h
  sliding: false
  cookieName: sid
limits:
  window: 30s
  max: 10
origins:
  allowed:
    - https://natemarcellus.com
mail:
  host: smtp.zoho.com
  port: 465
  clientURL: https://natemarcellus.com
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "super-secret", cfg.JWT.Secret)
	assert.Equal(t, 30*time.Minute, cfg.JWT.SessionTTL)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Session.Sliding)
	assert.Equal(t, "sid", cfg.Session.CookieName)
	assert.Equal(t, 30*time.Second, cfg.Limits.Window)
	assert.Equal(t, 10, cfg.Limits.Max)
	assert.Equal(t, []string{"https://natemarcellus.com"}, cfg.Origins.Allowed)
	assert.Equal(t, 465, cfg.Mail.Port)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "apiPort: 8081\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.APIPort)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 15*time.Minute, cfg.JWT.SessionTTL)
	assert.Equal(t, 15*time.Minute, cfg.JWT.VerificationTTL)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.True(t, cfg.Session.Sliding)
	assert.True(t, cfg.Session.Secure)
	assert.Equal(t, "session_token", cfg.Session.CookieName)
	assert.Equal(t, time.Minute, cfg.Limits.Window)
	assert.Equal(t, 30, cfg.Limits.Max)
	assert.Equal(t, time.Minute, cfg.Limits.ResendCooldown)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Dependency)
}

func TestLoadConfigVerificationTTLCapped(t *testing.T) {
	path := writeConfig(t, "jwt:\n  verificationTTL: 3h\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.JWT.VerificationTTL)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	assert.Error(t, err)
}

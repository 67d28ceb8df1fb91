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
	path := filepath.Join(t.TempDir(), "aurumiq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "./data/aurumiq.db", cfg.Database.Path)
	assert.Equal(t, "./data/cache.json", cfg.Cache.Path)
	assert.Equal(t, 15*time.Second, cfg.Quotes.PollInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 9090
database:
  path: /tmp/test.db
fyers:
  client_id: ABC-100
  secret_key: topsecret
quotes:
  poll_interval: 30s
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "ABC-100", cfg.Fyers.ClientID)
	assert.Equal(t, "topsecret", cfg.Fyers.SecretKey)
	assert.Equal(t, 30*time.Second, cfg.Quotes.PollInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AURUMIQ_SERVER_PORT", "7001")
	t.Setenv("AURUMIQ_FYERS_CLIENT_ID", "ENV-200")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Server.Port, "environment beats the file")
	assert.Equal(t, "ENV-200", cfg.Fyers.ClientID)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: 0\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "quotes:\n  poll_interval: 100ms\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "database:\n  path: \"\"\n"))
	assert.Error(t, err)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

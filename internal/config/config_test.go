package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "DATABASE_URL", "BACKEND_URL", "BACKEND_TOKEN", "BACKEND_TIMEOUT", "LOG_LEVEL",
	"SESSION_IDLE", "SESSION_MAX_AGE", "TEMPLATE_CACHE_SIZE", "EVENT_BUFFER",
}

// clearEnv unsets every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "file:formstudio.db?_pragma=foreign_keys(1)", cfg.DatabaseURL)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdle)
	assert.Equal(t, 24*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 128, cfg.TemplateCacheSize)
	assert.Equal(t, 256, cfg.EventBuffer)
	assert.Equal(t, log.InfoLevel, cfg.Level())
	assert.Empty(t, cfg.BackendURL)
}

func TestLoad_EnvAndDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("BACKEND_URL=http://api.local\nPORT=9000\n"), 0o600))
	t.Setenv("PORT", "9100")
	t.Setenv("SESSION_IDLE", "5m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.local", cfg.BackendURL)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdle)
	assert.Equal(t, log.DebugLevel, cfg.Level())
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_BadValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("EVENT_BUFFER", "lots")
	_, err := Load("")
	assert.Error(t, err)
}

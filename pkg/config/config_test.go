package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/parkmcp/pkg/fetch"
)

// clearEnv unsets every variable Load reads, prefixed and not. t.Setenv
// restores the originals after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"CONFIG_FILE", "DATABASE_URL", "OPENAI_API_KEY", "SEARCH_API_KEY",
		"OVERPASS_URL", "SEARCH_URL", "SPEECH_URL", "USER_AGENT", "LOG_LEVEL",
	} {
		for _, key := range []string{name, "PARKMCP_" + name} {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/parking")
	t.Setenv("PARKMCP_SEARCH_API_KEY", "search-key")
	t.Setenv("PARKMCP_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/parking", cfg.DatabaseURL)
	assert.Equal(t, "search-key", cfg.SearchAPIKey)
	assert.Equal(t, slog.LevelDebug, cfg.ParsedLogLevel())
	assert.Equal(t, fetch.DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientTimeout)
	assert.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Warnings(), 1)
}

func TestPrefixedOverridesUnprefixed(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://fallback/db")
	t.Setenv("PARKMCP_DATABASE_URL", "postgres://preferred/db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://preferred/db", cfg.DatabaseURL)
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "parkmcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
overpass_url: http://overpass.internal/api/interpreter
user_agent: parkmcp-staging/1.0
log_level: warn
rate_limits:
  overpass:
    every: 5s
    burst: 3
`), 0o644))

	t.Setenv("PARKMCP_CONFIG_FILE", path)
	t.Setenv("DATABASE_URL", "sqlite://parking.db")
	t.Setenv("PARKMCP_USER_AGENT", "parkmcp-override/2.0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://overpass.internal/api/interpreter", cfg.OverpassURL)
	assert.Equal(t, "parkmcp-override/2.0", cfg.UserAgent, "environment wins over file")
	assert.Equal(t, slog.LevelWarn, cfg.ParsedLogLevel())

	limits := cfg.Limits()
	assert.Equal(t, fetch.Limit{Every: 5 * time.Second, Burst: 3}, limits[fetch.ServiceOverpass])
	assert.Equal(t, fetch.DefaultLimits()[fetch.ServiceSearch], limits[fetch.ServiceSearch])
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PARKMCP_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate(t *testing.T) {
	cfg := &Config{DatabaseURL: "  "}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingDatabaseURL)

	cfg = &Config{DatabaseURL: "postgres://localhost/parking"}
	assert.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Warnings(), 2)
}

func TestParsedLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.ParsedLogLevel(), "level %q", tt.level)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, 100, cfg.RateLimit.MaxRequests)
	assert.Equal(t, "http://localhost:5173", cfg.Server.CORSOrigin)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 8080
cors_origin = "https://file.example"

[rate_limit]
max_requests = 5

[ai]
model = "gpt-4o"
`), 0600))

	t.Setenv("CORS_ORIGIN", "https://env.example")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "60000")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("TRUST_PROXY", "false")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://env.example", cfg.Server.CORSOrigin)
	assert.Equal(t, 5, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
	assert.Equal(t, "gpt-4o", cfg.AI.Model)
	assert.Equal(t, "sk-env", cfg.AI.APIKey)
	assert.False(t, cfg.Server.TrustProxy)
	// Untouched sections keep defaults.
	assert.Equal(t, 1000, cfg.AI.MaxTokens)
}

func TestLoadFrom_BadEnv(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := LoadFrom(filepath.Join(t.TempDir(), "config.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	cfg.RateLimit.WindowMs = 10
	cfg.RateLimit.MaxRequests = 0
	cfg.AI.Provider = "bard"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "rate_limit.window_ms")
	assert.Contains(t, err.Error(), "rate_limit.max_requests")
	assert.Contains(t, err.Error(), "ai.provider")
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	require.NoError(t, WriteDefault(path))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Schedule, cfg.Schedule)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "broker:\n  base_url: http://broker:5000\n"))
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, "http://broker:5000", c.Broker.BaseURL)
	assert.Equal(t, 30*time.Second, c.Broker.Timeout)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "/socket.io/", c.Feed.SocketPath)
	assert.Zero(t, c.Feed.BufferLimit)
	assert.Equal(t, "file", c.Session.Backend)
	assert.Equal(t, "isAdmin", c.Session.Key)
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.True(t, c.Metrics.Enabled)
	assert.Equal(t, float64(5), c.LoginLimit.Capacity)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("BROKER_BASE_URL", "http://10.0.0.5:5000")
	t.Setenv("SESSION_BACKEND", "memory")
	t.Setenv("CONSOLE_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := LoadWithEnv(writeConfig(t, "session:\n  backend: file\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:5000", c.Broker.BaseURL)
	assert.Equal(t, "memory", c.Session.Backend)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadWithEnvBadPort(t *testing.T) {
	t.Setenv("CONSOLE_PORT", "http")
	_, err := LoadWithEnv(writeConfig(t, ""))
	assert.ErrorContains(t, err, "CONSOLE_PORT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown backend", "session:\n  backend: sqlite\n", "session.backend"},
		{"negative buffer", "feed:\n  buffer_limit: -1\n", "feed.buffer_limit"},
		{"empty key", "session:\n  key: \"\"\n", "session.key"},
		{"empty base url", "broker:\n  base_url: \"\"\n", "broker.base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

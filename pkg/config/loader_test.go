package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should return the defaults without environment overrides", func(t *testing.T) {
		cfg, err := Load(func(string) string { return "" })
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8000, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "resources", cfg.Engine.DataDir)
		assert.Equal(t, 7200, cfg.Session.TTLSeconds)
		assert.Equal(t, 300, cfg.Session.CleanupInterval)
		assert.Empty(t, cfg.Session.RedisURL)
	})
	t.Run("Should overlay environment variables onto the defaults", func(t *testing.T) {
		t.Setenv("SERVER_HOST", "127.0.0.1")
		t.Setenv("SERVER_PORT", "9001")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("DATA_DIR", "/srv/resources")
		t.Setenv("SESSION_TTL_SECONDS", "60")
		cfg, err := Load(os.Getenv)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9001, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, "/srv/resources", cfg.Engine.DataDir)
		assert.Equal(t, 60, cfg.Session.TTLSeconds)
	})
	t.Run("Should take the Redis URL from either variable", func(t *testing.T) {
		t.Setenv("REDIS_URL", "redis://shared:6379/0")
		cfg, err := Load(os.Getenv)
		require.NoError(t, err)
		assert.Equal(t, "redis://shared:6379/0", cfg.Session.RedisURL)
	})
	t.Run("Should prefer the session-specific Redis URL", func(t *testing.T) {
		t.Setenv("REDIS_URL", "redis://shared:6379/0")
		t.Setenv("SESSION_REDIS_URL", "redis://sessions:6379/1")
		cfg, err := Load(os.Getenv)
		require.NoError(t, err)
		assert.Equal(t, "redis://sessions:6379/1", cfg.Session.RedisURL)
	})
	t.Run("Should ignore unrelated environment variables", func(t *testing.T) {
		t.Setenv("UNRELATED_SETTING", "whatever")
		cfg, err := Load(os.Getenv)
		require.NoError(t, err)
		assert.Equal(t, 8000, cfg.Server.Port)
	})
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(65536), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "metadirectory", cfg.Database.Name)
	assert.True(t, cfg.Database.Migrate)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, time.Minute, cfg.Redis.TokenTTL)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_FlatEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_STORE_DRIVER", "memory")
	t.Setenv("APP_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("APP_REDIS_TOKEN_TTL", "30s")
	t.Setenv("APP_LOG_FORMAT", "plain")
	t.Setenv("APP_METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, 30*time.Second, cfg.Redis.TokenTTL)
	assert.Equal(t, "plain", cfg.Log.Format)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("APP_STORE_DRIVER", "sqlite")
	_, err := Load()
	assert.ErrorContains(t, err, "unknown store driver")

	t.Setenv("APP_STORE_DRIVER", "memory")
	t.Setenv("APP_PORT", "eighty")
	_, err = Load()
	assert.ErrorContains(t, err, "server")
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5433, Name: "dir", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5433/dir?sslmode=disable", c.DSN())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_DB", "bookings")
}

func TestNew_Defaults(t *testing.T) {
	setRequired(t)
	for _, k := range []string{
		"SERVER_HOST", "SERVER_PORT",
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_SSLMODE",
		"REDIS_ADDR", "RESERVE_LOCK_TIMEOUT",
	} {
		t.Setenv(k, "")
	}

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 3*time.Second, cfg.Reserve.LockTimeout)
}

func TestNew_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("RESERVE_LOCK_TIMEOUT", "500ms")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Reserve.LockTimeout)
}

func TestNew_MissingRequired(t *testing.T) {
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_PASSWORD", "")
	t.Setenv("POSTGRES_DB", "")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_USER")
}

func TestNew_InvalidValues(t *testing.T) {
	setRequired(t)

	t.Run("port", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "not-a-port")
		_, err := New()
		assert.Error(t, err)
	})

	t.Run("lock timeout", func(t *testing.T) {
		t.Setenv("RESERVE_LOCK_TIMEOUT", "fast")
		_, err := New()
		assert.Error(t, err)
	})
}

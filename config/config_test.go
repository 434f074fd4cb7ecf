package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "evsu_canteen", cfg.DBName)
	assert.Equal(t, 8, cfg.ItemConcurrency)
	assert.False(t, cfg.AuthEnabled)
	assert.False(t, cfg.EnforceCatalogTotals)
	assert.Equal(t, 30*time.Minute, cfg.PendingTimeout)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_NAME", "canteen_test")
	t.Setenv("ITEM_CONCURRENCY", "3")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("CATALOG_CACHE_TTL", "90s")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg := LoadConfig()

	assert.Equal(t, "canteen_test", cfg.DBName)
	assert.Equal(t, 3, cfg.ItemConcurrency)
	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, 90*time.Second, cfg.CatalogTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestLoadConfig_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("ITEM_CONCURRENCY", "-2")
	t.Setenv("PENDING_TIMEOUT", "soon")

	cfg := LoadConfig()

	assert.Equal(t, 8, cfg.ItemConcurrency)
	assert.Equal(t, 30*time.Minute, cfg.PendingTimeout)
}

func TestGetEnvFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("s3cret\n"), 0o600))
	t.Setenv("JWT_SECRET_FILE", path)
	t.Setenv("JWT_SECRET", "ignored")

	assert.Equal(t, "s3cret", LoadConfig().JWTSecret)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REDIS_ADDR=cache:6379\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("REDIS_ADDR") })

	cfg := Load(path)

	assert.Equal(t, "cache:6379", cfg.RedisAddr)
}

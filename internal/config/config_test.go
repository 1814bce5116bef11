package config_test

import (
	"testing"
	"time"

	"productapi/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, ":3000", cfg.ListenAddr())
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "product_db", cfg.Database.Name)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.RabbitMQ.Enabled())
	assert.False(t, cfg.Auth.Enabled())
	assert.Equal(t, "host=localhost user=postgres password=postgres dbname=product_db port=5432 sslmode=disable", cfg.Database.DSN())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "catalog")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.ListenAddr())
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "catalog", cfg.Database.Name)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.True(t, cfg.Auth.Enabled())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := config.Load(viper.New())
	assert.ErrorContains(t, err, "DB_DRIVER")
}

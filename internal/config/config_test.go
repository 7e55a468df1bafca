package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("LEDGER_DRIVER", "Memory")
	t.Setenv("APP_TIMEZONE", "America/Sao_Paulo")
	t.Setenv("RESERVATION_TTL", "15m")

	cfg := Load()
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "America/Sao_Paulo", cfg.Timezone.String())
	assert.Equal(t, DriverMemory, cfg.Booking.LedgerDriver)
	assert.Equal(t, LockNone, cfg.Booking.LockDriver)
	assert.Equal(t, 2*time.Second, cfg.Booking.LockWait)
	assert.Equal(t, 15*time.Minute, cfg.Booking.ReservationTTL)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Empty(t, cfg.DB.Host)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MySQL(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_USER", "theatre")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "theatre")
	t.Setenv("LOCK_DRIVER", "redis")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "db", cfg.DB.Host)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, LockRedis, cfg.Booking.LockDriver)
}

func TestValidate(t *testing.T) {
	good := Config{
		JWT:     JWTConfig{AccessTTL: time.Minute},
		Booking: BookingConfig{LedgerDriver: DriverMemory, LockDriver: LockLocal, LockWait: time.Second},
	}
	require.NoError(t, good.Validate())

	bad := good
	bad.Booking.LedgerDriver = "postgres"
	assert.ErrorContains(t, bad.Validate(), "LEDGER_DRIVER")

	bad = good
	bad.Booking.LockDriver = "etcd"
	assert.ErrorContains(t, bad.Validate(), "LOCK_DRIVER")

	bad = good
	bad.Booking.LockWait = 0
	assert.ErrorContains(t, bad.Validate(), "LOCK_WAIT")

	bad = good
	bad.Booking.ReservationTTL = -time.Second
	assert.ErrorContains(t, bad.Validate(), "RESERVATION_TTL")
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "bogus")

	cfg := LoadCacheConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, cfg.Methods)
	assert.Equal(t, 5*time.Second, cfg.TTL)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	cfg := LoadRateLimitConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadRedisConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	assert.Equal(t, "cache:6380", LoadRedisConfig().Addr)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_DB", "2")
	cfg := LoadRedisConfig()
	assert.Equal(t, "redis:6379", cfg.Addr)
	assert.Equal(t, 2, cfg.DB)
}

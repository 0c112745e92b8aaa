package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Booking.UsesMemoryStore())
	assert.Equal(t, 3, cfg.Booking.IDRetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.Booking.StoreTimeout)
	assert.GreaterOrEqual(t, cfg.RateLimit.TTL, 5*cfg.RateLimit.RefillInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("FRONTEND_URL", "https://app.example.com/")
	t.Setenv("STORE_TIMEOUT_MS", "250")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", cfg.Booking.FrontendURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Booking.StoreTimeout)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.TTL)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: "5432", DBName: "bookings", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/bookings?sslmode=disable", c.DSN())
	c.URL = "postgres://override"
	assert.Equal(t, "postgres://override", c.DSN())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadMemoryDriverDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg := Load()

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Empty(t, cfg.DBHost)
	assert.Equal(t, 15*time.Minute, cfg.HoldTTL)
	assert.Equal(t, 24*time.Hour, cfg.OfferTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 500, cfg.SweepBatch)
	assert.Equal(t, 50, cfg.WaitlistMax)
	assert.InDelta(t, 0.05, cfg.OverbookEconomyRate, 1e-9)
	assert.InDelta(t, 0.02, cfg.OverbookBusinessRate, 1e-9)
	assert.Equal(t, 10, cfg.OverbookMax)
	assert.InDelta(t, 0.08, cfg.NoShowRate, 1e-9)
	assert.Equal(t, "log", cfg.NotifierDriver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("HOLD_TTL", "5m")
	t.Setenv("OVERBOOK_ECONOMY_RATE", "0.1")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@mq:5672/")
	t.Setenv("SWEEP_BATCH", "0")

	cfg := Load()

	assert.Equal(t, 5*time.Minute, cfg.HoldTTL)
	assert.InDelta(t, 0.1, cfg.OverbookEconomyRate, 1e-9)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.RabbitURL)
	assert.Equal(t, 1, cfg.SweepBatch)
}

func TestEnvFloatFallsBackOnGarbage(t *testing.T) {
	t.Setenv("X_RATE", "abc")
	assert.InDelta(t, 0.3, envFloat("X_RATE", 0.3), 1e-9)
}

func TestRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()

	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 10*time.Second, rl.TTL)
}

func TestCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cc := LoadCacheConfig()
	assert.True(t, cc.Methods["GET"])
	assert.True(t, cc.Methods["HEAD"])
	assert.False(t, cc.Methods["POST"])
}

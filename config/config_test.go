package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("RESTOCK_THRESHOLD", "")

	cfg := Load()

	assert.Equal(t, int64(10), cfg.Business.RestockThreshold)
	assert.False(t, cfg.Business.AllowNegativeStock)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "ledger-events", cfg.Kafka.TopicLedger)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RESTOCK_THRESHOLD", "25")
	t.Setenv("ALLOW_NEGATIVE_STOCK", "true")
	t.Setenv("SESSION_TTL_MINUTES", "5")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, int64(25), cfg.Business.RestockThreshold)
	assert.True(t, cfg.Business.AllowNegativeStock)
	assert.Equal(t, 5*time.Minute, cfg.Redis.SessionTTL)
}

func TestLoadInvalidThreshold(t *testing.T) {
	t.Setenv("RESTOCK_THRESHOLD", "ten")

	cfg := Load()

	assert.Equal(t, int64(10), cfg.Business.RestockThreshold)
}

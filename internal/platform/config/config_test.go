package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Verification.AutoVerify)
	assert.Equal(t, int64(10<<20), cfg.Verification.MaxUploadBytes)
	assert.Equal(t, 5*time.Second, cfg.Adapters.Timeout)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BASERA_ADDR", ":9999")
	t.Setenv("VERIF_AUTO_VERIFY", "false")
	t.Setenv("ADAPTER_TIMEOUT", "2s")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg := FromEnv()

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.False(t, cfg.Verification.AutoVerify)
	assert.Equal(t, 2*time.Second, cfg.Adapters.Timeout)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Kafka.Brokers)
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("VERIF_UPLOADS_PER_HOUR", "lots")
	t.Setenv("ADAPTER_TIMEOUT", "soon")

	cfg := FromEnv()

	assert.Equal(t, 20, cfg.Verification.UploadsPerHour)
	assert.Equal(t, 5*time.Second, cfg.Adapters.Timeout)
}

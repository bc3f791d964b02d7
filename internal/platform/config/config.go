// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration for the verification service.
type Config struct {
	Server       Server
	Postgres     Postgres
	Redis        Redis
	Kafka        Kafka
	Adapters     Adapters
	Verification Verification
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// Postgres captures persistence configuration. An empty DSN selects the
// in-memory stores (development and tests).
type Postgres struct {
	DSN string
}

// Redis captures cache/rate-limit backend configuration. An empty URL
// disables Redis; the upload limiter falls back to its in-process store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the audit event pipeline configuration. Empty brokers
// disable the Kafka sink; audit events still land in the primary store.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// Adapters captures external adapter call policy. The OCR and face-match
// calls have no documented upstream timeout, so we impose one here and do
// not retry internally; callers retry with backoff.
type Adapters struct {
	Timeout time.Duration
}

// Verification captures tunable verification policy.
type Verification struct {
	// AutoVerify enables the automatic transition to verified once the
	// overall score reaches the threshold, with no admin step. This is the
	// observed upstream behavior; the flag exists so a deployment can
	// require manual review instead.
	AutoVerify bool

	// MaxUploadBytes caps document and selfie uploads.
	MaxUploadBytes int64

	// UploadsPerHour caps submission attempts per user.
	UploadsPerHour int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envString("BASERA_ADDR", ":8080"),
			JWTSigningKey: envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Postgres: Postgres{
			DSN: os.Getenv("POSTGRES_DSN"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    envList("KAFKA_BROKERS"),
			AuditTopic: envString("KAFKA_AUDIT_TOPIC", "basera.verification.audit"),
		},
		Adapters: Adapters{
			Timeout: envDuration("ADAPTER_TIMEOUT", 5*time.Second),
		},
		Verification: Verification{
			AutoVerify:     envBool("VERIF_AUTO_VERIFY", true),
			MaxUploadBytes: envInt64("VERIF_MAX_UPLOAD_BYTES", 10<<20),
			UploadsPerHour: envInt("VERIF_UPLOADS_PER_HOUR", 20),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

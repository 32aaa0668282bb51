// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a development default; production overrides via
// MEDLEDGER_* variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration.
type Config struct {
	Addr          string
	JWTSigningKey string

	// PostgresURL selects the postgres-backed stores when set; empty keeps
	// the in-memory stores (dev and tests).
	PostgresURL string

	Redis RedisConfig
	Kafka KafkaConfig

	// LowStockThreshold is the COUNTABLE inventory level at or below which
	// the registry raises a low-inventory alert.
	LowStockThreshold int

	// RequestTimeout bounds each HTTP request.
	RequestTimeout time.Duration
}

// RedisConfig configures the optional alert recency cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the change-event notifier transport.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	// Buffer sizes the async hand-off channel between services and the
	// producer; a full buffer drops events rather than blocking writes.
	Buffer int
}

// FromEnv reads configuration from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          envOr("MEDLEDGER_ADDR", ":8080"),
		JWTSigningKey: envOr("MEDLEDGER_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:   os.Getenv("MEDLEDGER_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("MEDLEDGER_REDIS_URL"),
			PoolSize:     envInt("MEDLEDGER_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("MEDLEDGER_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("MEDLEDGER_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("MEDLEDGER_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("MEDLEDGER_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("MEDLEDGER_KAFKA_BROKERS")),
			Topic:   envOr("MEDLEDGER_KAFKA_TOPIC", "medledger.changes"),
			Buffer:  envInt("MEDLEDGER_NOTIFIER_BUFFER", 256),
		},
		LowStockThreshold: envInt("MEDLEDGER_LOW_STOCK_THRESHOLD", 10),
		RequestTimeout:    envDuration("MEDLEDGER_REQUEST_TIMEOUT", 30*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Package config builds the service configuration from environment variables
// so main stays lean. Every knob has a development-friendly default; only the
// Postgres DSN is required to leave in-memory mode.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strs "veriseal/pkg/platform/strings"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Export   ExportConfig
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr string
	// RequestTimeout bounds one request end to end; batch issuance is
	// synchronous, so it is also the batch deadline.
	RequestTimeout time.Duration
}

// PostgresConfig configures the record and blob stores. An empty DSN keeps the
// service on in-memory stores, which is fine for development and tests.
type PostgresConfig struct {
	DSN string
}

// RedisConfig configures the record cache. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig configures the audit event publisher. No brokers means audit
// events are only written to the structured log.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ExportConfig tunes the rendering pipeline.
type ExportConfig struct {
	// AssetTimeout bounds how long one export waits for a template image.
	AssetTimeout time.Duration
}

// FromEnv builds a Config from VERISEAL_* environment variables.
func FromEnv() Config {
	return Config{
		Server: ServerConfig{
			Addr:           envString("VERISEAL_ADDR", ":8080"),
			RequestTimeout: envDuration("VERISEAL_REQUEST_TIMEOUT", 2*time.Minute),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("VERISEAL_POSTGRES_DSN"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("VERISEAL_REDIS_URL"),
			PoolSize:     envInt("VERISEAL_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("VERISEAL_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("VERISEAL_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("VERISEAL_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("VERISEAL_REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("VERISEAL_REDIS_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: strs.DedupeAndTrim(strings.Split(os.Getenv("VERISEAL_KAFKA_BROKERS"), ",")),
			Topic:   envString("VERISEAL_KAFKA_AUDIT_TOPIC", "veriseal.audit"),
		},
		Export: ExportConfig{
			AssetTimeout: envDuration("VERISEAL_EXPORT_ASSET_TIMEOUT", 10*time.Second),
		},
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

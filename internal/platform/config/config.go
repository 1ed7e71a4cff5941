package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the engine. Values come from
// the environment so deployments stay twelve-factor and main stays lean.
type Config struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the postgres stores; empty means in-memory.
	DatabaseURL string
	// RedisURL selects the distributed claim store; empty means in-memory.
	RedisURL string

	KafkaBrokers []string
	KafkaTopic   string

	QuorumThreshold int
	WorkerCount     int
	ScanInterval    time.Duration
	DispatchTimeout time.Duration
	ClaimTTL        time.Duration
	RetryBackoff    time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:            envOr("VAULTKEEPER_ADDR", ":8080"),
		JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		KafkaTopic:      envOr("KAFKA_TOPIC", "vaultkeeper.events"),
		QuorumThreshold: envInt("QUORUM_THRESHOLD", 2),
		WorkerCount:     envInt("WORKER_COUNT", 2),
		ScanInterval:    envDuration("SCAN_INTERVAL", 5*time.Second),
		DispatchTimeout: envDuration("DISPATCH_TIMEOUT", 10*time.Second),
		ClaimTTL:        envDuration("CLAIM_TTL", 30*time.Second),
		RetryBackoff:    envDuration("RETRY_BACKOFF", 30*time.Second),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

package config

import (
	"os"
	"strings"
	"time"
)

// BlockedPolicy decides what happens to requests from blocked clients.
type BlockedPolicy string

const (
	// BlockedPolicyTag serves the request and stamps registry_status=blocked
	// into provenance. Provenance records, it does not gate.
	BlockedPolicyTag BlockedPolicy = "tag"
	// BlockedPolicyReject answers 403 before the memory write happens.
	BlockedPolicyReject BlockedPolicy = "reject"
)

// Server captures process-level configuration. Built once at startup and
// passed by reference; never mutated afterwards.
type Server struct {
	Addr          string
	PostgresDSN   string
	RedisURL      string
	KafkaBrokers  []string
	NotifyTopic   string
	ChromemPath   string
	JWTSigningKey string
	AdminKeyHash  string
	BlockedPolicy BlockedPolicy

	SessionLogBuffer int
	NotifyBuffer     int
}

// StatusCacheTTL bounds how long a cached registry status may be served
// before falling back to the store.
var StatusCacheTTL = 30 * time.Second

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:             getenv("MEMGATE_ADDR", ":8765"),
		PostgresDSN:      os.Getenv("MEMGATE_POSTGRES_DSN"),
		RedisURL:         os.Getenv("MEMGATE_REDIS_URL"),
		NotifyTopic:      getenv("MEMGATE_NOTIFY_TOPIC", "memgate.quarantine"),
		ChromemPath:      os.Getenv("MEMGATE_CHROMEM_PATH"),
		JWTSigningKey:    getenv("MEMGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminKeyHash:     os.Getenv("MEMGATE_ADMIN_KEY_HASH"),
		BlockedPolicy:    BlockedPolicyTag,
		SessionLogBuffer: 256,
		NotifyBuffer:     64,
	}

	if brokers := os.Getenv("MEMGATE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if os.Getenv("MEMGATE_BLOCKED_POLICY") == string(BlockedPolicyReject) {
		cfg.BlockedPolicy = BlockedPolicyReject
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

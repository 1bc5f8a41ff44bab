package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Blob backends.
const (
	BlobMemory   = "memory"
	BlobPostgres = "postgres"
	BlobS3       = "s3"
)

// Server captures process level configuration.
type Server struct {
	Addr          string
	Environment   string
	Log           LogConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Identity      IdentityConfig
	Kafka         KafkaConfig
	Blob          BlobConfig
	TxTimeout     time.Duration
	MaxImageBytes int64
}

type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig is empty-URL tolerant: without a URL the service runs on
// in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type IdentityConfig struct {
	SigningKey string
	Issuer     string
	CacheTTL   time.Duration
}

type KafkaConfig struct {
	Brokers            []string
	Topic              string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

type BlobConfig struct {
	Backend  string
	Bucket   string
	Region   string
	Endpoint string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        getEnv("AMICABLE_ADDR", ":8080"),
		Environment: getEnv("AMICABLE_ENV", "development"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Identity: IdentityConfig{
			// Use a default for development - should be overridden in production
			SigningKey: getEnv("IDENTITY_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     os.Getenv("IDENTITY_ISSUER"),
			CacheTTL:   getDuration("IDENTITY_CACHE_TTL", time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:            splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:              getEnv("KAFKA_TOPIC", "accident-events"),
			OutboxPollInterval: getDuration("OUTBOX_POLL_INTERVAL", time.Second),
			OutboxBatchSize:    getInt("OUTBOX_BATCH_SIZE", 100),
		},
		Blob: BlobConfig{
			Backend:  getEnv("BLOB_BACKEND", BlobMemory),
			Bucket:   os.Getenv("S3_BUCKET"),
			Region:   getEnv("AWS_REGION", "eu-central-1"),
			Endpoint: os.Getenv("AWS_ENDPOINT_URL"),
		},
		TxTimeout:     getDuration("TX_TIMEOUT", 5*time.Second),
		MaxImageBytes: int64(getInt("MAX_IMAGE_BYTES", 10<<20)),
	}
}

// Validate rejects combinations that cannot start.
func (s Server) Validate() error {
	switch s.Blob.Backend {
	case BlobMemory:
	case BlobPostgres:
		if s.Database.URL == "" {
			return fmt.Errorf("BLOB_BACKEND=postgres requires DATABASE_URL")
		}
	case BlobS3:
		if s.Blob.Bucket == "" {
			return fmt.Errorf("BLOB_BACKEND=s3 requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", s.Blob.Backend)
	}
	if len(s.Kafka.Brokers) > 0 && s.Database.URL == "" {
		return fmt.Errorf("KAFKA_BROKERS requires DATABASE_URL for the outbox")
	}
	if s.Environment == "production" && s.Identity.SigningKey == "dev-secret-key-change-in-production" {
		return fmt.Errorf("IDENTITY_SIGNING_KEY must be set in production")
	}
	if s.TxTimeout <= 0 {
		return fmt.Errorf("TX_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

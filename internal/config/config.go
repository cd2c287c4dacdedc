package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends accepted by STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendS3     = "s3"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// Persistence
	StoreBackend string
	KeyPrefix    string // namespaces keys on shared redis and s3 backends

	// MongoDB
	MongoURI          string
	MongoDbName       string
	MongoKVCollection string

	// Redis (KV backend and asynq broker)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SQLite
	SQLitePath string

	// MySQL (go-sql-driver DSN)
	MySQLDSN string

	// S3-compatible object storage
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool

	// NATS domain events; empty disables publishing
	NatsURL string

	// Session tokens
	SessionSecret string
	SessionTTL    time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string

	// Logging
	LogLevel    string
	LogEncoding string

	// Marketplace
	SeedOnStart  bool
	PriceJitter  float64
	DefaultUnit  string
	TasksEnabled bool

	// Rate Limiting
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists || value == "" {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", BackendMemory))
	cfg.KeyPrefix = getEnv("STORE_KEY_PREFIX", "")
	cfg.MongoURI = getEnv("MONGO_URI", "")
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "agri")
	cfg.MongoKVCollection = getEnv("MONGO_KV_COLLECTION", "kv")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.SQLitePath = getEnv("SQLITE_PATH", "agri.db")
	cfg.S3AccessKey = getEnv("S3_ACCESS_KEY", "")
	cfg.S3SecretKey = getEnv("S3_SECRET_KEY", "")
	cfg.S3Bucket = getEnv("S3_BUCKET", "agri")
	cfg.NatsURL = getEnv("NATS_URL", "")
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogEncoding = getEnv("LOG_ENCODING", "json")
	cfg.DefaultUnit = getEnv("DEFAULT_UNIT", "kg")

	switch cfg.StoreBackend {
	case BackendMemory, BackendRedis, BackendSQLite:
	case BackendMongo:
		cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
		if err != nil {
			return nil, err
		}
	case BackendMySQL:
		cfg.MySQLDSN, err = getRequiredEnv("MYSQL_DSN")
		if err != nil {
			return nil, err
		}
	case BackendS3:
		cfg.S3Endpoint, err = getRequiredEnv("S3_ENDPOINT")
		if err != nil {
			return nil, err
		}
		cfg.S3UseSSL, err = strconv.ParseBool(getEnv("S3_USE_SSL", "false"))
		if err != nil {
			return nil, fmt.Errorf("invalid S3_USE_SSL: %w", err)
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND: %q", cfg.StoreBackend)
	}

	cfg.SessionSecret, err = getRequiredEnv("SESSION_SECRET")
	if err != nil {
		return nil, err
	}

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	sessionTTLSeconds, err := strconv.ParseInt(getEnv("SESSION_TTL_SECONDS", "604800"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL_SECONDS: %w", err)
	}
	cfg.SessionTTL = time.Duration(sessionTTLSeconds) * time.Second

	cfg.SeedOnStart, err = strconv.ParseBool(getEnv("SEED_ON_START", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_ON_START: %w", err)
	}

	cfg.TasksEnabled, err = strconv.ParseBool(getEnv("TASKS_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid TASKS_ENABLED: %w", err)
	}
	// Task workers may run in another process and must see the same documents.
	if cfg.TasksEnabled && (cfg.StoreBackend == BackendMemory ||
		(cfg.StoreBackend == BackendSQLite && cfg.SQLitePath == ":memory:")) {
		return nil, fmt.Errorf("TASKS_ENABLED requires a shared STORE_BACKEND, got %q", cfg.StoreBackend)
	}

	cfg.PriceJitter, err = strconv.ParseFloat(getEnv("PRICE_JITTER", "1.0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_JITTER: %w", err)
	}

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}

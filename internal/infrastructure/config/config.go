package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Storage StorageConfig
	Session SessionConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=hosting_system"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type StorageConfig struct {
	BucketPrefix    string        `env:"STORAGE_BUCKET_PREFIX,   default=stackfold-"`
	MaxAttempts     int           `env:"STORAGE_MAX_ATTEMPTS,    default=3"`
	BackoffBase     time.Duration `env:"STORAGE_BACKOFF_BASE,    default=200ms"`
	CallTimeout     time.Duration `env:"STORAGE_CALL_TIMEOUT,    default=10s"`
	TeardownWorkers int           `env:"STORAGE_TEARDOWN_WORKERS, default=4"`
}

type SessionConfig struct {
	TTL time.Duration `env:"SESSION_TTL, default=24h"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(logger *slog.Logger) *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		logger.Error("Failed to load configuration", "error", err)
		panic(err)
	}
	return &cfg
}

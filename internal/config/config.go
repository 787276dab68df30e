// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Supported item store backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Configuration errors.
var (
	ErrUnknownBackend     = errors.New("unknown store backend")
	ErrMissingIndexName   = errors.New("TODO_ID_INDEX is required for the dynamodb backend")
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres backend")
	ErrInvalidExpiration  = errors.New("SIGNED_URL_EXPIRATION must be positive")
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`
	Version string `env:"VERSION" envDefault:"dev"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Item store
	StoreBackend string `env:"STORE_BACKEND" envDefault:"dynamodb"`
	TodosTable   string `env:"TODOS_TABLE,required,notEmpty"`
	TodoIDIndex  string `env:"TODO_ID_INDEX"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// AWS. EndpointURL points the SDK clients at a local stack when set.
	AWSRegion   string `env:"AWS_REGION" envDefault:"us-east-1"`
	EndpointURL string `env:"AWS_ENDPOINT_URL"`

	// Attachment uploads
	ImagesBucket        string `env:"IMAGES_S3_BUCKET,required,notEmpty"`
	SignedURLExpiration int    `env:"SIGNED_URL_EXPIRATION" envDefault:"300"`

	// Optional per-user list cache (Redis). Disabled when empty.
	RedisURL     string        `env:"REDIS_URL"`
	ListCacheTTL time.Duration `env:"LIST_CACHE_TTL" envDefault:"60s"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// UploadURLExpiry returns the signed URL lifetime.
func (c *Config) UploadURLExpiry() time.Duration {
	return time.Duration(c.SignedURLExpiration) * time.Second
}

// CacheEnabled reports whether the Redis list cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != ""
}

// Validate checks the cross-field requirements env tags cannot express.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendDynamoDB:
		if c.TodoIDIndex == "" {
			return ErrMissingIndexName
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.StoreBackend)
	}

	if c.SignedURLExpiration <= 0 {
		return ErrInvalidExpiration
	}

	return nil
}

// Load parses environment variables and returns a validated Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

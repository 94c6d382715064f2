// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Lock        LockConfig
	Logging     LogConfig
	RateLimit   RateLimitConfig
	Diagnostics DiagnosticsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8090"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// StorageConfig holds storage root configuration.
type StorageConfig struct {
	// Root is the physical directory backing the /memories namespace.
	Root string `envconfig:"STORAGE_ROOT" default:"/tmp/memstore/memories"`
}

// LockConfig holds lock acquisition budgets. Write callers get the longer
// budget: writes are less frequent but costlier to retry.
type LockConfig struct {
	ReadTimeout    time.Duration `envconfig:"LOCK_READ_TIMEOUT" default:"2s"`
	WriteTimeout   time.Duration `envconfig:"LOCK_WRITE_TIMEOUT" default:"5s"`
	StaleThreshold time.Duration `envconfig:"LOCK_STALE_THRESHOLD" default:"30s"`
	RetryInterval  time.Duration `envconfig:"LOCK_RETRY_INTERVAL" default:"25ms"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// DiagnosticsConfig holds the diagnostics sink configuration.
type DiagnosticsConfig struct {
	QueueSize int `envconfig:"DIAG_QUEUE_SIZE" default:"1024"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Storage: StorageConfig{
			Root: "/tmp/memstore/memories",
		},
		Lock: LockConfig{
			ReadTimeout:    2 * time.Second,
			WriteTimeout:   5 * time.Second,
			StaleThreshold: 30 * time.Second,
			RetryInterval:  25 * time.Millisecond,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Diagnostics: DiagnosticsConfig{
			QueueSize: 1024,
		},
	}
}

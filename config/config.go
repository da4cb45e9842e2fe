package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/wkalt/lazytree/util/log"
)

/*
config holds process-level settings for the lazytree binaries. Values are read
from LAZYTREE_* environment variables and may then be overridden by command
line flags before Validate is called.
*/

////////////////////////////////////////////////////////////////////////////////

// Backend names accepted for Config.Backend.
const (
	BackendSQLite  = "sqlite"
	BackendLevelDB = "leveldb"
	BackendMemory  = "memory"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the lazytree process configuration.
type Config struct {
	StorageLocation  string   `env:"LAZYTREE_STORAGE_LOCATION"  envDefault:"tree.db"`
	Backend          string   `env:"LAZYTREE_BACKEND"           envDefault:"sqlite"`
	CacheCapacity    int      `env:"LAZYTREE_CACHE_CAPACITY"    envDefault:"10"`
	CompressPayloads bool     `env:"LAZYTREE_COMPRESS_PAYLOADS" envDefault:"false"`
	LogLevel         string   `env:"LAZYTREE_LOG_LEVEL"         envDefault:"info"`
	Port             int      `env:"LAZYTREE_PORT"              envDefault:"8089"`
	AllowedOrigins   []string `env:"LAZYTREE_ALLOWED_ORIGINS"   envSeparator:","`

	S3 S3Config
}

// S3Config locates the bucket used for snapshot export and import.
type S3Config struct {
	Endpoint  string `env:"LAZYTREE_S3_ENDPOINT"`
	Bucket    string `env:"LAZYTREE_S3_BUCKET"`
	Prefix    string `env:"LAZYTREE_S3_PREFIX"`
	AccessKey string `env:"LAZYTREE_S3_ACCESS_KEY"`
	SecretKey string `env:"LAZYTREE_S3_SECRET_KEY"`
	Region    string `env:"LAZYTREE_S3_REGION"`
	UseTLS    bool   `env:"LAZYTREE_S3_USE_TLS" envDefault:"true"`
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom reads the configuration from the supplied environment instead of
// the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values no component can accept.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendLevelDB, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.Backend != BackendMemory && c.StorageLocation == "" {
		return fmt.Errorf("%w: storage location is required for %s", ErrInvalidConfig, c.Backend)
	}
	if c.CacheCapacity < 1 {
		return fmt.Errorf("%w: cache capacity must be at least 1, got %d", ErrInvalidConfig, c.CacheCapacity)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Level returns the parsed log level. Call Validate first.
func (c *Config) Level() slog.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

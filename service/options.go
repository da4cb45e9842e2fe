package service

import (
	"log/slog"
	"net"

	"github.com/wkalt/lazytree/config"
)

// Option is a functional option for the lazytree service.
type Option func(*Options)

// Options contains options for the lazytree service.
type Options struct {
	Backend          string
	StorageLocation  string
	CacheCapacity    int
	CompressPayloads bool
	Port             int
	AllowedOrigins   []string
	LogLevel         slog.Level
	Listener         net.Listener
}

// WithConfig applies every setting in cfg. Options given after it override.
func WithConfig(cfg *config.Config) Option {
	return func(opts *Options) {
		opts.Backend = cfg.Backend
		opts.StorageLocation = cfg.StorageLocation
		opts.CacheCapacity = cfg.CacheCapacity
		opts.CompressPayloads = cfg.CompressPayloads
		opts.Port = cfg.Port
		opts.AllowedOrigins = cfg.AllowedOrigins
		opts.LogLevel = cfg.Level()
	}
}

// WithBackend selects the node store backend by name.
func WithBackend(backend, location string) Option {
	return func(opts *Options) {
		opts.Backend = backend
		opts.StorageLocation = location
	}
}

// WithCacheCapacity sets the number of decoded payloads kept resident.
func WithCacheCapacity(n int) Option {
	return func(opts *Options) {
		opts.CacheCapacity = n
	}
}

// WithCompression enables snappy compression of stored payloads.
func WithCompression(enabled bool) Option {
	return func(opts *Options) {
		opts.CompressPayloads = enabled
	}
}

// WithPort sets the port to listen on.
func WithPort(port int) Option {
	return func(opts *Options) {
		opts.Port = port
	}
}

// WithListener serves on l instead of listening on the configured port.
func WithListener(l net.Listener) Option {
	return func(opts *Options) {
		opts.Listener = l
	}
}

// WithAllowedOrigins sets the origins that receive CORS headers.
func WithAllowedOrigins(origins []string) Option {
	return func(opts *Options) {
		opts.AllowedOrigins = origins
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level slog.Level) Option {
	return func(opts *Options) {
		opts.LogLevel = level
	}
}

func readOpts(options ...Option) *Options {
	opts := Options{
		Backend:         config.BackendSQLite,
		StorageLocation: "tree.db",
		CacheCapacity:   10,
		Port:            8089,
		LogLevel:        slog.LevelInfo,
	}
	for _, opt := range options {
		opt(&opts)
	}
	return &opts
}

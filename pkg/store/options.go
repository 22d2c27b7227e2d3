package store

import "log/slog"

// DefaultMaxPasses is the default limit on chained notification passes.
const DefaultMaxPasses = 100

// Config holds store configuration.
type Config struct {
	// Logger receives debug and warning messages. Default: slog.Default().
	Logger *slog.Logger

	// Observer receives pass and write statistics. Default: none.
	Observer Observer

	// MaxPasses bounds the chain of passes caused by callbacks writing to
	// the store they are subscribed to. Default: DefaultMaxPasses.
	MaxPasses int
}

// Option configures a store.
type Option func(*Config)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithObserver sets the store observer.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observer = o
	}
}

// WithMaxPasses sets the chained pass limit.
func WithMaxPasses(n int) Option {
	return func(c *Config) {
		c.MaxPasses = n
	}
}

func defaultConfig() Config {
	return Config{
		Logger:    slog.Default(),
		Observer:  nopObserver{},
		MaxPasses: DefaultMaxPasses,
	}
}

func buildConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = DefaultMaxPasses
	}
	return cfg
}

// watchConfig holds per-subscription options.
type watchConfig struct {
	identity any
	cache    bool
	editable bool
}

// WatchOption configures a single Watch call.
type WatchOption func(*watchConfig)

// WithIdentity sets the callback identity. Watching again with the same
// identity returns the existing subscription instead of creating a new one,
// until that subscription is cancelled. Identities must be comparable.
func WithIdentity(key any) WatchOption {
	return func(c *watchConfig) {
		c.identity = key
	}
}

// NoCache bypasses the identity cache: the call always creates a new
// subscription and does not register it under its identity.
func NoCache() WatchOption {
	return func(c *watchConfig) {
		c.cache = false
	}
}

// Editable allows writes through the subscription's node on a manual-sync
// store. It has no effect on auto-sync stores, where nodes are always writable.
func Editable() WatchOption {
	return func(c *watchConfig) {
		c.editable = true
	}
}

func buildWatchConfig(opts []WatchOption) watchConfig {
	cfg := watchConfig{cache: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

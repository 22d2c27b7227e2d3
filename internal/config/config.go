package config

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vango-dev/treestore/internal/errors"
	"github.com/vango-dev/treestore/pkg/store"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "treestore.json"

	// DefaultListen is the default server listen address.
	DefaultListen = "localhost:7070"

	// DefaultWatchBuffer is the default number of queued websocket messages
	// per watcher.
	DefaultWatchBuffer = 16

	// DefaultNamespace is the default Prometheus metric namespace.
	DefaultNamespace = "treestore"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
)

// Config represents the complete treestore.json configuration.
type Config struct {
	// Document is the JSON or YAML file holding the initial store value.
	// Relative paths are resolved against the config file's directory.
	Document string `json:"document,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log"`

	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics"`

	// Tracing contains OpenTelemetry configuration.
	Tracing TracingConfig `json:"tracing"`

	// Store contains engine configuration.
	Store StoreConfig `json:"store"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Listen is the address to listen on.
	Listen string `json:"listen,omitempty"`

	// WatchBuffer is the websocket send queue length per watcher.
	WatchBuffer int `json:"watchBuffer,omitempty"`
}

// MetricsConfig contains Prometheus configuration.
type MetricsConfig struct {
	Enabled   *bool  `json:"enabled,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// TracingConfig contains OpenTelemetry configuration.
type TracingConfig struct {
	Enabled bool `json:"enabled,omitempty"`

	// Writes also traces individual writes, not only notification passes.
	Writes bool `json:"writes,omitempty"`
}

// StoreConfig contains engine configuration.
type StoreConfig struct {
	// MaxPasses bounds follow-up notification passes caused by callbacks
	// writing to the store.
	MaxPasses int `json:"maxPasses,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("T020").
			WithDetail("Failed to read " + path).
			Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("T020").
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when it does not exist.
// An empty path looks for treestore.json in the working directory.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = ConfigFileName
	}
	cfg, err := LoadFile(path)
	if err != nil && stderrors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	return cfg, err
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.WatchBuffer == 0 {
		c.Server.WatchBuffer = DefaultWatchBuffer
	}
	if c.Metrics.Enabled == nil {
		enabled := true
		c.Metrics.Enabled = &enabled
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Store.MaxPasses == 0 {
		c.Store.MaxPasses = store.DefaultMaxPasses
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, ok := parseLevel(c.Log.Level); !ok {
		return errors.New("T020").
			WithDetail("log.level must be one of debug, info, warn, error; got " + c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.New("T020").
			WithDetail("log.format must be text or json; got " + c.Log.Format)
	}
	if c.Server.WatchBuffer < 0 {
		return errors.New("T020").WithDetail("server.watchBuffer must not be negative")
	}
	if c.Store.MaxPasses < 0 {
		return errors.New("T020").WithDetail("store.maxPasses must not be negative")
	}
	return nil
}

// MetricsEnabled reports whether Prometheus metrics are collected.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

// DocumentPath returns the document path resolved against the config
// file's directory.
func (c *Config) DocumentPath() string {
	if c.Document == "" || filepath.IsAbs(c.Document) || c.Dir() == "" {
		return c.Document
	}
	return filepath.Join(c.Dir(), c.Document)
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

// Logger builds a logger writing to stderr with the configured level and
// format.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// Package config provides configuration management for nilor.
//
// Config file locations (priority order):
//  1. $NILOR_CONFIG
//  2. ./nilor.yaml
//  3. $XDG_CONFIG_HOME/nilor/config.yaml
//  4. ~/.config/nilor/config.yaml
//  5. /etc/nilor/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

const (
	defaultAddr            = ":8080"
	defaultSQLitePath      = "./nilor.db"
	defaultFilePath        = "./nilor-graph.json"
	defaultShutdownTimeout = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
)

var validate = validator.New()

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{
		Editor: EditorConfig{SampleGraph: true},
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(defaultShutdownTimeout)
	}
	if c.Server.KeepAlive == 0 {
		c.Server.KeepAlive = Duration(defaultKeepAlive)
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendSQLite
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Storage.Path == "" {
		switch c.Storage.Backend {
		case BackendSQLite:
			c.Storage.Path = defaultSQLitePath
		case BackendFile:
			c.Storage.Path = defaultFilePath
		}
	}
	if c.Storage.Key == "" {
		c.Storage.Key = "nilor-graph"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
}

// Finalize fills in defaults left empty by later overrides and validates
// the result
func (c *Config) Finalize() error {
	c.applyDefaults()
	return c.Validate()
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	e := verrs[0]
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	if e.Param() != "" {
		return fmt.Errorf("invalid config: %s failed %s=%s (got %q)", field, e.Tag(), e.Param(), fmt.Sprint(e.Value()))
	}
	return fmt.Errorf("invalid config: %s failed %s", field, e.Tag())
}

// NewLogger builds the process logger from the log section
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Listen: %s, Storage: %s", c.Server.Addr, c.Storage.Backend)
	if c.Storage.Path != "" {
		summary += fmt.Sprintf(" (%s)", c.Storage.Path)
	}
	summary += fmt.Sprintf(", Key: %s, Sample graph: %t", c.Storage.Key, c.Editor.SampleGraph)
	if c.Editor.WatchFile != "" {
		summary += fmt.Sprintf(", Watching: %s", c.Editor.WatchFile)
	}
	return summary
}

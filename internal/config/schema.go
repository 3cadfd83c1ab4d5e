package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version int           `yaml:"version"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Editor  EditorConfig  `yaml:"editor"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Addr            string   `yaml:"addr" validate:"required"`
	AllowedOrigins  []string `yaml:"allowed_origins,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	KeepAlive       Duration `yaml:"keepalive"` // SSE keepalive interval
}

// StorageConfig selects where the autosave document lives
type StorageConfig struct {
	Backend string `yaml:"backend" validate:"oneof=sqlite file memory"`
	Path    string `yaml:"path" validate:"required_unless=Backend memory"`
	Key     string `yaml:"key" validate:"required"`
}

// LogConfig selects the logger
type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// EditorConfig controls the editing session
type EditorConfig struct {
	// Seed makes generated ids, colors and positions reproducible. 0 seeds
	// from the clock.
	Seed        uint64 `yaml:"seed,omitempty"`
	SampleGraph bool   `yaml:"sample_graph"`
	// WatchFile, when set, is re-imported whenever it changes on disk
	WatchFile string `yaml:"watch_file,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Package config holds the engine configuration and its YAML loader.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selects the filter implementation set registered at startup.
type Backend string

const (
	BackendCPU    Backend = "cpu"
	BackendVips   Backend = "vips"
	BackendOpenCV Backend = "opencv"
)

// Config is the top-level configuration struct.  All fields have safe defaults
// so callers can start with Config{} and override only what they need.
type Config struct {
	// Backend selects the implementation set; default cpu.  The vips and
	// opencv backends are CGO-backed and must be registered by the caller.
	Backend Backend `yaml:"backend"`

	// Render job pool controls.
	WorkerCount int           `yaml:"worker_count"` // default: runtime.NumCPU()
	QueueSize   int           `yaml:"queue_size"`   // max queued jobs; default 64
	JobTimeout  time.Duration `yaml:"job_timeout"`

	// Final output scale applied when a render call does not override it.
	DefaultScale float64 `yaml:"default_scale"` // default 1

	// Vips backend knobs; ignored elsewhere.
	Vips VipsConfig `yaml:"vips"`

	// Logging.
	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error"
}

// VipsConfig configures the libvips backend.
type VipsConfig struct {
	MaxCacheSize int  `yaml:"max_cache_size"`
	ReportLeaks  bool `yaml:"report_leaks"`
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		Backend:      BackendCPU,
		WorkerCount:  0, // resolved at runtime to NumCPU
		QueueSize:    64,
		JobTimeout:   30 * time.Second,
		DefaultScale: 1,
		LogLevel:     "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	switch c.Backend {
	case "", BackendCPU, BackendVips, BackendOpenCV:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.DefaultScale < 0 {
		return errors.New("config: DefaultScale must not be negative")
	}
	if c.QueueSize < 0 {
		return errors.New("config: QueueSize must not be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// yamlConfig mirrors Config with job_timeout as a string, since the YAML
// decoder has no native duration support.
type yamlConfig struct {
	Backend      Backend    `yaml:"backend"`
	WorkerCount  int        `yaml:"worker_count"`
	QueueSize    int        `yaml:"queue_size"`
	JobTimeout   string     `yaml:"job_timeout"`
	DefaultScale float64    `yaml:"default_scale"`
	Vips         VipsConfig `yaml:"vips"`
	LogLevel     string     `yaml:"log_level"`
}

// UnmarshalYAML decodes a Config, accepting job_timeout as a Go duration
// string ("30s", "2m").  Absent fields keep their current values, so a
// partial document layers over whatever the target already holds.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	raw := yamlConfig{
		Backend:      c.Backend,
		WorkerCount:  c.WorkerCount,
		QueueSize:    c.QueueSize,
		JobTimeout:   c.JobTimeout.String(),
		DefaultScale: c.DefaultScale,
		Vips:         c.Vips,
		LogLevel:     c.LogLevel,
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	d, err := time.ParseDuration(raw.JobTimeout)
	if err != nil {
		return fmt.Errorf("config: job_timeout: %w", err)
	}

	c.Backend = raw.Backend
	c.WorkerCount = raw.WorkerCount
	c.QueueSize = raw.QueueSize
	c.JobTimeout = d
	c.DefaultScale = raw.DefaultScale
	c.Vips = raw.Vips
	c.LogLevel = raw.LogLevel
	return nil
}

// LoadFile reads a YAML configuration file, layering it over Default().
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

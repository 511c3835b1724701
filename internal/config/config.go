// Package config provides configuration loading and management for the ontology registry.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/ontology-registry/internal/manager"
	"github.com/stacklok/ontology-registry/internal/telemetry"
)

const (
	// EnvPrefix is the prefix of environment variables read by onto-registry
	EnvPrefix = "ONTO_REGISTRY"

	// DefaultEndpoint is the management service base URL used when none is configured
	DefaultEndpoint = "http://localhost:9110"

	// DefaultRequestTimeout bounds a single management call
	DefaultRequestTimeout = manager.DefaultTimeout

	// DefaultWaitTimeout bounds how long to wait for the management service
	DefaultWaitTimeout = 30 * time.Second

	// WaitForever makes readiness waits block until cancelled
	WaitForever time.Duration = -1
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Manager configures the connection to the management service
	Manager ManagerConfig `yaml:"manager"`

	// Telemetry configures OpenTelemetry tracing and metrics (optional)
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// ManagerConfig defines how the registry talks to the management service
type ManagerConfig struct {
	// Endpoint is the base URL of the management service
	Endpoint string `yaml:"endpoint,omitempty"`

	// RequestTimeout bounds a single management call (Go duration format, e.g. "10s")
	RequestTimeout string `yaml:"requestTimeout,omitempty"`

	// WaitTimeout bounds readiness waits. "-1" or "forever" waits indefinitely.
	WaitTimeout string `yaml:"waitTimeout,omitempty"`

	// Verbosity is the client log verbosity: silent, error, info or debug
	Verbosity string `yaml:"verbosity,omitempty"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{}
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error
	if err := c.Manager.validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}
	return errors.Join(errs...)
}

func (m *ManagerConfig) validate() error {
	var errs []error

	if m.Endpoint != "" {
		u, err := url.Parse(m.Endpoint)
		if err != nil {
			errs = append(errs, fmt.Errorf("manager.endpoint: %w", err))
		} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("manager.endpoint must be an http or https URL, got %q", m.Endpoint))
		}
	}

	if m.RequestTimeout != "" {
		d, err := time.ParseDuration(m.RequestTimeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("manager.requestTimeout: invalid duration %q: %w", m.RequestTimeout, err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("manager.requestTimeout must be positive, got %s", d))
		}
	}

	if _, err := ParseWaitTimeout(m.WaitTimeout); err != nil {
		errs = append(errs, fmt.Errorf("manager.waitTimeout: %w", err))
	}

	if _, err := manager.ParseVerbosity(m.Verbosity); err != nil {
		errs = append(errs, fmt.Errorf("manager.verbosity: %w", err))
	}

	return errors.Join(errs...)
}

// GetEndpoint returns the management service URL, using DefaultEndpoint if not specified
func (m *ManagerConfig) GetEndpoint() string {
	if m.Endpoint == "" {
		return DefaultEndpoint
	}
	return strings.TrimSuffix(m.Endpoint, "/")
}

// GetRequestTimeout returns the per-call timeout
func (m *ManagerConfig) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(m.RequestTimeout)
	if err != nil || d <= 0 {
		return DefaultRequestTimeout
	}
	return d
}

// GetWaitTimeout returns the readiness wait timeout. A negative value means wait forever.
func (m *ManagerConfig) GetWaitTimeout() time.Duration {
	d, err := ParseWaitTimeout(m.WaitTimeout)
	if err != nil {
		return DefaultWaitTimeout
	}
	return d
}

// GetVerbosity returns the client log verbosity
func (m *ManagerConfig) GetVerbosity() manager.Verbosity {
	v, err := manager.ParseVerbosity(m.Verbosity)
	if err != nil {
		return manager.DefaultVerbosity
	}
	return v
}

// ParseWaitTimeout parses a readiness wait timeout. The empty string yields
// DefaultWaitTimeout; "-1", "forever" and any negative duration yield WaitForever.
func ParseWaitTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return DefaultWaitTimeout, nil
	case "-1", "forever":
		return WaitForever, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return WaitForever, nil
	}
	return d, nil
}

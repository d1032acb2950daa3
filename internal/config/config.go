// Package config holds the server settings.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// environment variables, then command-line flags (applied by the caller).
//
// Environment variables:
//   - PORT: listen port (for cloud deployments)
//   - IPWEB_HOST: listen host
//   - IPWEB_STRATEGY: address lookup strategy (hostname, route, interface)
//   - IPWEB_LOG_LEVEL: zerolog level name
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"ipweb/internal/network"
)

const (
	// DefaultPort is the port tried first when none is configured.
	DefaultPort = 8080

	// DefaultPortProbe is how many consecutive ports are tried when the
	// configured one is busy.
	DefaultPortProbe = 10

	// DefaultFallbackText is shown instead of an address when resolution fails.
	DefaultFallbackText = network.DefaultFallback
)

// Lookup strategy names.
const (
	StrategyHostname  = network.StrategyHostname
	StrategyRoute     = network.StrategyRoute
	StrategyInterface = network.StrategyInterface
)

// RateLimit bounds requests per client address.
type RateLimit struct {
	// Requests allowed per Window. Zero disables limiting.
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Config is the complete server configuration.
type Config struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	PortProbe int    `yaml:"port_probe"`

	// Strategy selects how the local address is looked up.
	Strategy string `yaml:"strategy"`
	// FallbackText replaces the address on the home page when lookup fails.
	FallbackText string `yaml:"fallback_text"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	RateLimit       RateLimit     `yaml:"rate_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         DefaultPort,
		PortProbe:    DefaultPortProbe,
		Strategy:     StrategyHostname,
		FallbackText: DefaultFallbackText,
		LogLevel:     "info",
		LogFormat:    "console",
		RateLimit: RateLimit{
			Requests: 300, // per minute per client
			Window:   time.Minute,
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads the YAML file at path over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = p
	}
	if v, ok := lookup("IPWEB_HOST"); ok && v != "" {
		c.Host = v
	}
	if v, ok := lookup("IPWEB_STRATEGY"); ok && v != "" {
		c.Strategy = v
	}
	if v, ok := lookup("IPWEB_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.Port < 0 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.PortProbe < 1 {
		err = multierr.Append(err, fmt.Errorf("port_probe must be at least 1, got %d", c.PortProbe))
	}
	switch c.Strategy {
	case StrategyHostname, StrategyRoute, StrategyInterface:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown strategy %q", c.Strategy))
	}
	if c.FallbackText == "" {
		err = multierr.Append(err, fmt.Errorf("fallback_text must not be empty"))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	if c.RateLimit.Requests < 0 {
		err = multierr.Append(err, fmt.Errorf("rate_limit.requests must not be negative"))
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		err = multierr.Append(err, fmt.Errorf("rate_limit.window must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("shutdown_timeout must be positive"))
	}
	return err
}

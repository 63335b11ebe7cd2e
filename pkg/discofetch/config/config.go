// Package config holds run configuration loaded from an optional TOML
// file layered over defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Site configures the remote catalog endpoint.
type Site struct {
	BaseURL               string `toml:"base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Run configures pass execution.
type Run struct {
	Workers int `toml:"workers"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full run configuration.
type Config struct {
	Site    Site    `toml:"site"`
	Run     Run     `toml:"run"`
	Logging Logging `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Site: Site{
			BaseURL:               "https://www.discogs.com",
			RequestTimeoutSeconds: 30,
		},
		Run: Run{Workers: 1},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks configured values.
func (c *Config) Validate() error {
	if c.Site.BaseURL == "" {
		return errors.New("site.base_url must not be empty")
	}
	if c.Site.RequestTimeoutSeconds <= 0 {
		return errors.New("site.request_timeout_seconds must be positive")
	}
	if c.Run.Workers <= 0 {
		return errors.New("run.workers must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// RequestTimeout returns the site timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Site.RequestTimeoutSeconds) * time.Second
}

// Sample returns the annotated sample configuration file.
func Sample() string {
	return sampleConfig
}

// Package config holds all skipai configuration: build channel, shared
// store location, suppression selectors and pacing, messaging timeouts,
// and logging. Loaded from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all skipai configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Build channel: development or production.
	Channel Channel `yaml:"channel"`

	Storage     StorageConfig     `yaml:"storage"`
	Suppression SuppressionConfig `yaml:"suppression"`
	Messaging   MessagingConfig   `yaml:"messaging"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:        "skipai",
		Version:     "1.2.0",
		Channel:     ChannelProduction,
		Storage:     DefaultStorageConfig(),
		Suppression: DefaultSuppressionConfig(),
		Messaging:   DefaultMessagingConfig(),
		Logging:     DefaultLoggingConfig(),
	}
}

// Load loads configuration from a YAML file, returning defaults when the
// file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file is fine; defaults plus environment.
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies SKIPAI_* environment variables on top of the
// file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SKIPAI_CHANNEL"); v != "" {
		c.Channel = Channel(v)
	}
	if v := os.Getenv("SKIPAI_DB_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := os.Getenv("SKIPAI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if !c.Channel.Valid() {
		return fmt.Errorf("invalid channel %q (want development or production)", c.Channel)
	}
	if err := c.Suppression.Validate(); err != nil {
		return err
	}
	if err := c.Messaging.Validate(); err != nil {
		return err
	}
	return nil
}

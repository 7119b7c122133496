package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/felixmde/beesync/internal/modules"
	"github.com/felixmde/beesync/internal/secret"
)

// Config represents the application configuration. A module section left
// out of the file disables that module for the run.
type Config struct {
	Beeminder BeeminderConfig          `toml:"beeminder"`
	Logging   LoggingConfig            `toml:"logging"`
	CleanTube *modules.CleanTubeConfig `toml:"clean_tube"`
	CleanView *modules.CleanViewConfig `toml:"clean_view"`
	Focusmate *modules.FocusmateConfig `toml:"focusmate"`
	Fatebook  *modules.FatebookConfig  `toml:"fatebook"`
	Category  *modules.CategoryConfig  `toml:"category"`
	GitHub    *modules.GitHubConfig    `toml:"github"`
}

// BeeminderConfig holds the goal account settings
type BeeminderConfig struct {
	Username string      `toml:"username"`
	Key      secret.Spec `toml:"key"`
	BaseURL  string      `toml:"base_url"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFromFile loads configuration from a TOML file
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	// Parse TOML file
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// LoadConfig loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. Command-line flags (handled by caller)
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// If no config file specified, return defaults
	if configPath == "" {
		return config, nil
	}

	// Load from file if it exists
	fileConfig, err := LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}

	return fileConfig, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Account validation
	if c.Beeminder.Username == "" {
		return fmt.Errorf("beeminder username must be specified")
	}
	if err := c.Beeminder.Key.Validate(); err != nil {
		return fmt.Errorf("beeminder key: %w", err)
	}

	// Module validation, only for sections that are present
	if c.CleanTube != nil {
		if err := c.CleanTube.Validate(); err != nil {
			return err
		}
	}
	if c.CleanView != nil {
		if err := c.CleanView.Validate(); err != nil {
			return err
		}
	}
	if c.Focusmate != nil {
		if err := c.Focusmate.Validate(); err != nil {
			return err
		}
	}
	if c.Fatebook != nil {
		if err := c.Fatebook.Validate(); err != nil {
			return err
		}
	}
	if c.Category != nil {
		if err := c.Category.Validate(); err != nil {
			return err
		}
	}
	if c.GitHub != nil {
		if err := c.GitHub.Validate(); err != nil {
			return err
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}

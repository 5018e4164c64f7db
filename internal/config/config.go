// Package config provides configuration loading and validation for the
// server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or environment
// variables.
type Config struct {
	// Server
	Port int `json:"port,omitempty"` // HTTP listen port

	// Storage
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Model access
	APIKey string `json:"api_key,omitempty"` // Gemini API key; empty disables model features

	// Browser behavior
	Headless               bool `json:"headless"`                           // Run Chrome without a window
	NavigateTimeoutSeconds int  `json:"navigate_timeout_seconds,omitempty"` // Page load budget

	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Port:                   8080,
		Headless:               true,
		NavigateTimeoutSeconds: 60,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.NavigateTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'navigate_timeout_seconds' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-value fields filled from
// defaults. File values win over defaults; explicit zero ports fall back.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.NavigateTimeoutSeconds == 0 {
		result.NavigateTimeoutSeconds = defaults.NavigateTimeoutSeconds
	}
	if !result.Verbose {
		result.Verbose = defaults.Verbose
	}
	return result
}

// ApplyEnv overlays environment variables onto the configuration. The
// environment wins over file values so deployments can override without
// editing config files.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("APPLYPILOT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("APPLYPILOT_HEADLESS"); v != "" {
		c.Headless = v != "false" && v != "0"
	}
}

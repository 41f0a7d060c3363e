// Package config handles loading and managing deckgen configuration.
//
// This package provides both file-based and programmatic configuration
// management for deckgen. It supports TOML configuration files following
// XDG Base Directory specifications, as well as programmatic configuration
// creation for library usage and tests.
//
// Credentials are deliberately absent from configuration: API keys arrive
// with each request and are never persisted. Per-provider sections carry
// only transport overrides (base URL) and default-model overrides.
//
// Example TOML configuration:
//
//	listen_addr = ":8000"
//	request_timeout_seconds = 60
//	max_upload_bytes = 20971520
//	log_level = "info"
//	log_format = "console"
//
//	[llms.openai]
//	model = "gpt-4o-mini"
//
//	[llms.aipipe]
//	base_url = "https://aipipe.org/openai/v1/chat/completions"
//
// Example programmatic usage:
//
//	cfg := config.NewConfig(30, map[string]config.LLMConfig{
//		"openai": {Model: "gpt-4o-mini"},
//	})
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	appName        = "deckgen"
	configFileName = "config.toml"
)

// DefaultMaxUploadBytes caps the whole multipart request body, template
// included, at 20 MB.
const DefaultMaxUploadBytes = 20 * 1024 * 1024

// Config holds the application's configuration.
type Config struct {
	// ListenAddr is the HTTP listen address for the server binary.
	ListenAddr string `toml:"listen_addr"`

	// RequestTimeoutSeconds sets the timeout for LLM API requests in seconds.
	// If <= 0, a default timeout of 60 seconds will be used.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`

	// MaxUploadBytes caps the inbound request body size. If <= 0, the 20 MB
	// default applies.
	MaxUploadBytes int64 `toml:"max_upload_bytes"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`

	// LogFormat is "console" or "json".
	LogFormat string `toml:"log_format"`

	// LLMs contains provider-specific overrides keyed by canonical provider
	// name. All fields are optional; providers have working defaults.
	LLMs map[string]LLMConfig `toml:"llms"`
}

// LLMConfig holds per-provider overrides.
//
// BaseURL is honored by the HTTP-based adapters (openai, anthropic, aipipe);
// Gemini always talks to Google's endpoint through its SDK.
type LLMConfig struct {
	// BaseURL overrides the provider's fixed endpoint. Mostly useful for
	// relays and tests.
	BaseURL string `toml:"base_url,omitempty"`

	// Model is an optional default model for the provider, used when the
	// request does not carry its own override.
	Model string `toml:"model,omitempty"`
}

// Default configuration values.
func defaultConfig() Config {
	return Config{
		ListenAddr:            ":8000",
		RequestTimeoutSeconds: 60, // 60-second timeout for LLM requests
		MaxUploadBytes:        DefaultMaxUploadBytes,
		LogLevel:              "info",
		LogFormat:             "console",
		LLMs:                  map[string]LLMConfig{},
	}
}

// GetConfigFilePath determines the appropriate configuration file path based
// on XDG specs:
//   - If XDG_CONFIG_HOME is set, uses $XDG_CONFIG_HOME/deckgen/config.toml
//   - Otherwise, uses $HOME/.config/deckgen/config.toml
//
// The returned path may not exist - use os.Stat to check for existence.
func GetConfigFilePath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine user home directory: %w", err)
		}
		configHome = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configHome, appName, configFileName), nil
}

// Load reads the XDG-located configuration file when it exists and merges it
// over defaults. A missing file is not an error; defaults are returned.
func Load() (Config, error) {
	cfgPath, err := GetConfigFilePath()
	if err != nil {
		return Config{}, fmt.Errorf("failed to determine config path: %w", err)
	}

	if _, err := os.Stat(cfgPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to access config file %s: %w", cfgPath, err)
	}

	return LoadFromFile(cfgPath)
}

// LoadFromFile loads configuration from a specific file path.
//
// This is a library-friendly function: it loads the TOML configuration from
// the specified path and merges it with default values. Returns an error if
// the file doesn't exist or contains invalid TOML.
func LoadFromFile(filePath string) (Config, error) {
	// Start with default config
	cfg := defaultConfig()

	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("configuration file not found at %s", filePath)
		}
		return Config{}, fmt.Errorf("failed to access config file %s: %w", filePath, err)
	}

	meta, err := toml.DecodeFile(filePath, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to decode TOML config file %s: %w", filePath, err)
	}
	if len(meta.Undecoded()) > 0 {
		fmt.Fprintf(os.Stderr, "Warning: Unknown configuration keys found in %s: %v\n", filePath, meta.Undecoded())
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.LLMs == nil {
		cfg.LLMs = map[string]LLMConfig{}
	}

	return cfg, nil
}

// GetLLMConfig retrieves the specific configuration for a given provider.
func (c *Config) GetLLMConfig(providerName string) (LLMConfig, bool) {
	llmCfg, exists := c.LLMs[providerName]
	return llmCfg, exists
}

// NewConfig creates a new configuration programmatically (library-friendly
// approach), suitable for tests and embedding applications.
func NewConfig(timeoutSeconds int, providers map[string]LLMConfig) Config {
	cfg := defaultConfig()
	cfg.RequestTimeoutSeconds = timeoutSeconds
	if providers != nil {
		cfg.LLMs = providers
	}
	return cfg
}

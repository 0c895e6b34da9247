// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonathan/course-ingest/internal/llm"
)

// Config is the runtime configuration. It is read from an optional JSON file and then
// overridden by environment variables; anything still unset takes a default.
type Config struct {
	DatabaseURL       string `json:"database_url,omitempty"`       // PostgreSQL connection URL
	APIKey            string `json:"api_key,omitempty"`            // Gemini API key
	Port              int    `json:"port,omitempty"`               // HTTP port for serve
	LogMode           string `json:"log_mode,omitempty"`           // dev or prod
	ExtractionTimeout string `json:"extraction_timeout,omitempty"` // Go duration, e.g. "90s"
	LLMTier           string `json:"llm_tier,omitempty"`           // lite, standard or advanced
	Offline           bool   `json:"offline,omitempty"`            // use the markdown heuristics instead of the LLM
}

// Environment variables read by FromEnv.
const (
	EnvDatabaseURL       = "DATABASE_URL"
	EnvAPIKey            = "GEMINI_API_KEY"
	EnvPort              = "PORT"
	EnvLogMode           = "LOG_MODE"
	EnvExtractionTimeout = "EXTRACTION_TIMEOUT"
	EnvLLMTier           = "LLM_TIER"
	EnvOffline           = "OFFLINE_EXTRACTION"
)

// Defaults returns the values used for anything left unset.
func Defaults() Config {
	return Config{
		Port:              8080,
		LogMode:           "dev",
		ExtractionTimeout: "90s",
		LLMTier:           string(llm.TierStandard),
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

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

// FromEnv reads the environment variables listed above. Unset variables leave fields zero.
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:       os.Getenv(EnvDatabaseURL),
		APIKey:            os.Getenv(EnvAPIKey),
		LogMode:           os.Getenv(EnvLogMode),
		ExtractionTimeout: os.Getenv(EnvExtractionTimeout),
		LLMTier:           os.Getenv(EnvLLMTier),
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config error: %s must be an integer: %w", EnvPort, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv(EnvOffline); v != "" {
		offline, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config error: %s must be a boolean: %w", EnvOffline, err)
		}
		cfg.Offline = offline
	}
	return cfg, nil
}

// Load builds the effective configuration: environment over file (when path is set) over defaults.
func Load(path string) (*Config, error) {
	base := Config{}
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		base = *fileCfg
	}

	env, err := FromEnv()
	if err != nil {
		return nil, err
	}

	merged := env.MergeWithDefaults(base.MergeWithDefaults(Defaults()))
	merged.Offline = env.Offline || base.Offline
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks that the configuration has valid values.
// Required values depend on the command and are checked where they are used.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	switch c.LogMode {
	case "", "dev", "development", "prod", "production":
	default:
		return fmt.Errorf("config error: 'log_mode' must be dev or prod, got %q", c.LogMode)
	}
	if c.ExtractionTimeout != "" {
		d, err := time.ParseDuration(c.ExtractionTimeout)
		if err != nil {
			return fmt.Errorf("config error: 'extraction_timeout' is not a duration: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("config error: 'extraction_timeout' must be non-negative")
		}
	}
	if _, err := llm.ParseTier(c.LLMTier); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// Bools cannot distinguish unset from false and are not merged.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.LogMode == "" {
		result.LogMode = defaults.LogMode
	}
	if result.ExtractionTimeout == "" {
		result.ExtractionTimeout = defaults.ExtractionTimeout
	}
	if result.LLMTier == "" {
		result.LLMTier = defaults.LLMTier
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	return result
}

// ExtractionDeadline returns the parsed extraction timeout; zero means no deadline.
func (c *Config) ExtractionDeadline() time.Duration {
	d, err := time.ParseDuration(c.ExtractionTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Tier returns the configured model tier.
func (c *Config) Tier() llm.ModelTier {
	tier, err := llm.ParseTier(c.LLMTier)
	if err != nil {
		return llm.TierStandard
	}
	return tier
}

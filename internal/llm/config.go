// Package llm provides LLM configuration and client abstractions used by course extraction.
package llm

import (
	"fmt"
	"strings"
)

// ModelTier represents the capability level of a model
type ModelTier string

const (
	// TierLite is for short, shallow structures
	TierLite ModelTier = "lite"
	// TierStandard is the default for course structure extraction
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long or loosely formatted curricula
	TierAdvanced ModelTier = "advanced"
)

// ParseTier converts a configuration value into a ModelTier. Empty means TierStandard.
func ParseTier(s string) (ModelTier, error) {
	switch ModelTier(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return TierStandard, nil
	case TierLite:
		return TierLite, nil
	case TierStandard:
		return TierStandard, nil
	case TierAdvanced:
		return TierAdvanced, nil
	}
	return "", fmt.Errorf("unknown model tier %q (want lite, standard or advanced)", s)
}

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the default configuration (Gemini)
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: 0.1,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of the config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	next := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string, len(c.Models)+1),
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		next.Models[k] = v
	}
	next.Models[tier] = model
	return next
}

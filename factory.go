// Package deckgen provides the factory for creating LLM clients.
package deckgen

import (
	"context" // Required for Gemini client initialization
	"strings"

	"github.com/xostack/deckgen/aipipe"
	"github.com/xostack/deckgen/anthropic"
	"github.com/xostack/deckgen/config"
	"github.com/xostack/deckgen/gemini"
	"github.com/xostack/deckgen/openai"
	"github.com/xostack/deckgen/provider"
)

// providerAliases maps accepted provider identifiers to their canonical name.
// The set is closed and matched case-insensitively.
var providerAliases = map[string]string{
	"openai":        "openai",
	"anthropic":     "anthropic",
	"gemini":        "gemini",
	"google":        "gemini",
	"google-gemini": "gemini",
	"aipipe":        "aipipe",
}

// SupportedProviders returns the canonical provider identifiers the factory
// accepts, in a stable order.
func SupportedProviders() []string {
	return []string{"openai", "anthropic", "gemini", "aipipe"}
}

// CanonicalProvider resolves a user-supplied provider identifier to its
// canonical lowercase name. ok is false for identifiers outside the set.
func CanonicalProvider(name string) (canonical string, ok bool) {
	canonical, ok = providerAliases[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// GetClient is a factory function that returns an LLM client for the given
// provider identifier.
//
// Credentials arrive with each request rather than living in configuration,
// so the caller passes them here; cfg contributes the request timeout and any
// per-provider base-URL or default-model overrides.
//
// Parameters:
//   - providerName: one of "openai", "anthropic", "gemini" (aliases "google",
//     "google-gemini"), "aipipe"; matched case-insensitively
//   - modelOverride: optional model name; the provider default is used when empty
//   - apiKey: the caller's credential for the selected provider
//   - cfg: configuration with timeout and per-provider overrides
//   - debugMode: whether to enable verbose logging for debugging
//
// Returns a provider-specific client implementing the Client interface, or a
// *provider.Error when the identifier is outside the closed set or the
// credential is missing.
//
// Making it a variable to allow for easy mocking in tests.
var GetClient func(providerName, modelOverride, apiKey string, cfg config.Config, debugMode bool) (Client, error) = func(providerName, modelOverride, apiKey string, cfg config.Config, debugMode bool) (Client, error) {
	name, ok := CanonicalProvider(providerName)
	if !ok {
		return nil, provider.Errorf("", 0, "unsupported provider: %s", providerName)
	}

	llmCfg, _ := cfg.GetLLMConfig(name)

	model := modelOverride
	if model == "" {
		model = llmCfg.Model
	}

	requestTimeout := cfg.RequestTimeoutSeconds
	if requestTimeout <= 0 {
		requestTimeout = 60 // Default to 60 seconds if not set or invalid
	}

	switch name {
	case "openai":
		return openai.NewClient(apiKey, model, llmCfg.BaseURL, requestTimeout, debugMode)
	case "anthropic":
		return anthropic.NewClient(apiKey, model, llmCfg.BaseURL, requestTimeout, debugMode)
	case "gemini":
		return gemini.NewClient(context.Background(), apiKey, model, requestTimeout, debugMode)
	case "aipipe":
		return aipipe.NewClient(apiKey, model, llmCfg.BaseURL, requestTimeout, debugMode)
	default:
		// Unreachable while providerAliases and this switch stay in sync.
		return nil, provider.Errorf("", 0, "unsupported provider: %s", providerName)
	}
}

// Package deckgen turns free-form text into a PowerPoint deck.
//
// The pipeline has two halves. A slide plan is first requested from one of
// several LLM providers:
//   - OpenAI (cloud-based)
//   - Anthropic (cloud-based)
//   - Google Gemini (cloud-based)
//   - AI-Pipe (OpenAI-compatible relay)
//
// The plan is then rendered into an uploaded .pptx/.potx template, reusing
// the template's theme, masters, layouts, and images.
//
// The core interface is deliberately small so applications can switch
// providers, or substitute their own, with minimal code changes.
//
// Example usage:
//
//	client, err := deckgen.GetClient("openai", "", apiKey, cfg, false)
//	if err != nil {
//		log.Fatal(err)
//	}
//	gen := plan.NewGenerator(client)
//	p, err := gen.Plan(ctx, plan.Request{Text: text, IncludeNotes: true})
//	if err != nil {
//		log.Fatal(err)
//	}
//	deckBytes, report, err := deck.NewBuilder(logger).Build(templateBytes, p)
//
// All provider clients implement the Client interface, ensuring consistent
// behavior across backends.
package deckgen

import (
	"context"
)

// Client is the interface that all LLM provider clients must implement.
//
// This interface provides a unified way to ask different LLM providers for a
// slide plan, abstracting away provider-specific transport details while
// maintaining a consistent API surface.
//
// All methods should be safe for concurrent use unless otherwise specified.
type Client interface {
	// Generate sends a system instruction plus a user message to the
	// provider's chat/completion endpoint and returns the raw textual
	// completion.
	//
	// The context can be used for cancellation and timeout handling.
	// Implementations should respect context cancellation and return
	// appropriate errors.
	//
	// Providers that have no native system-message concept should fold the
	// system prompt into the request in whatever form the provider expects;
	// callers treat the pair as a single logical prompt.
	//
	// Transport failures, non-success HTTP statuses, and missing response
	// fields are reported as *provider.Error so callers can distinguish
	// "the provider misbehaved" from internal faults.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ProviderName returns the name of the LLM provider (e.g. "openai",
	// "anthropic", "gemini", "aipipe").
	//
	// The returned name is a lowercase, stable identifier that matches the
	// provider's configuration key.
	ProviderName() string
}

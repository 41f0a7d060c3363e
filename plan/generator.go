package plan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xostack/deckgen/provider"
)

// Client is the subset of the deckgen client surface the generator needs.
// Declared here so the package depends only on the capability, not the
// factory.
type Client interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	ProviderName() string
}

// Generator asks an LLM client for a slide plan and validates the result.
type Generator struct {
	client Client
}

// NewGenerator returns a Generator backed by the given client.
func NewGenerator(client Client) *Generator {
	return &Generator{client: client}
}

// planPayload is the envelope the provider is instructed to return.
type planPayload struct {
	Slides []Slide `json:"slides"`
}

// Plan sends the planning prompts to the provider and returns the
// normalized slide plan.
//
// Provider transport failures pass through unchanged (they are already
// *provider.Error); a completion that cannot be coerced into the expected
// JSON envelope, or that carries an empty slides list, also becomes a
// *provider.Error so callers can attribute it to the model rather than to
// this process.
func (g *Generator) Plan(ctx context.Context, req Request) (Plan, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("input text is required")
	}

	raw, err := g.client.Generate(ctx, systemPrompt, buildUserMessage(req.Guidance, req.Text))
	if err != nil {
		return nil, err
	}

	name := g.client.ProviderName()

	var payload planPayload
	if err := json.Unmarshal([]byte(coerceJSON(raw)), &payload); err != nil {
		return nil, provider.Errorf(name, 0, "provider returned non-JSON output: %v", err)
	}
	if len(payload.Slides) == 0 {
		return nil, provider.Errorf(name, 0, "no slides returned by provider")
	}

	return normalize(payload.Slides, req.IncludeNotes), nil
}

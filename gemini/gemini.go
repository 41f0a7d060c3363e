// Package gemini provides an LLM client for Google's Gemini models.
package gemini

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/xostack/deckgen/provider"
)

const (
	defaultGeminiModel = "gemini-1.5-pro"
	providerName       = "gemini"
)

// Client implements the deckgen.Client interface for Gemini.
type Client struct {
	genaiClient *genai.Client
	modelName   string
}

// NewClient creates a new Gemini client.
// It requires a context for initialization (can be context.Background()),
// the API key, an optional model name (defaults to gemini-1.5-pro),
// a requestTimeoutSeconds parameter for consistency with other providers,
// and a debugMode flag.
func NewClient(ctx context.Context, apiKey string, modelOverride string, requestTimeoutSeconds int, debugMode bool) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	// Apply timeout to context if specified
	if requestTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(requestTimeoutSeconds)*time.Second)
		defer cancel()
		if debugMode {
			log.Printf("Using timeout for Gemini client: %d seconds", requestTimeoutSeconds)
		}
	}

	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	modelToUse := defaultGeminiModel
	if modelOverride != "" {
		modelToUse = modelOverride
		if debugMode {
			log.Printf("Using overridden Gemini model: %s", modelToUse)
		}
	} else {
		if debugMode {
			log.Printf("Using default Gemini model: %s", modelToUse)
		}
	}

	return &Client{
		genaiClient: genaiClient,
		modelName:   modelToUse,
	}, nil
}

// Generate sends the prompts to the Gemini model and returns the text
// response. Gemini has no separate system role in this API surface, so the
// system and user prompts are folded into one request with a trailing
// strict-JSON reminder.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.genaiClient == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	model := c.genaiClient.GenerativeModel(c.modelName)
	if model == nil {
		return "", fmt.Errorf("failed to get generative model: %s", c.modelName)
	}
	model.SetTemperature(0.2)

	prompt := fmt.Sprintf("%s\n\nUser Input:\n%s\n\nReturn STRICT JSON only.", systemPrompt, userPrompt)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", provider.Errorf(providerName, 0, "failed to generate content: %v", err)
	}

	// The response can have multiple candidates, we'll use the first one.
	// Each candidate can have multiple parts, we'll concatenate text parts.
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
			return "", provider.Errorf(providerName, 0, "content generation blocked due to safety settings")
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return "", provider.Errorf(providerName, 0, "prompt blocked: %s", resp.PromptFeedback.BlockReason.String())
		}
		return "", provider.Errorf(providerName, 0, "response was empty or malformed")
	}

	var resultText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			resultText += string(txt)
		} else {
			// This pipeline expects text output from the LLM. If other parts
			// are returned (e.g. function calls, blobs), we ignore them.
			log.Printf("Gemini client received non-text part: %T. Ignoring.", part)
		}
	}

	if resultText == "" {
		return "", provider.Errorf(providerName, 0, "response contained no usable text content")
	}

	return resultText, nil
}

// ProviderName returns the name of this provider.
func (c *Client) ProviderName() string {
	return providerName
}

// Close cleans up the genaiClient.
func (c *Client) Close() error {
	if c.genaiClient != nil {
		return c.genaiClient.Close()
	}
	return nil
}

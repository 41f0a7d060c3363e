// Package openai provides an LLM client for OpenAI's chat completions API,
// built on the official openai-go SDK.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/xostack/deckgen/provider"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	providerName       = "openai"
)

// Client implements the deckgen.Client interface for OpenAI.
type Client struct {
	opts      []option.RequestOption
	modelName string
}

// NewClient creates a new OpenAI client.
// baseURLOverride points the SDK at a compatible relay when non-empty.
// debugMode controls verbose logging.
func NewClient(apiKey string, modelOverride string, baseURLOverride string, requestTimeoutSeconds int, debugMode bool) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	modelToUse := defaultOpenAIModel
	if modelOverride != "" {
		modelToUse = modelOverride
		if debugMode {
			log.Printf("Using overridden OpenAI model: %s", modelToUse)
		}
	} else {
		if debugMode {
			log.Printf("Using default OpenAI model: %s", modelToUse)
		}
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURLOverride != "" {
		opts = append(opts, option.WithBaseURL(baseURLOverride))
	}
	if requestTimeoutSeconds > 0 {
		opts = append(opts, option.WithRequestTimeout(time.Duration(requestTimeoutSeconds)*time.Second))
	}

	return &Client{
		opts:      opts,
		modelName: modelToUse,
	}, nil
}

// Generate sends the system and user prompts to the chat completions API
// with strict-JSON output requested, and returns the first choice's text.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.opts == nil {
		return "", fmt.Errorf("openai client not initialized")
	}

	client := oai.NewClient(c.opts...)

	resp, err := client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: oai.ChatModel(c.modelName),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(userPrompt),
		},
		Temperature: oai.Float(0.2),
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &oai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return "", provider.StatusError(providerName, apiErr.StatusCode, []byte(apiErr.Message))
		}
		return "", provider.Errorf(providerName, 0, "request failed: %v", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", provider.Errorf(providerName, 0, "response missing content")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ProviderName returns the name of this provider.
func (c *Client) ProviderName() string {
	return providerName
}

// Close is a placeholder.
func (c *Client) Close() error {
	return nil
}

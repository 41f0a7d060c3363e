// Package aipipe provides an LLM client for the AI-Pipe relay, which exposes
// an OpenAI-compatible chat completions API.
package aipipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/xostack/deckgen/provider"
)

const (
	defaultAIPipeModel = "gpt-4o-mini" // Relay default, user can override
	providerName       = "aipipe"
	aipipeAPIEndpoint  = "https://aipipe.org/openai/v1/chat/completions"
	maxRetries         = 1 // Simple retry for transient network issues
	retryDelay         = 1 * time.Second
)

// Client implements the deckgen.Client interface for AI-Pipe.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	modelName  string
}

// chatMessage represents a single message in the chat completion request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the structure for the request body.
type chatCompletionRequest struct {
	Messages       []chatMessage  `json:"messages"`
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
	Stream         bool           `json:"stream"` // Always false
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatCompletionResponseChoice is a single choice in the response.
type chatCompletionResponseChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// chatCompletionResponse is the structure for the response body.
type chatCompletionResponse struct {
	ID      string                         `json:"id"`
	Object  string                         `json:"object"`
	Created int64                          `json:"created"`
	Model   string                         `json:"model"`
	Choices []chatCompletionResponseChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error,omitempty"`
}

// NewClient creates a new AI-Pipe client.
// baseURLOverride replaces the fixed endpoint when non-empty (relays, tests).
// debugMode controls verbose logging.
func NewClient(apiKey string, modelOverride string, baseURLOverride string, requestTimeoutSeconds int, debugMode bool) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("aipipe API key is required")
	}

	modelToUse := defaultAIPipeModel
	if modelOverride != "" {
		modelToUse = modelOverride
		if debugMode {
			log.Printf("Using overridden AI-Pipe model: %s", modelToUse)
		}
	} else {
		if debugMode {
			log.Printf("Using default AI-Pipe model: %s", modelToUse)
		}
	}

	endpoint := aipipeAPIEndpoint
	if baseURLOverride != "" {
		endpoint = strings.TrimSuffix(baseURLOverride, "/")
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(requestTimeoutSeconds) * time.Second,
		},
		endpoint:  endpoint,
		apiKey:    apiKey,
		modelName: modelToUse,
	}, nil
}

// Generate sends the system and user prompts to the relay and returns the
// text of the first choice.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.httpClient == nil {
		return "", fmt.Errorf("aipipe client not initialized")
	}

	payload := chatCompletionRequest{
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Model:          c.modelName,
		Temperature:    0.2,
		ResponseFormat: responseFormat{Type: "json_object"},
		Stream:         false,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal AI-Pipe request payload: %w", err)
	}

	var resp *http.Response
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		req, reqErr := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(payloadBytes))
		if reqErr != nil {
			return "", fmt.Errorf("failed to create AI-Pipe request: %w", reqErr)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, lastErr = c.httpClient.Do(req)
		if lastErr != nil {
			lastErr = provider.Errorf(providerName, 0, "request failed: %v", lastErr)
			if ctx.Err() == context.Canceled || ctx.Err() == context.DeadlineExceeded {
				return "", lastErr // Don't retry on context errors
			}
			log.Printf("AI-Pipe request attempt %d failed. Retrying in %v...", i+1, retryDelay)
			time.Sleep(retryDelay)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil { // This means all retries failed
		return "", lastErr
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read AI-Pipe response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", provider.StatusError(providerName, resp.StatusCode, responseBody)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(responseBody, &chatResp); err != nil {
		return "", provider.Errorf(providerName, resp.StatusCode, "failed to unmarshal response JSON: %v", err)
	}

	if chatResp.Error != nil {
		return "", provider.Errorf(providerName, resp.StatusCode, "API error: %s (type: %s)", chatResp.Error.Message, chatResp.Error.Type)
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", provider.Errorf(providerName, resp.StatusCode, "response missing content")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// ProviderName returns the name of this provider.
func (c *Client) ProviderName() string {
	return providerName
}

// Close is a placeholder.
func (c *Client) Close() error {
	return nil
}

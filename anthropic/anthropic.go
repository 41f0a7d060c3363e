// Package anthropic provides an LLM client for Anthropic's Messages API.
package anthropic

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
	defaultAnthropicModel = "claude-3-5-sonnet-20240620"
	providerName          = "anthropic"
	anthropicAPIEndpoint  = "https://api.anthropic.com/v1/messages"
	anthropicVersion      = "2023-06-01"
	maxTokens             = 2000
)

// Client implements the deckgen.Client interface for Anthropic.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	modelName  string
}

// messagesRequest is the structure for the request body to the Messages API.
// The system instruction is a top-level field rather than a message role.
type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the structure for the response body. Content arrives as
// a list of typed blocks; only "text" blocks carry the completion.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient creates a new Anthropic client.
// baseURLOverride replaces the fixed endpoint when non-empty (relays, tests).
// debugMode controls verbose logging.
func NewClient(apiKey string, modelOverride string, baseURLOverride string, requestTimeoutSeconds int, debugMode bool) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	modelToUse := defaultAnthropicModel
	if modelOverride != "" {
		modelToUse = modelOverride
		if debugMode {
			log.Printf("Using overridden Anthropic model: %s", modelToUse)
		}
	} else {
		if debugMode {
			log.Printf("Using default Anthropic model: %s", modelToUse)
		}
	}

	endpoint := anthropicAPIEndpoint
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

// Generate sends the system and user prompts to the Messages API and returns
// the concatenated text blocks of the reply.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.httpClient == nil {
		return "", fmt.Errorf("anthropic client not initialized")
	}

	payload := messagesRequest{
		Model:     c.modelName,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []chatMessage{
			{Role: "user", Content: userPrompt},
		},
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal Anthropic request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create Anthropic request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", provider.Errorf(providerName, 0, "request failed: %v", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read Anthropic response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", provider.StatusError(providerName, resp.StatusCode, responseBody)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(responseBody, &msgResp); err != nil {
		return "", provider.Errorf(providerName, resp.StatusCode, "failed to unmarshal response JSON: %v", err)
	}

	if msgResp.Error != nil {
		return "", provider.Errorf(providerName, resp.StatusCode, "API error: %s (type: %s)", msgResp.Error.Message, msgResp.Error.Type)
	}

	var sb strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", provider.Errorf(providerName, resp.StatusCode, "response missing text content")
	}

	return sb.String(), nil
}

// ProviderName returns the name of this provider.
func (c *Client) ProviderName() string {
	return providerName
}

// Close is a placeholder.
func (c *Client) Close() error {
	return nil
}

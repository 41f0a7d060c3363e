package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xostack/deckgen/provider"
)

func TestNewClient(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		if _, err := NewClient("", "", "", 30, false); err == nil {
			t.Fatal("expected error for empty API key")
		}
	})

	t.Run("default model", func(t *testing.T) {
		c, err := NewClient("test-key", "", "", 30, false)
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		if c.modelName != defaultAnthropicModel {
			t.Errorf("modelName = %q, want %q", c.modelName, defaultAnthropicModel)
		}
	})

	t.Run("model override", func(t *testing.T) {
		c, err := NewClient("test-key", "claude-3-opus-20240229", "", 30, false)
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		if c.modelName != "claude-3-opus-20240229" {
			t.Errorf("modelName = %q", c.modelName)
		}
	})
}

func TestGenerate(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		var gotReq messagesRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("x-api-key"); got != "test-key-123" {
				t.Errorf("x-api-key = %q", got)
			}
			if got := r.Header.Get("anthropic-version"); got != anthropicVersion {
				t.Errorf("anthropic-version = %q", got)
			}
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &gotReq); err != nil {
				t.Errorf("request body not JSON: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"content":[{"type":"text","text":"{\"slides\""},{"type":"text","text":":[]}"}]}`)
		}))
		defer server.Close()

		c, err := NewClient("test-key-123", "", server.URL, 30, false)
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		got, err := c.Generate(context.Background(), "plan slides", "the text")
		if err != nil {
			t.Fatalf("Generate() error: %v", err)
		}
		if got != `{"slides":[]}` {
			t.Errorf("Generate() = %q, text blocks not concatenated", got)
		}

		if gotReq.System != "plan slides" {
			t.Errorf("request system = %q", gotReq.System)
		}
		if gotReq.MaxTokens != maxTokens {
			t.Errorf("request max_tokens = %d", gotReq.MaxTokens)
		}
		if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
			t.Errorf("request messages = %+v", gotReq.Messages)
		}
	})

	t.Run("non-text blocks ignored", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"content":[{"type":"thinking","text":"hm"},{"type":"text","text":"answer"}]}`)
		}))
		defer server.Close()

		c, _ := NewClient("test-key-123", "", server.URL, 30, false)
		got, err := c.Generate(context.Background(), "sys", "user")
		if err != nil {
			t.Fatalf("Generate() error: %v", err)
		}
		if got != "answer" {
			t.Errorf("Generate() = %q, want %q", got, "answer")
		}
	})

	errorTests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantSubstr string
	}{
		{
			name:       "http error status",
			status:     http.StatusBadRequest,
			body:       `{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`,
			wantStatus: http.StatusBadRequest,
			wantSubstr: "API error 400",
		},
		{
			name:       "error object in 200 body",
			status:     http.StatusOK,
			body:       `{"error":{"type":"overloaded_error","message":"overloaded"}}`,
			wantStatus: http.StatusOK,
			wantSubstr: "overloaded",
		},
		{
			name:       "missing text content",
			status:     http.StatusOK,
			body:       `{"content":[]}`,
			wantStatus: http.StatusOK,
			wantSubstr: "missing text content",
		},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			c, _ := NewClient("test-key-123", "", server.URL, 30, false)
			_, err := c.Generate(context.Background(), "sys", "user")
			if err == nil {
				t.Fatal("expected error")
			}
			pe, ok := provider.AsError(err)
			if !ok {
				t.Fatalf("error is %T, want *provider.Error", err)
			}
			if pe.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", pe.StatusCode, tt.wantStatus)
			}
			if !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantSubstr)
			}
		})
	}
}

func TestProviderName(t *testing.T) {
	c, err := NewClient("test-key", "", "", 30, false)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if got := c.ProviderName(); got != "anthropic" {
		t.Errorf("ProviderName() = %q", got)
	}
}

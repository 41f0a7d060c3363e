package openai

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
		if c.modelName != defaultOpenAIModel {
			t.Errorf("modelName = %q, want %q", c.modelName, defaultOpenAIModel)
		}
	})

	t.Run("model override", func(t *testing.T) {
		c, err := NewClient("test-key", "gpt-4o", "", 30, false)
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		if c.modelName != "gpt-4o" {
			t.Errorf("modelName = %q", c.modelName)
		}
	})
}

func TestGenerate(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		var gotBody map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test-key-123" {
				t.Errorf("Authorization = %q", got)
			}
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &gotBody); err != nil {
				t.Errorf("request body not JSON: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"slides\":[]}"},"finish_reason":"stop"}]}`)
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
			t.Errorf("Generate() = %q", got)
		}

		if gotBody["model"] != defaultOpenAIModel {
			t.Errorf("request model = %v", gotBody["model"])
		}
		if gotBody["temperature"] != 0.2 {
			t.Errorf("request temperature = %v", gotBody["temperature"])
		}
		rf, _ := gotBody["response_format"].(map[string]interface{})
		if rf["type"] != "json_object" {
			t.Errorf("request response_format = %v", gotBody["response_format"])
		}
	})

	t.Run("api error carries status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
		}))
		defer server.Close()

		c, err := NewClient("test-key-123", "", server.URL, 30, false)
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		_, err = c.Generate(context.Background(), "sys", "user")
		if err == nil {
			t.Fatal("expected error")
		}
		pe, ok := provider.AsError(err)
		if !ok {
			t.Fatalf("error is %T, want *provider.Error", err)
		}
		if pe.StatusCode != http.StatusUnauthorized {
			t.Errorf("StatusCode = %d, want 401", pe.StatusCode)
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"id":"cmpl-1","object":"chat.completion","choices":[]}`)
		}))
		defer server.Close()

		c, _ := NewClient("test-key-123", "", server.URL, 30, false)
		_, err := c.Generate(context.Background(), "sys", "user")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "missing content") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestProviderName(t *testing.T) {
	c, err := NewClient("test-key", "", "", 30, false)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if got := c.ProviderName(); got != "openai" {
		t.Errorf("ProviderName() = %q", got)
	}
}

package aipipe

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
		if c.modelName != defaultAIPipeModel {
			t.Errorf("modelName = %q, want %q", c.modelName, defaultAIPipeModel)
		}
	})

	t.Run("model override", func(t *testing.T) {
		c, err := NewClient("test-key", "gpt-4o", "", 30, false)
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		if c.modelName != "gpt-4o" {
			t.Errorf("modelName = %q, want gpt-4o", c.modelName)
		}
	})

	t.Run("endpoint override trims slash", func(t *testing.T) {
		c, err := NewClient("test-key", "", "http://localhost:9999/v1/chat/", 30, false)
		if err != nil {
			t.Fatalf("NewClient() error: %v", err)
		}
		if c.endpoint != "http://localhost:9999/v1/chat" {
			t.Errorf("endpoint = %q", c.endpoint)
		}
	})
}

func TestGenerate(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		var gotReq chatCompletionRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-key-123" {
				t.Errorf("Authorization = %q", got)
			}
			if got := r.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q", got)
			}
			body, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(body, &gotReq); err != nil {
				t.Errorf("request body not JSON: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  {\"slides\":[]}  "}}]}`)
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
			t.Errorf("Generate() = %q, content not trimmed", got)
		}

		if gotReq.Model != defaultAIPipeModel {
			t.Errorf("request model = %q", gotReq.Model)
		}
		if gotReq.Temperature != 0.2 {
			t.Errorf("request temperature = %v", gotReq.Temperature)
		}
		if gotReq.ResponseFormat.Type != "json_object" {
			t.Errorf("request response_format = %q", gotReq.ResponseFormat.Type)
		}
		if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
			t.Errorf("request messages = %+v", gotReq.Messages)
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
			status:     http.StatusUnauthorized,
			body:       `{"error":{"message":"invalid token"}}`,
			wantStatus: http.StatusUnauthorized,
			wantSubstr: "API error 401",
		},
		{
			name:       "error object in 200 body",
			status:     http.StatusOK,
			body:       `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`,
			wantStatus: http.StatusOK,
			wantSubstr: "quota exceeded",
		},
		{
			name:       "empty choices",
			status:     http.StatusOK,
			body:       `{"choices":[]}`,
			wantStatus: http.StatusOK,
			wantSubstr: "missing content",
		},
		{
			name:       "invalid response JSON",
			status:     http.StatusOK,
			body:       `not json`,
			wantStatus: http.StatusOK,
			wantSubstr: "unmarshal",
		},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
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
	if got := c.ProviderName(); got != "aipipe" {
		t.Errorf("ProviderName() = %q", got)
	}
}

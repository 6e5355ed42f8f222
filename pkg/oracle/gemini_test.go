package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiGenerate_TextResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Goog-Api-Key"); got != "test-key" {
			t.Errorf("X-Goog-Api-Key = %q, want %q", got, "test-key")
		}
		if !strings.Contains(r.URL.Path, "models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var reqBody geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if len(reqBody.Contents) != 1 || len(reqBody.Contents[0].Parts) != 1 {
			t.Fatalf("unexpected contents shape: %+v", reqBody.Contents)
		}
		if reqBody.Contents[0].Parts[0].Text != "judge this" {
			t.Errorf("prompt = %q", reqBody.Contents[0].Parts[0].Text)
		}
		if reqBody.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("responseMimeType = %q, want application/json", reqBody.GenerationConfig.ResponseMimeType)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"parts": [{"text": "{\"ok\": true}"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 4}
		}`))
	}))
	defer server.Close()

	g := NewGeminiClient("test-key", WithBaseURL(server.URL))

	got, err := g.Generate(context.Background(), &Request{
		Model:        "gemini-2.5-flash",
		Prompt:       "judge this",
		JSONResponse: true,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Text != `{"ok": true}` {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Usage.InputTokens != 12 || got.Usage.OutputTokens != 4 {
		t.Errorf("Usage = %+v", got.Usage)
	}
}

func TestGeminiGenerate_SearchToolDisablesJSONMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		if len(reqBody.Tools) != 1 {
			t.Errorf("tools length = %d, want 1", len(reqBody.Tools))
		}
		if reqBody.GenerationConfig.ResponseMimeType != "" {
			t.Errorf("search request must not set responseMimeType, got %q",
				reqBody.GenerationConfig.ResponseMimeType)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	g := NewGeminiClient("test-key", WithBaseURL(server.URL))
	_, err := g.Generate(context.Background(), &Request{
		Model:        "gemini-2.5-pro",
		Prompt:       "analyze",
		JSONResponse: true,
		UseSearch:    true,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestGeminiGenerate_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
	}))
	defer server.Close()

	g := NewGeminiClient("test-key", WithBaseURL(server.URL))
	_, err := g.Generate(context.Background(), &Request{Model: "gemini-2.5-flash", Prompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRetryable(err) {
		t.Errorf("503 should be retryable, got: %v", err)
	}
	if !strings.Contains(err.Error(), "overloaded") {
		t.Errorf("error should carry API message, got: %v", err)
	}
}

func TestGeminiGenerate_ClientErrorIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"invalid model","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	g := NewGeminiClient("test-key", WithBaseURL(server.URL))
	_, err := g.Generate(context.Background(), &Request{Model: "bogus", Prompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRetryable(err) {
		t.Errorf("400 must not be retryable, got: %v", err)
	}
}

func TestGeminiGenerate_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[],"usageMetadata":{"promptTokenCount":5}}`))
	}))
	defer server.Close()

	g := NewGeminiClient("test-key", WithBaseURL(server.URL))
	got, err := g.Generate(context.Background(), &Request{Model: "gemini-2.5-flash", Prompt: "x"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.Text != "" {
		t.Errorf("Text = %q, want empty", got.Text)
	}
}

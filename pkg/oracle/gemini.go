package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	defaultGeminiURL   = "https://generativelanguage.googleapis.com"
	defaultMaxOutput   = 8192
	defaultTemperature = 0.7
)

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiClient) { g.client = c }
}

// WithBaseURL overrides the Gemini API base URL.
func WithBaseURL(url string) GeminiOption {
	return func(g *GeminiClient) { g.baseURL = url }
}

// GeminiClient implements Client for the Gemini generateContent API.
type GeminiClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGeminiClient creates a new Gemini client with the given API key.
// Per-call deadlines come from the request context, so the underlying
// HTTP client carries no timeout of its own.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	g := &GeminiClient{
		apiKey:  apiKey,
		baseURL: defaultGeminiURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns "gemini".
func (g *GeminiClient) Name() string { return "gemini" }

// geminiRequest is the generateContent API request body.
type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
	Tools            []geminiTool    `json:"tools,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiTool struct {
	GoogleSearch struct{} `json:"google_search"`
}

// geminiResponse is the generateContent API response body.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends one request to the generateContent endpoint.
func (g *GeminiClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	body, err := buildGeminiBody(req)
	if err != nil {
		return nil, fmt.Errorf("building request body: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", g.apiKey)

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("sending HTTP request: %w", err)}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("reading response body: %w", err)}
	}

	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
		var apiErr geminiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, &retryableError{err: fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, apiErr.Error.Message)}
		}
		return nil, &retryableError{err: fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, string(respBody))}
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr geminiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, string(respBody))
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return parseGeminiResponse(&gr), nil
}

func buildGeminiBody(req *Request) ([]byte, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxOutput
	}

	gr := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}

	// Grounded generation rejects a constrained response MIME type, so
	// JSON mode and search are mutually exclusive on the wire.
	if req.UseSearch {
		gr.Tools = []geminiTool{{}}
	} else if req.JSONResponse {
		gr.GenerationConfig.ResponseMimeType = "application/json"
	}

	return json.Marshal(gr)
}

func parseGeminiResponse(gr *geminiResponse) *Response {
	resp := &Response{
		Usage: Usage{
			InputTokens:  gr.UsageMetadata.PromptTokenCount,
			OutputTokens: gr.UsageMetadata.CandidatesTokenCount,
		},
	}

	if len(gr.Candidates) == 0 {
		return resp
	}

	var text []byte
	for _, part := range gr.Candidates[0].Content.Parts {
		if len(text) > 0 {
			text = append(text, '\n')
		}
		text = append(text, part.Text...)
	}
	resp.Text = string(text)

	return resp
}

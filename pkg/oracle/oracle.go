// Package oracle provides clients for the external judgment oracle:
// the LLM backend that renders structured opinions about candidates.
package oracle

import "context"

// Client defines the interface for judgment oracle backends.
type Client interface {
	// Generate sends a single generation request and returns the raw
	// textual response. It makes exactly one attempt; retry policy
	// belongs to the caller.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Name returns the backend identifier (e.g. "gemini").
	Name() string
}

// Request represents one generation request to the oracle.
type Request struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// JSONResponse asks the backend to constrain output to JSON.
	JSONResponse bool `json:"json_response,omitempty"`

	// UseSearch enables the backend's search-augmented generation,
	// used by the market-insight stage.
	UseSearch bool `json:"use_search,omitempty"`
}

// Response represents a generation response from the oracle.
type Response struct {
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// retryableError wraps errors that should trigger a retry.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// NewRetryableError marks err as transient so callers retry it. Backend
// implementations and test doubles use this to classify failures.
func NewRetryableError(err error) error {
	return &retryableError{err: err}
}

// IsRetryable returns true if the error is transient: a rate limit,
// server error, or transport failure worth another attempt.
func IsRetryable(err error) bool {
	_, ok := err.(*retryableError)
	return ok
}

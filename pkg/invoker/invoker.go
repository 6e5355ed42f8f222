// Package invoker wraps single judgment-oracle calls with a shared
// concurrency limit, per-attempt timeouts, bounded retry, and
// normalization of the raw response into a structured outcome.
//
// An invoker never returns an error for a judgment that could not be
// obtained: exhausted retries, malformed responses, and oracle failures
// all surface as a Failed outcome so stage logic can fail closed.
package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/sync/semaphore"

	"github.com/deniom/triage/pkg/oracle"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 2
	defaultBaseDelay   = 2 * time.Second
	defaultConcurrency = 10
)

// Outcome is the normalized result of one judgment invocation: either a
// structured JSON object or a deterministic failure marker.
type Outcome struct {
	// Object holds the extracted JSON object when the invocation
	// succeeded.
	Object json.RawMessage

	// Raw preserves the oracle's last raw response text, including on
	// failure, for later inspection of oracle drift.
	Raw string

	// FailReason is non-empty when the invocation failed.
	FailReason string
}

// Failed reports whether the invocation produced no usable judgment.
func (o Outcome) Failed() bool { return o.FailReason != "" }

// Decode unmarshals the structured object into v.
func (o Outcome) Decode(v any) error {
	if o.Failed() {
		return fmt.Errorf("cannot decode failed outcome: %s", o.FailReason)
	}
	return json.Unmarshal(o.Object, v)
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithModel sets the oracle model used for every invocation.
func WithModel(model string) Option {
	return func(i *Invoker) { i.model = model }
}

// WithConcurrency sets the shared in-flight call limit.
func WithConcurrency(n int) Option {
	return func(i *Invoker) {
		if n > 0 {
			i.limit = int64(n)
		}
	}
}

// WithTimeout sets the per-attempt wall-clock timeout.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithRetry sets the total attempt budget and the base backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(i *Invoker) {
		if maxAttempts > 0 {
			i.maxAttempts = maxAttempts
		}
		if baseDelay >= 0 {
			i.baseDelay = baseDelay
		}
	}
}

// WithSchema validates every extracted object against a JSON Schema.
// A violation counts as a transient failure and is retried, since it
// usually signals recoverable oracle drift rather than a hard fault.
func WithSchema(s *jsonschema.Schema) Option {
	return func(i *Invoker) { i.schema = s }
}

// WithSearch enables search-augmented generation with a two-tier
// degrade: if every augmented attempt fails, the invoker falls back to
// plain generation before giving up.
func WithSearch() Option {
	return func(i *Invoker) { i.useSearch = true }
}

// Invoker issues judgment calls against an oracle client.
type Invoker struct {
	client      oracle.Client
	model       string
	limit       int64
	timeout     time.Duration
	maxAttempts int
	baseDelay   time.Duration
	schema      *jsonschema.Schema
	useSearch   bool

	sem *semaphore.Weighted
}

// New creates an Invoker around the given oracle client.
func New(client oracle.Client, opts ...Option) *Invoker {
	i := &Invoker{
		client:      client,
		limit:       defaultConcurrency,
		timeout:     defaultTimeout,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.sem = semaphore.NewWeighted(i.limit)
	return i
}

// CompileSchema compiles a JSON Schema source for use with WithSchema.
func CompileSchema(src string) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("invalid JSON schema: %w", err)
	}
	sch, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling JSON schema: %w", err)
	}
	return sch, nil
}

// Invoke runs one judgment with the configured limits. It blocks while
// the shared semaphore is saturated and returns a Failed outcome rather
// than an error for anything short of caller cancellation.
func (i *Invoker) Invoke(ctx context.Context, prompt string) Outcome {
	out := i.attemptLoop(ctx, prompt, i.useSearch)
	if out.Failed() && i.useSearch && ctx.Err() == nil {
		// Two-tier degrade: search-augmented generation failed, try
		// the plain oracle before failing closed.
		plain := i.attemptLoop(ctx, prompt, false)
		if !plain.Failed() {
			return plain
		}
	}
	return out
}

func (i *Invoker) attemptLoop(ctx context.Context, prompt string, useSearch bool) Outcome {
	var last Outcome
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := i.baseDelay * time.Duration(math.Pow(2, float64(attempt-2)))
			select {
			case <-ctx.Done():
				last.FailReason = fmt.Sprintf("canceled before attempt %d: %v", attempt, ctx.Err())
				return last
			case <-time.After(backoff):
			}
		}

		out, retryable := i.attempt(ctx, prompt, useSearch)
		if !out.Failed() {
			return out
		}
		last = out
		if !retryable || ctx.Err() != nil {
			return last
		}
	}
	last.FailReason = fmt.Sprintf("judgment failed after %d attempts: %s", i.maxAttempts, last.FailReason)
	return last
}

// attempt makes one bounded oracle call. The semaphore slot is held
// only for the duration of the call itself, never across backoff waits.
func (i *Invoker) attempt(ctx context.Context, prompt string, useSearch bool) (Outcome, bool) {
	if err := i.sem.Acquire(ctx, 1); err != nil {
		return Outcome{FailReason: fmt.Sprintf("acquiring oracle slot: %v", err)}, false
	}

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	resp, err := i.client.Generate(callCtx, &oracle.Request{
		Model:        i.model,
		Prompt:       prompt,
		JSONResponse: !useSearch,
		UseSearch:    useSearch,
	})
	cancel()
	i.sem.Release(1)

	if err != nil {
		transient := oracle.IsRetryable(err) || errors.Is(err, context.DeadlineExceeded)
		return Outcome{FailReason: fmt.Sprintf("oracle call: %v", err)}, transient
	}

	if resp.Text == "" {
		return Outcome{FailReason: "oracle returned an empty response"}, true
	}

	obj, err := ExtractJSONObject(resp.Text)
	if err != nil {
		return Outcome{Raw: resp.Text, FailReason: fmt.Sprintf("normalizing response: %v", err)}, true
	}

	if i.schema != nil {
		var v any
		if err := json.Unmarshal(obj, &v); err != nil {
			return Outcome{Raw: resp.Text, FailReason: fmt.Sprintf("decoding extracted object: %v", err)}, true
		}
		if err := i.schema.Validate(v); err != nil {
			return Outcome{Raw: resp.Text, FailReason: fmt.Sprintf("judgment does not match schema: %v", err)}, true
		}
	}

	return Outcome{Object: obj, Raw: resp.Text}, false
}

package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dan-solli/dialectic/pkg/llm"
	"github.com/dan-solli/dialectic/pkg/metrics"
)

const (
	// DefaultMaxRetries is the number of retries after the initial attempt.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the delay before the first retry. Each further
	// retry doubles it.
	DefaultBaseDelay = 5 * time.Second
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var validate = validator.New()

// Analyzer performs phase-specific analysis calls with retry/backoff.
type Analyzer struct {
	client     llm.LLMClient
	maxRetries int
	baseDelay  time.Duration
	sleep      Sleeper
	logger     *slog.Logger
	metrics    metrics.Collector
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMaxRetries sets the number of retries after the initial attempt.
func WithMaxRetries(n int) Option {
	return func(a *Analyzer) {
		if n >= 0 {
			a.maxRetries = n
		}
	}
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) Option {
	return func(a *Analyzer) {
		if d >= 0 {
			a.baseDelay = d
		}
	}
}

// WithSleeper replaces the backoff wait, e.g. with a recording fake in tests.
func WithSleeper(s Sleeper) Option {
	return func(a *Analyzer) {
		if s != nil {
			a.sleep = s
		}
	}
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c metrics.Collector) Option {
	return func(a *Analyzer) {
		if c != nil {
			a.metrics = c
		}
	}
}

// New creates an Analyzer on top of an LLM client.
func New(client llm.LLMClient, opts ...Option) *Analyzer {
	a := &Analyzer{
		client:     client,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		sleep:      ContextSleep,
		logger:     slog.New(slog.DiscardHandler),
		metrics:    metrics.NewNoopCollector(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Backoff returns the delay before retry n (1-based).
func (a *Analyzer) Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	return a.baseDelay << (n - 1)
}

// Analyze performs one analysis. Transient transport failures and malformed
// responses are retried with exponential backoff; anything else, or an
// exhausted budget, is returned as *PermanentError.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if !req.Phase.Valid() {
		return nil, &PermanentError{Err: fmt.Errorf("unknown analysis phase %q", req.Phase)}
	}

	llmReq := llm.Request{
		System:     systemInstructions(req.Phase),
		Prompt:     buildPrompt(req),
		SchemaName: schemaName(req.Phase),
		Schema:     Schema(req.Phase),
	}
	if req.Phase == PhaseGlobal {
		llmReq.Image = req.Image
	}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			delay := a.Backoff(attempt)
			errType := ClassifyError(lastErr)
			a.logger.Warn("retrying analysis",
				"phase", req.Phase,
				"attempt", attempt+1,
				"delay_ms", delay.Milliseconds(),
				"error_type", errType,
				"error", lastErr)
			a.metrics.RecordRetry(ctx, string(req.Phase), errType)

			if err := a.sleep(ctx, delay); err != nil {
				return nil, &PermanentError{Attempts: attempt, Err: err}
			}
		}

		raw, err := a.client.Complete(ctx, llmReq)
		if err == nil {
			var res *Result
			res, err = Parse(raw, req.Phase)
			if err == nil {
				if attempt > 0 {
					a.logger.Info("analysis recovered after retry", "phase", req.Phase, "attempts", attempt+1)
				}
				return res, nil
			}
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, &PermanentError{Attempts: attempt + 1, Err: ctx.Err()}
		}
		if !retryable(err) {
			a.logger.Error("analysis failed", "phase", req.Phase, "error_type", ClassifyError(err), "error", err)
			return nil, &PermanentError{Attempts: attempt + 1, Err: err}
		}
	}

	a.logger.Error("analysis retries exhausted",
		"phase", req.Phase,
		"attempts", a.maxRetries+1,
		"error", lastErr)
	return nil, &PermanentError{Attempts: a.maxRetries + 1, Exhausted: true, Err: lastErr}
}

// Parse decodes and validates a raw model response for a phase. Every
// failure wraps ErrMalformedResponse.
func Parse(raw string, phase Phase) (*Result, error) {
	body := []byte(llm.StripMarkdownCodeFence(raw))
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	normalized, _, err := llm.NormalizeStringsToArrays(body, arrayFields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var res Result
	if err := json.Unmarshal(normalized, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := validate.Struct(&res); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("%w: field %s failed %q", ErrMalformedResponse, verrs[0].Namespace(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if phase == PhaseGlobal && res.GraphData == nil {
		return nil, fmt.Errorf("%w: graph_data is required in the global phase", ErrMalformedResponse)
	}

	return &res, nil
}

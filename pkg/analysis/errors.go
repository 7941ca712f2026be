package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/dan-solli/dialectic/pkg/llm"
)

// ErrMalformedResponse indicates the model output was not parseable JSON or
// did not match the expected shape. It is retried like a transient error.
var ErrMalformedResponse = errors.New("malformed LLM response")

// PermanentError is returned by Analyze for every failure it does not recover
// from: non-retryable transport errors, cancellation, or an exhausted retry
// budget. Err preserves the last underlying cause.
type PermanentError struct {
	Attempts  int
	Exhausted bool
	Err       error
}

func (e *PermanentError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("analysis failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("analysis failed: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Error type constants for classification
const (
	ErrTypeMalformed = "malformed"
	ErrTypeTransient = "transient"
	ErrTypePermanent = "permanent"
	ErrTypeTimeout   = "timeout"
	ErrTypeCanceled  = "canceled"
	ErrTypeUnknown   = "unknown"
)

// ClassifyError inspects an error and returns its type classification. The
// innermost known cause wins, so an exhausted retry over rate limits
// classifies as transient. Used to label metrics and traces.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrTypeCanceled
	case errors.Is(err, ErrMalformedResponse):
		return ErrTypeMalformed
	case llm.IsTransient(err):
		return ErrTypeTransient
	}

	var perm *PermanentError
	if errors.As(err, &perm) || errors.Is(err, llm.ErrMissingAPIKey) {
		return ErrTypePermanent
	}

	return ErrTypeUnknown
}

// retryable reports whether err may succeed on another attempt.
func retryable(err error) bool {
	return errors.Is(err, ErrMalformedResponse) || llm.IsTransient(err)
}

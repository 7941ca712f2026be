package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingAPIKey is returned when a client that needs credentials has none.
var ErrMissingAPIKey = errors.New("llm: API key not set")

// TransientError indicates a failure the caller may retry: rate limiting,
// overload, server errors and dropped connections.
type TransientError struct {
	StatusCode int // HTTP status when known, 0 otherwise
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient service error (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient service error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err (or anything it wraps) is a *TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// retryableStatus reports whether an HTTP status signals a transient condition.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// transportError wraps a failed round trip. Context cancellation is returned
// as-is; everything else is treated as a dropped connection.
func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &TransientError{Err: fmt.Errorf("request failed: %w", err)}
}

package orchestrator

import (
	"errors"
	"fmt"

	"github.com/dan-solli/dialectic/pkg/analysis"
)

var (
	// ErrInvalidPhase is returned when an operation is not offered in the
	// current phase.
	ErrInvalidPhase = errors.New("operation not allowed in current phase")

	// ErrStepInProgress is returned when a step is requested while another
	// is still waiting on the LLM.
	ErrStepInProgress = errors.New("another step is in progress")

	// ErrNoDocument is returned by Start when no document text is loaded.
	ErrNoDocument = errors.New("no document loaded")

	// ErrSessionReset is returned by a step whose session was reset or
	// replaced while its LLM call was outstanding. The result is discarded.
	ErrSessionReset = errors.New("session was reset during the step")
)

// ImportError reports a session file that could not be imported. The
// current session is left unchanged.
type ImportError struct {
	Err error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import session: %v", e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

func importErrorf(format string, args ...any) *ImportError {
	return &ImportError{Err: fmt.Errorf(format, args...)}
}

// Error type constants added to the analysis classification
const (
	ErrTypeImport = "import"
	ErrTypeState  = "state"
)

// ClassifyError extends analysis.ClassifyError with orchestrator errors.
func ClassifyError(err error) string {
	var ie *ImportError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ie):
		return ErrTypeImport
	case errors.Is(err, ErrInvalidPhase), errors.Is(err, ErrStepInProgress),
		errors.Is(err, ErrNoDocument), errors.Is(err, ErrSessionReset):
		return ErrTypeState
	}
	return analysis.ClassifyError(err)
}

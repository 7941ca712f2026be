// Package trace exports per-step traces of an analysis session as JSON Lines.
package trace

import (
	"context"
	"time"
)

// Exporter defines the interface for exporting step traces.
// Implementations must be safe for concurrent use.
type Exporter interface {
	// Export writes a trace record to the configured destination.
	Export(ctx context.Context, record *TraceRecord) error

	// Close flushes any buffered records and releases resources.
	// Should be called during graceful shutdown.
	Close() error
}

// TraceRecord is one analysis step ready for export.
// It carries identifiers and counts only; no document text, axiom content or
// API keys.
type TraceRecord struct {
	// Timestamp is the step start time
	Timestamp time.Time `json:"timestamp"`

	// OperationID uniquely identifies this step (for correlation)
	OperationID string `json:"operationId"`

	// SessionID identifies the analysis session the step belongs to
	SessionID string `json:"sessionId,omitempty"`

	// Operation is the step type: "global_analysis", "chunk_analysis",
	// "consolidation"
	Operation string `json:"operation"`

	// DurationMs is the total step duration in milliseconds
	DurationMs int64 `json:"durationMs"`

	// Status is "success", "error" or "discarded"
	Status string `json:"status"`

	// Spans contains per-stage timing and status
	Spans []SpanRecord `json:"spans"`

	// ErrorType classifies the error (if Status == "error")
	// Values: malformed, transient, permanent, timeout, canceled, unknown
	ErrorType string `json:"errorType,omitempty"`

	// IDs contains step-specific identifiers such as chunkIndex (no content)
	IDs map[string]interface{} `json:"ids,omitempty"`
}

// SpanRecord represents a single stage within a step.
type SpanRecord struct {
	// Name is the stage name (llm, apply, checkpoint)
	Name string `json:"name"`

	// DurationMs is the stage duration in milliseconds
	DurationMs int64 `json:"durationMs"`

	// OK indicates success (true) or failure (false)
	OK bool `json:"ok"`

	// ErrorType classifies the error (if OK == false)
	ErrorType string `json:"errorType,omitempty"`

	// Counters provides stage-specific metrics (e.g., axiomsCreated, nodesAdded)
	Counters map[string]int64 `json:"counters,omitempty"`
}

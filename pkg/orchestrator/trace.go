package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"github.com/dan-solli/dialectic/pkg/trace"
)

// Stage names are stable:
//   - "llm": the analysis call, retries included
//   - "apply": merging the result into the knowledge base and graph
//   - "checkpoint": persisting the session
const (
	stageLLM        = "llm"
	stageApply      = "apply"
	stageCheckpoint = "checkpoint"
)

// stepTrace captures timing data for one orchestrator step.
type stepTrace struct {
	id        string
	operation string
	start     time.Time
	now       func() time.Time
	spans     []trace.SpanRecord
	ids       map[string]interface{}
}

// newStepTrace creates a trace for the named operation
func newStepTrace(operation string, now func() time.Time) *stepTrace {
	return &stepTrace{
		id:        uuid.New().String(),
		operation: operation,
		start:     now(),
		now:       now,
		spans:     make([]trace.SpanRecord, 0, 3),
		ids:       make(map[string]interface{}),
	}
}

// spanTimer is a helper for measuring span duration
type spanTimer struct {
	name  string
	start time.Time
	trace *stepTrace
}

// span starts a timer for a named stage
func (t *stepTrace) span(name string) *spanTimer {
	return &spanTimer{name: name, start: t.now(), trace: t}
}

// finish completes the span and records it to the trace
func (st *spanTimer) finish(err error, counters map[string]int64) {
	span := trace.SpanRecord{
		Name:       st.name,
		DurationMs: st.trace.now().Sub(st.start).Milliseconds(),
		OK:         err == nil,
		Counters:   counters,
	}
	if err != nil {
		span.ErrorType = ClassifyError(err)
	}
	st.trace.spans = append(st.trace.spans, span)
}

// record builds the exportable record. status is "success", "error" or
// "discarded".
func (t *stepTrace) record(sessionID, status string, err error) *trace.TraceRecord {
	rec := &trace.TraceRecord{
		Timestamp:   t.start,
		OperationID: t.id,
		SessionID:   sessionID,
		Operation:   t.operation,
		DurationMs:  t.now().Sub(t.start).Milliseconds(),
		Status:      status,
		Spans:       t.spans,
	}
	if err != nil {
		rec.ErrorType = ClassifyError(err)
	}
	if len(t.ids) > 0 {
		rec.IDs = t.ids
	}
	return rec
}

package metrics

import "context"

// Operation labels used by the orchestrator.
const (
	OpGlobalAnalysis = "global_analysis"
	OpChunkAnalysis  = "chunk_analysis"
	OpConsolidation  = "consolidation"
	OpImport         = "import"
	OpCheckpoint     = "checkpoint"
)

// Storage count labels.
const (
	StorageAxioms       = "axioms"
	StorageActiveAxioms = "active_axioms"
	StorageGraphNodes   = "graph_nodes"
	StorageGraphLinks   = "graph_links"
	StorageChunksLeft   = "chunks_remaining"
)

// Collector is the interface for metrics collection.
// Implementations include the Prometheus-backed collector and the no-op
// collector used when metrics are not configured.
type Collector interface {
	RecordOperation(ctx context.Context, operation string, status string, durationMs int64)
	RecordStage(ctx context.Context, operation string, stage string, durationMs int64)
	RecordError(ctx context.Context, operation string, errorType string)
	// RecordRetry records one backoff before a repeated LLM attempt.
	RecordRetry(ctx context.Context, phase string, errorType string)
	SetStorageCount(ctx context.Context, storageType string, count int64)
}

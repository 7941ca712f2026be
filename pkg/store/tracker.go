package store

import (
	"context"
	"database/sql"
	"fmt"
)

// DocumentTracker records which documents have been analyzed to completion.
// Separate from SessionStore to maintain interface cohesion.
type DocumentTracker interface {
	// IsDocumentProcessed checks if a document with the given hash has been processed.
	// hash: SHA-256 hash of the document text (content-based identity)
	IsDocumentProcessed(ctx context.Context, hash string) (bool, error)

	// ProcessedSession returns the session that completed the document, or
	// "" if none did.
	ProcessedSession(ctx context.Context, hash string) (string, error)

	// MarkDocumentProcessed records that a document has been fully analyzed.
	// source: Optional source identifier (metadata only, does not affect identity)
	// Uses INSERT OR REPLACE to support upsert semantics.
	MarkDocumentProcessed(ctx context.Context, hash, source, sessionID string, chunkCount int) error

	// GetProcessedDocumentCount returns the total number of processed documents tracked.
	GetProcessedDocumentCount(ctx context.Context) (int64, error)

	// ClearProcessedDocuments removes all document tracking records.
	// Sessions are not affected.
	ClearProcessedDocuments(ctx context.Context) error
}

// Compile-time interface check
var _ DocumentTracker = (*SQLiteStore)(nil)

// IsDocumentProcessed checks if a document with the given hash has been processed.
func (s *SQLiteStore) IsDocumentProcessed(ctx context.Context, hash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM processed_documents WHERE hash = ?", hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check document processed status: %w", err)
	}
	return count > 0, nil
}

// ProcessedSession returns the session ID recorded for a processed document.
func (s *SQLiteStore) ProcessedSession(ctx context.Context, hash string) (string, error) {
	var sessionID sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT session_id FROM processed_documents WHERE hash = ?", hash).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up processed document: %w", err)
	}
	return sessionID.String, nil
}

// MarkDocumentProcessed records that a document has been fully analyzed.
func (s *SQLiteStore) MarkDocumentProcessed(ctx context.Context, hash, source, sessionID string, chunkCount int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO processed_documents (hash, source, session_id, processed_at, chunk_count)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP, ?)`,
		hash, source, sessionID, chunkCount)
	if err != nil {
		return fmt.Errorf("failed to mark document as processed: %w", err)
	}
	return nil
}

// GetProcessedDocumentCount returns the total number of processed documents tracked.
func (s *SQLiteStore) GetProcessedDocumentCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM processed_documents").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get processed document count: %w", err)
	}
	return count, nil
}

// ClearProcessedDocuments removes all document tracking records without affecting sessions.
func (s *SQLiteStore) ClearProcessedDocuments(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM processed_documents")
	if err != nil {
		return fmt.Errorf("failed to clear processed documents: %w", err)
	}
	return nil
}

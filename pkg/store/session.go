// Package store persists analysis sessions and processed-document records.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrSessionNotFound is returned when deleting a session that does not exist.
var ErrSessionNotFound = errors.New("session not found")

// Session is a checkpoint of an analysis session. Data holds the exported
// session JSON; the other fields are denormalized for listing.
type Session struct {
	ID           string
	FileName     string
	DocumentHash string
	Phase        string
	ChunkIndex   int
	ChunkCount   int
	AxiomCount   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Data         []byte
}

// SessionStore persists session checkpoints.
type SessionStore interface {
	// SaveSession inserts or replaces the checkpoint with the same ID.
	// CreatedAt is preserved across replacements.
	SaveSession(ctx context.Context, s *Session) error

	// LoadSession returns the checkpoint, or nil if none exists.
	LoadSession(ctx context.Context, id string) (*Session, error)

	// ListSessions returns every checkpoint without Data, most recently
	// updated first.
	ListSessions(ctx context.Context) ([]*Session, error)

	// DeleteSession removes a checkpoint. Returns ErrSessionNotFound if it
	// does not exist.
	DeleteSession(ctx context.Context, id string) error
}

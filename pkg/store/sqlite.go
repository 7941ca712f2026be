package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	// DriverPure is the pure-Go modernc driver, always available.
	DriverPure = "sqlite"
	// DriverCGO is the mattn/go-sqlite3 driver, registered only in cgo builds.
	DriverCGO = "sqlite3"
)

// SQLiteStore implements SessionStore and DocumentTracker on SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface check
var _ SessionStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens a store with the pure-Go driver.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return OpenSQLiteStore(DriverPure, dbPath)
}

// OpenSQLiteStore opens a store with the named driver and creates tables and
// indexes if they don't exist.
func OpenSQLiteStore(driver, dbPath string) (*SQLiteStore, error) {
	if driver == "" {
		driver = DriverPure
	}

	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes checkpoint writes and keeps ":memory:"
	// databases from splitting across pooled connections.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
// Also performs schema migrations for new columns.
func (s *SQLiteStore) initSchema() error {
	schema := `
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL DEFAULT '',
		document_hash TEXT NOT NULL DEFAULT '',
		phase TEXT NOT NULL,
		chunk_index INTEGER NOT NULL DEFAULT 0,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		axiom_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		data BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_hash ON sessions(document_hash);

	CREATE TABLE IF NOT EXISTS processed_documents (
		hash TEXT PRIMARY KEY,
		source TEXT,
		session_id TEXT,
		processed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		chunk_count INTEGER NOT NULL DEFAULT 0
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	return s.migrateSchema()
}

// migrateSchema adds new columns to existing tables if they don't exist.
func (s *SQLiteStore) migrateSchema() error {
	if !s.columnExists("sessions", "last_error") {
		_, err := s.db.Exec("ALTER TABLE sessions ADD COLUMN last_error TEXT NOT NULL DEFAULT ''")
		if err != nil {
			return fmt.Errorf("failed to add last_error column: %w", err)
		}
	}

	return nil
}

// columnExists checks if a column exists in a table.
func (s *SQLiteStore) columnExists(tableName, columnName string) bool {
	query := fmt.Sprintf("PRAGMA table_info(%s)", tableName)
	rows, err := s.db.Query(query)
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int

		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false
		}

		if name == columnName {
			return true
		}
	}

	return false
}

// SaveSession inserts or replaces a checkpoint.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	query := `
		INSERT INTO sessions (id, file_name, document_hash, phase, chunk_index, chunk_count,
			axiom_count, last_error, created_at, updated_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_name = excluded.file_name,
			document_hash = excluded.document_hash,
			phase = excluded.phase,
			chunk_index = excluded.chunk_index,
			chunk_count = excluded.chunk_count,
			axiom_count = excluded.axiom_count,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at,
			data = excluded.data
	`

	_, err := s.db.ExecContext(ctx, query,
		sess.ID,
		sess.FileName,
		sess.DocumentHash,
		sess.Phase,
		sess.ChunkIndex,
		sess.ChunkCount,
		sess.AxiomCount,
		sess.LastError,
		sess.CreatedAt,
		sess.UpdatedAt,
		sess.Data,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// LoadSession retrieves a checkpoint by ID.
func (s *SQLiteStore) LoadSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, file_name, document_hash, phase, chunk_index, chunk_count,
			axiom_count, last_error, created_at, updated_at, data
		FROM sessions
		WHERE id = ?
	`

	var sess Session
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID,
		&sess.FileName,
		&sess.DocumentHash,
		&sess.Phase,
		&sess.ChunkIndex,
		&sess.ChunkCount,
		&sess.AxiomCount,
		&sess.LastError,
		&sess.CreatedAt,
		&sess.UpdatedAt,
		&sess.Data,
	)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return &sess, nil
}

// ListSessions returns checkpoint summaries, most recently updated first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*Session, error) {
	query := `
		SELECT id, file_name, document_hash, phase, chunk_index, chunk_count,
			axiom_count, last_error, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC, id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*Session, 0)
	for rows.Next() {
		var sess Session
		if err := rows.Scan(
			&sess.ID,
			&sess.FileName,
			&sess.DocumentHash,
			&sess.Phase,
			&sess.ChunkIndex,
			&sess.ChunkCount,
			&sess.AxiomCount,
			&sess.LastError,
			&sess.CreatedAt,
			&sess.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &sess)
	}

	return sessions, rows.Err()
}

// DeleteSession removes a checkpoint.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

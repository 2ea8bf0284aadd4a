// Package store provides a SQLite-backed processing-job store for document
// ingestion. One row tracks each document's journey through the pipeline, so
// status queries survive server restarts and clients can poll progress while
// ingestion runs in the background.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Status identifies where a processing job is in its lifecycle.
type Status string

const (
	// StatusQueued means the document is accepted but not yet picked up.
	StatusQueued Status = "queued"
	// StatusProcessing means the pipeline is actively working on the document.
	StatusProcessing Status = "processing"
	// StatusCompleted means every chunk is embedded and indexed.
	StatusCompleted Status = "completed"
	// StatusFailed means the pipeline gave up; Error holds the reason.
	StatusFailed Status = "failed"
)

// ErrNotFound is returned when no job exists for the requested document.
var ErrNotFound = errors.New("store: job not found")

// Job is the persisted state of one document's ingestion.
type Job struct {
	// DocumentID identifies the document being processed.
	DocumentID string
	// Name is the human-readable document name supplied at submission.
	Name string
	// Status is the job's current lifecycle state.
	Status Status
	// Progress is the completion percentage, 0 to 100, monotonically
	// non-decreasing within a run.
	Progress int
	// Step names the pipeline stage currently executing.
	Step string
	// Error holds the failure reason when Status is failed.
	Error string
	// TextChunks is the number of text chunks indexed so far.
	TextChunks int
	// ImageChunks is the number of image and composite chunks indexed so far.
	ImageChunks int
	// TableChunks is the number of table chunks indexed so far.
	TableChunks int
	// CreatedAt is when the job row was first inserted.
	CreatedAt time.Time
	// UpdatedAt is when the job row last changed.
	UpdatedAt time.Time
}

// JobStore persists and retrieves processing jobs keyed by document ID.
// Implementations must be safe for concurrent use.
type JobStore interface {
	// Create inserts a fresh queued job, replacing any previous row for the
	// same document. Re-submission therefore resets progress to zero.
	Create(ctx context.Context, documentID, name string) error
	// Update applies the job's mutable fields (status, progress, step,
	// error, chunk counts) to its row.
	Update(ctx context.Context, job *Job) error
	// Get returns the job for the document, or ErrNotFound.
	Get(ctx context.Context, documentID string) (*Job, error)
	// Delete removes the job row. Deleting an unknown document is not an error.
	Delete(ctx context.Context, documentID string) error
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a JobStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the job database. It resolves
// to ~/.docrag/jobs.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".docrag")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "jobs.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS jobs (
    document_id   TEXT    PRIMARY KEY,
    name          TEXT    NOT NULL,
    status        TEXT    NOT NULL CHECK(status IN ('queued','processing','completed','failed')),
    progress      INTEGER NOT NULL DEFAULT 0,
    step          TEXT    NOT NULL DEFAULT '',
    error         TEXT    NOT NULL DEFAULT '',
    text_chunks   INTEGER NOT NULL DEFAULT 0,
    image_chunks  INTEGER NOT NULL DEFAULT 0,
    table_chunks  INTEGER NOT NULL DEFAULT 0,
    created_at    INTEGER NOT NULL,  -- Unix timestamp (seconds)
    updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Create inserts a fresh queued job for the document, replacing any prior row.
func (s *SQLiteStore) Create(ctx context.Context, documentID, name string) error {
	const q = `
INSERT INTO jobs (document_id, name, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(document_id) DO UPDATE SET
    name = excluded.name, status = excluded.status, progress = 0,
    step = '', error = '', text_chunks = 0, image_chunks = 0,
    table_chunks = 0, updated_at = excluded.updated_at`
	now := time.Now().Unix()
	if _, err := s.db.ExecContext(ctx, q, documentID, name, string(StatusQueued), now, now); err != nil {
		return fmt.Errorf("store: create job: %w", err)
	}
	return nil
}

// Update applies the job's mutable fields to its row.
func (s *SQLiteStore) Update(ctx context.Context, job *Job) error {
	const q = `
UPDATE jobs SET status = ?, progress = ?, step = ?, error = ?,
    text_chunks = ?, image_chunks = ?, table_chunks = ?, updated_at = ?
WHERE document_id = ?`
	res, err := s.db.ExecContext(ctx, q,
		string(job.Status), job.Progress, job.Step, job.Error,
		job.TextChunks, job.ImageChunks, job.TableChunks, time.Now().Unix(),
		job.DocumentID,
	)
	if err != nil {
		return fmt.Errorf("store: update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update job rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the job for the document, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, documentID string) (*Job, error) {
	const q = `
SELECT document_id, name, status, progress, step, error,
       text_chunks, image_chunks, table_chunks, created_at, updated_at
FROM   jobs
WHERE  document_id = ?`

	var j Job
	var status string
	var created, updated int64
	err := s.db.QueryRowContext(ctx, q, documentID).Scan(
		&j.DocumentID, &j.Name, &status, &j.Progress, &j.Step, &j.Error,
		&j.TextChunks, &j.ImageChunks, &j.TableChunks, &created, &updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get job: %w", err)
	}
	j.Status = Status(status)
	j.CreatedAt = time.Unix(created, 0)
	j.UpdatedAt = time.Unix(updated, 0)
	return &j, nil
}

// Delete removes the job row for the document.
func (s *SQLiteStore) Delete(ctx context.Context, documentID string) error {
	const q = `DELETE FROM jobs WHERE document_id = ?`
	if _, err := s.db.ExecContext(ctx, q, documentID); err != nil {
		return fmt.Errorf("store: delete job: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

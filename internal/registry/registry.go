// Package registry tracks per-project session lifecycle in a small SQLite
// database: which sessions were recorded, which are pending re-analysis,
// and which have already been merged into the evolution record.
package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Status is a session's position in the pipeline.
type Status string

const (
	StatusRecorded Status = "recorded" // log captured, not yet analyzed
	StatusDegraded Status = "degraded" // pty unavailable, session unanalyzable
	StatusEmpty    Status = "empty"    // log had no content, nothing to merge
	StatusPending  Status = "pending"  // analysis failed, eligible for retry
	StatusMerged   Status = "merged"   // merged into the evolution record
)

// Entry is one registered session.
type Entry struct {
	ID         string
	LogPath    string
	StartedAt  time.Time
	EndedAt    time.Time
	ExitStatus int
	Status     Status
	LastError  string
	MergedAt   time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	log_path    TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	ended_at    INTEGER NOT NULL DEFAULT 0,
	exit_status INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	last_error  TEXT NOT NULL DEFAULT '',
	merged_at   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
`

// Registry wraps the database handle.
type Registry struct {
	db *sql.DB
}

// Open opens (creating if needed) the registry at path.
func Open(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init registry schema: %w", err)
	}

	return &Registry{db: db}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Add inserts or replaces a session entry.
func (r *Registry) Add(e Entry) error {
	_, err := r.db.Exec(`
		INSERT OR REPLACE INTO sessions
			(id, log_path, started_at, ended_at, exit_status, status, last_error, merged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.LogPath, unix(e.StartedAt), unix(e.EndedAt), e.ExitStatus,
		string(e.Status), e.LastError, unix(e.MergedAt))
	if err != nil {
		return fmt.Errorf("add session %s: %w", e.ID, err)
	}
	return nil
}

// SetStatus updates a session's status and last error text.
func (r *Registry) SetStatus(id string, status Status, lastError string) error {
	_, err := r.db.Exec(`UPDATE sessions SET status = ?, last_error = ? WHERE id = ?`,
		string(status), lastError, id)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	return nil
}

// MarkMerged records a successful merge.
func (r *Registry) MarkMerged(id string, at time.Time) error {
	_, err := r.db.Exec(`UPDATE sessions SET status = ?, last_error = '', merged_at = ? WHERE id = ?`,
		string(StatusMerged), unix(at), id)
	if err != nil {
		return fmt.Errorf("mark merged %s: %w", id, err)
	}
	return nil
}

// Get returns the session entry, or (nil, nil) if not registered.
func (r *Registry) Get(id string) (*Entry, error) {
	row := r.db.QueryRow(`
		SELECT id, log_path, started_at, ended_at, exit_status, status, last_error, merged_at
		FROM sessions WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return e, nil
}

// Has reports whether a session is registered.
func (r *Registry) Has(id string) (bool, error) {
	e, err := r.Get(id)
	return e != nil, err
}

// Pending returns sessions eligible for retry or attention: pending
// analyses first, then degraded sessions, oldest first.
func (r *Registry) Pending() ([]Entry, error) {
	rows, err := r.db.Query(`
		SELECT id, log_path, started_at, ended_at, exit_status, status, last_error, merged_at
		FROM sessions
		WHERE status IN (?, ?, ?)
		ORDER BY status, started_at`,
		string(StatusPending), string(StatusRecorded), string(StatusDegraded))
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (*Entry, error) {
	var e Entry
	var started, ended, merged int64
	var status string
	if err := row.Scan(&e.ID, &e.LogPath, &started, &ended, &e.ExitStatus,
		&status, &e.LastError, &merged); err != nil {
		return nil, err
	}
	e.Status = Status(status)
	e.StartedAt = fromUnix(started)
	e.EndedAt = fromUnix(ended)
	e.MergedAt = fromUnix(merged)
	return &e, nil
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0)
}

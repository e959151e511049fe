package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder is a SQLite-backed Recorder: one file, append-only,
// suited to local runs and tests.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteRecorder opens (creating if needed) a SQLite audit log at
// path. Pass ":memory:" for an ephemeral in-process log.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: enable WAL: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS process_audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			process_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(process_id, seq)
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_audit_process_id ON process_audit_log(process_id)"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: create index: %w", err)
	}

	return &SQLiteRecorder{db: db}, nil
}

func (r *SQLiteRecorder) Append(ctx context.Context, processID string, seq int, kind string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("audit: recorder closed")
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO process_audit_log (process_id, seq, kind, payload) VALUES (?, ?, ?, ?)",
		processID, seq, kind, string(payload))
	return err
}

func (r *SQLiteRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLRecorder is a MySQL/MariaDB-backed Recorder, suited to
// long-running production deployments where the audit trail needs to
// outlive any single process instance.
type MySQLRecorder struct {
	db *sql.DB
}

// NewMySQLRecorder opens a MySQL audit log using dsn (see
// github.com/go-sql-driver/mysql for DSN format) and creates the
// backing table if it doesn't exist.
func NewMySQLRecorder(dsn string) (*MySQLRecorder, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	const schema = `
		CREATE TABLE IF NOT EXISTS process_audit_log (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			process_id VARCHAR(255) NOT NULL,
			seq BIGINT NOT NULL,
			kind VARCHAR(64) NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uniq_process_seq (process_id, seq),
			KEY idx_process_id (process_id)
		) ENGINE=InnoDB
	`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: create schema: %w", err)
	}

	return &MySQLRecorder{db: db}, nil
}

func (r *MySQLRecorder) Append(ctx context.Context, processID string, seq int, kind string, payload []byte) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO process_audit_log (process_id, seq, kind, payload) VALUES (?, ?, ?, ?)",
		processID, seq, kind, string(payload))
	return err
}

func (r *MySQLRecorder) Close() error {
	return r.db.Close()
}

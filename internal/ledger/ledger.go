// Package ledger keeps a local SQLite history of conversion runs.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// timeLayout has fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded conversion.
type Run struct {
	StartedAt time.Time
	ID        string
	Input     string
	Output    string
	Format    string
	Digest    string
	Status    string
	Error     string
	Rows      int
	Columns   int
	Duration  time.Duration
	Minimal   bool
}

// Ledger wraps the SQLite database connection.
type Ledger struct {
	conn *sql.DB
}

// Open opens (or creates) the ledger database at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer
	conn.SetMaxOpenConns(1)

	l := &Ledger{conn: conn}
	if err := l.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return l, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.conn.Close()
}

func (l *Ledger) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			output TEXT NOT NULL DEFAULT '',
			format TEXT NOT NULL,
			minimal INTEGER NOT NULL DEFAULT 0,
			row_count INTEGER NOT NULL DEFAULT 0,
			column_count INTEGER NOT NULL DEFAULT 0,
			digest TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, m := range migrations {
		if _, err := l.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Record stores a run.
func (l *Ledger) Record(ctx context.Context, run Run) error {
	_, err := l.conn.ExecContext(ctx,
		`INSERT INTO runs (id, input, output, format, minimal, row_count, column_count, digest, status, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Input, run.Output, run.Format, run.Minimal, run.Rows, run.Columns,
		run.Digest, run.Status, run.Error,
		run.StartedAt.UTC().Format(timeLayout), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}

	return nil
}

// Recent returns up to limit runs, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.conn.QueryContext(ctx,
		`SELECT id, input, output, format, minimal, row_count, column_count, digest, status, error, started_at, duration_ms
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var (
			run        Run
			startedAt  string
			durationMs int64
		)

		if err := rows.Scan(&run.ID, &run.Input, &run.Output, &run.Format, &run.Minimal,
			&run.Rows, &run.Columns, &run.Digest, &run.Status, &run.Error, &startedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		run.StartedAt, err = time.Parse(timeLayout, startedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: bad started_at %q: %w", run.ID, startedAt, err)
		}

		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

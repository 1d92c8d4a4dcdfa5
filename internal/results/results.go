// Package results keeps a queryable index of completed test runs in SQLite.
// The artifacts themselves live on disk; the index only records where they
// are and how the run went.
package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded test or suite execution.
type Run struct {
	ID          string    `json:"id"`
	Page        string    `json:"page"`
	RunType     string    `json:"runType"` // suite or single
	Status      string    `json:"status"`  // passed, failed, error, timed_out
	Right       int       `json:"right"`
	Wrong       int       `json:"wrong"`
	Ignored     int       `json:"ignored"`
	Exceptions  int       `json:"exceptions"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
	DurationMS  int64     `json:"durationMs"`
	ArtifactDir string    `json:"artifactDir,omitempty"`
}

// Index is the SQLite-backed run index.
type Index struct {
	db *sql.DB
}

// Open opens (creating if needed) the index at path and ensures the schema
// exists.
func Open(ctx context.Context, path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("results db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Index{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS test_run (
  id           TEXT PRIMARY KEY,
  page         TEXT NOT NULL,
  run_type     TEXT NOT NULL,
  status       TEXT NOT NULL,
  right_count  INTEGER NOT NULL DEFAULT 0,
  wrong_count  INTEGER NOT NULL DEFAULT 0,
  ignored      INTEGER NOT NULL DEFAULT 0,
  exceptions   INTEGER NOT NULL DEFAULT 0,
  started_at   TEXT NOT NULL,
  completed_at TEXT NOT NULL,
  duration_ms  INTEGER NOT NULL DEFAULT 0,
  artifact_dir TEXT
);`,
		`CREATE INDEX IF NOT EXISTS test_run_page_completed_idx ON test_run(page, completed_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap results db: %w", err)
		}
	}
	return nil
}

// Record inserts one completed run.
func (ix *Index) Record(ctx context.Context, run Run) error {
	_, err := ix.db.ExecContext(ctx, `
INSERT INTO test_run (id, page, run_type, status, right_count, wrong_count,
                      ignored, exceptions, started_at, completed_at,
                      duration_ms, artifact_dir)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Page, run.RunType, run.Status,
		run.Right, run.Wrong, run.Ignored, run.Exceptions,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.CompletedAt.UTC().Format(time.RFC3339),
		run.DurationMS, run.ArtifactDir)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

// ForPage returns the most recent runs for a page, newest first.
func (ix *Index) ForPage(ctx context.Context, page string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := ix.db.QueryContext(ctx, `
SELECT id, page, run_type, status, right_count, wrong_count, ignored,
       exceptions, started_at, completed_at, duration_ms,
       COALESCE(artifact_dir, '')
FROM test_run WHERE page = ? ORDER BY completed_at DESC LIMIT ?`, page, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs for %s: %w", page, err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, completed string
		if err := rows.Scan(&r.ID, &r.Page, &r.RunType, &r.Status,
			&r.Right, &r.Wrong, &r.Ignored, &r.Exceptions,
			&started, &completed, &r.DurationMS, &r.ArtifactDir); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.CompletedAt, _ = time.Parse(time.RFC3339, completed)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close releases the database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

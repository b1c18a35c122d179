// Package history records completed batch runs in SQLite so past runs can be
// inspected from the CLI. History is advisory: write failures are logged by
// callers, never fatal to a run.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded batch run.
type Run struct {
	ID          string
	PresetName  string
	StartedAt   time.Time
	FinishedAt  time.Time
	Total       int
	Succeeded   int
	Failed      int
	Skipped     int
	Cancelled   bool
	DurationSec float64
}

// Result is one job outcome within a run.
type Result struct {
	RunID       string
	Position    int
	Source      string
	Destination string
	Status      string
	Tier        string
	Message     string
	DurationSec float64
}

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under stateDir.
func Open(stateDir string) (*Store, error) {
	dbPath := filepath.Join(stateDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) applySchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			preset_name TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			total INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			cancelled INTEGER NOT NULL DEFAULT 0,
			duration_seconds REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS run_results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			source TEXT NOT NULL,
			destination TEXT NOT NULL,
			status TEXT NOT NULL,
			tier TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			duration_seconds REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun inserts a run and its per-job results in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, results []Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, preset_name, started_at, finished_at, total,
			succeeded, failed, skipped, cancelled, duration_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.PresetName,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Total,
		run.Succeeded,
		run.Failed,
		run.Skipped,
		boolToInt(run.Cancelled),
		run.DurationSec,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, result := range results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_results (run_id, position, source, destination,
				status, tier, message, duration_seconds)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			result.Position,
			result.Source,
			result.Destination,
			result.Status,
			result.Tier,
			result.Message,
			result.DurationSec,
		)
		if err != nil {
			return fmt.Errorf("insert result %d: %w", result.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, preset_name, started_at, finished_at, total,
			succeeded, failed, skipped, cancelled, duration_seconds
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		var cancelled int
		if err := rows.Scan(&run.ID, &run.PresetName, &started, &finished,
			&run.Total, &run.Succeeded, &run.Failed, &run.Skipped,
			&cancelled, &run.DurationSec); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		run.Cancelled = cancelled != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunResults returns the per-job outcomes of a run in submission order.
func (s *Store) RunResults(ctx context.Context, runID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, position, source, destination, status, tier, message, duration_seconds
		 FROM run_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var result Result
		if err := rows.Scan(&result.RunID, &result.Position, &result.Source,
			&result.Destination, &result.Status, &result.Tier,
			&result.Message, &result.DurationSec); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package history archives per-combination sweep summaries in a SQLite
// database, so results can be compared across harness invocations without
// re-parsing the shared metrics CSV.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pqv2x/falconsweep/internal/metrics"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable storage for sweep results.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// SweepResult is one archived combination outcome.
type SweepResult struct {
	Tag           string
	Scheme        string
	RunsRequested int
	RunsCompleted int
	Summary       metrics.Summary
	CreatedAt     string
}

// Open creates or opens the archive database at the given path.
// Idempotent: pragmas and schema are applied on every open.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	// SQLite supports one writer at a time; keep a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordSummary appends one sweep result row.
func (s *Store) RecordSummary(ctx context.Context, r SweepResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sweep_results (
			tag, scheme, runs_requested, runs_completed,
			sample_count, avg_total_us, stdev_total_us, min_total_us, max_total_us
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Tag, r.Scheme, r.RunsRequested, r.RunsCompleted,
		r.Summary.Count, r.Summary.MeanTotalUS, r.Summary.StdevTotalUS,
		r.Summary.MinTotalUS, r.Summary.MaxTotalUS,
	)
	if err != nil {
		return fmt.Errorf("failed to record sweep result: %w", err)
	}
	return nil
}

// ListResults returns archived results for a tag, newest first.
// An empty tag returns everything.
func (s *Store) ListResults(ctx context.Context, tag string) ([]SweepResult, error) {
	query := `
		SELECT tag, scheme, runs_requested, runs_completed,
		       sample_count, avg_total_us, stdev_total_us, min_total_us, max_total_us,
		       created_at
		FROM sweep_results`
	args := []any{}
	if tag != "" {
		query += " WHERE tag = ?"
		args = append(args, tag)
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep results: %w", err)
	}
	defer rows.Close()

	var results []SweepResult
	for rows.Next() {
		var r SweepResult
		if err := rows.Scan(
			&r.Tag, &r.Scheme, &r.RunsRequested, &r.RunsCompleted,
			&r.Summary.Count, &r.Summary.MeanTotalUS, &r.Summary.StdevTotalUS,
			&r.Summary.MinTotalUS, &r.Summary.MaxTotalUS,
			&r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sweep result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// internal/core/db/store.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/treelint/internal/types"
)

/*
 * Findings store.
 *
 * A run is opened with BeginRun, receives one RecordFile call per linted
 * file and is closed with FinishRun, which rolls the per-file counts up into
 * the run row. Each RecordFile is a single transaction covering the file row
 * and all of its findings.
 *
 * Timestamps are written as RFC3339 text on SQLite and as TIMESTAMP values
 * on PostgreSQL. Both read back through parseTime.
 */

// Run summarizes one lint invocation.
type Run struct {
	ID         types.RunID `json:"runId"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt *time.Time  `json:"finishedAt,omitempty"`
	Files      int         `json:"fileCount"`
	Errors     int         `json:"errorCount"`
	Warnings   int         `json:"warningCount"`
}

// FileRecord is one linted file as persisted.
type FileRecord struct {
	Path     string
	Language string
	Hash     uint64
	Findings []types.Finding
}

// Store persists runs, files and findings.
type Store struct {
	db      *sqlx.DB
	queries *Queries
	now     func() time.Time
}

// NewStore loads the named queries for db. Migrations must already be applied.
func NewStore(db *sqlx.DB) (*Store, error) {
	q, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, queries: q, now: time.Now}, nil
}

// BeginRun creates a run with a fresh UUIDv7 ID.
func (s *Store) BeginRun(ctx context.Context) (types.RunID, error) {
	id := types.NewRunID()
	if _, err := s.queries.Exec(ctx, "insert-run", string(id), s.timeArg(s.now())); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// RecordFile stores a file and its findings under runID atomically.
func (s *Store) RecordFile(ctx context.Context, runID types.RunID, rec FileRecord) (err error) {
	var errCount, warnCount int
	for _, f := range rec.Findings {
		switch f.Severity {
		case types.SeverityError:
			errCount++
		case types.SeverityWarn:
			warnCount++
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	q := s.queries.WithTx(tx)

	if _, err = q.Exec(ctx, "insert-file", string(runID), rec.Path, rec.Language, HashString(rec.Hash), errCount, warnCount); err != nil {
		return fmt.Errorf("failed to insert file %s: %w", rec.Path, err)
	}
	for _, f := range rec.Findings {
		if f.Severity == types.SeverityOff {
			continue
		}
		_, err = q.Exec(ctx, "insert-finding",
			string(runID), rec.Path, f.RuleID, f.Severity.String(), f.Message, f.Line, f.Column, f.NodeType)
		if err != nil {
			return fmt.Errorf("failed to insert finding for %s: %w", rec.Path, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit file %s: %w", rec.Path, err)
	}
	return nil
}

// FinishRun stamps the run as finished, aggregates its counts and returns it.
func (s *Store) FinishRun(ctx context.Context, runID types.RunID) (Run, error) {
	res, err := s.queries.Exec(ctx, "finish-run", s.timeArg(s.now()), string(runID))
	if err != nil {
		return Run{}, fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Run{}, fmt.Errorf("%w: %s", types.ErrRunNotFound, runID)
	}
	return s.GetRun(ctx, runID)
}

type runRow struct {
	ID         string         `db:"run_id"`
	StartedAt  string         `db:"started_at"`
	FinishedAt sql.NullString `db:"finished_at"`
	Files      int            `db:"file_count"`
	Errors     int            `db:"error_count"`
	Warnings   int            `db:"warning_count"`
}

func (r runRow) toRun() (Run, error) {
	started, err := parseTime(r.StartedAt)
	if err != nil {
		return Run{}, err
	}
	run := Run{
		ID:        types.RunID(r.ID),
		StartedAt: started,
		Files:     r.Files,
		Errors:    r.Errors,
		Warnings:  r.Warnings,
	}
	if r.FinishedAt.Valid {
		finished, err := parseTime(r.FinishedAt.String)
		if err != nil {
			return Run{}, err
		}
		run.FinishedAt = &finished
	}
	return run, nil
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, runID types.RunID) (Run, error) {
	var row runRow
	if err := s.queries.Get(ctx, "get-run", &row, string(runID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("%w: %s", types.ErrRunNotFound, runID)
		}
		return Run{}, err
	}
	return row.toRun()
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	var rows []runRow
	if err := s.queries.Select(ctx, "list-runs", &rows, limit); err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

type findingRow struct {
	Path     string `db:"path"`
	RuleID   string `db:"rule_id"`
	Severity string `db:"severity"`
	Message  string `db:"message"`
	Line     int    `db:"line"`
	Column   int    `db:"column_no"`
	NodeType string `db:"node_type"`
}

// ListFindings returns the findings of a run ordered by path and position.
func (s *Store) ListFindings(ctx context.Context, runID types.RunID) ([]types.Finding, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	var rows []findingRow
	if err := s.queries.Select(ctx, "list-findings", &rows, string(runID)); err != nil {
		return nil, err
	}
	findings := make([]types.Finding, 0, len(rows))
	for _, row := range rows {
		sev, err := types.ParseSeverity(row.Severity)
		if err != nil {
			return nil, err
		}
		findings = append(findings, types.Finding{
			RuleID:   row.RuleID,
			Severity: sev,
			Message:  row.Message,
			Path:     row.Path,
			Line:     row.Line,
			Column:   row.Column,
			NodeType: row.NodeType,
		})
	}
	return findings, nil
}

// StoredFile is a file row of a run.
type StoredFile struct {
	Path     string `db:"path" json:"path"`
	Language string `db:"language" json:"language"`
	Hash     string `db:"content_hash" json:"hash"`
	Errors   int    `db:"error_count" json:"errorCount"`
	Warnings int    `db:"warning_count" json:"warningCount"`
}

// ListFiles returns the files recorded for a run, ordered by path.
func (s *Store) ListFiles(ctx context.Context, runID types.RunID) ([]StoredFile, error) {
	var files []StoredFile
	if err := s.queries.Select(ctx, "list-files", &files, string(runID)); err != nil {
		return nil, err
	}
	return files, nil
}

// HashString renders a 64-bit content hash as fixed-width hex.
func HashString(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// timeArg formats t for the connected driver, as applyMigration does.
func (s *Store) timeArg(t time.Time) any {
	t = t.UTC().Truncate(time.Second)
	if s.db.DriverName() == "sqlite3" {
		return t.Format(time.RFC3339)
	}
	return t
}

// parseTime reads a timestamp column scanned as text. PostgreSQL TIMESTAMP
// values arrive formatted as RFC3339Nano by database/sql.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

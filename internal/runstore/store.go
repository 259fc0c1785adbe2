// Package runstore persists run history and acquisition-group numbering in
// SQLite, so group ids stay stable between classification passes.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tidybids/internal/acquisition"
)

// Run kinds recorded in history.
const (
	KindClassify = "classify"
	KindApply    = "apply"
)

// Run is one recorded invocation.
type Run struct {
	ID          string
	Kind        string
	StartedAt   time.Time
	FinishedAt  time.Time
	EntitySets  int
	ParamGroups int
	Files       int
	Renamed     int
	Merged      int
	Deleted     int
	Warnings    int
}

// Store is the SQLite-backed history database.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the database at path and applies
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
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

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordRun inserts one run into the history.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            id, kind, started_at, finished_at,
            entity_sets, param_groups, files, renamed, merged, deleted, warnings
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Kind,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.EntitySets,
		run.ParamGroups,
		run.Files,
		run.Renamed,
		run.Merged,
		run.Deleted,
		run.Warnings,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, kind, started_at, finished_at,
        entity_sets, param_groups, files, renamed, merged, deleted, warnings
        FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Kind, &started, &finished,
			&run.EntitySets, &run.ParamGroups, &run.Files,
			&run.Renamed, &run.Merged, &run.Deleted, &run.Warnings); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// AcquisitionNumbers loads the persisted signature → group id mapping.
func (s *Store) AcquisitionNumbers(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT signature, group_id FROM acq_group_numbers")
	if err != nil {
		return nil, fmt.Errorf("query acquisition numbers: %w", err)
	}
	defer rows.Close()

	numbers := make(map[string]int)
	for rows.Next() {
		var signature string
		var id int
		if err := rows.Scan(&signature, &id); err != nil {
			return nil, fmt.Errorf("scan acquisition number: %w", err)
		}
		numbers[signature] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate acquisition numbers: %w", err)
	}
	return numbers, nil
}

// SaveAcquisitionNumbers upserts the numbering of the given groups. Existing
// signatures keep their ids updated in place; signatures absent from the
// batch are left untouched.
func (s *Store) SaveAcquisitionNumbers(ctx context.Context, groups []acquisition.Group) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin numbers tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, group := range groups {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO acq_group_numbers (signature, group_id) VALUES (?, ?)
             ON CONFLICT(signature) DO UPDATE SET group_id = excluded.group_id`,
			acquisition.SignatureKey(group.Signature), group.ID)
		if err != nil {
			return fmt.Errorf("upsert acquisition number: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit numbers tx: %w", err)
	}
	return nil
}

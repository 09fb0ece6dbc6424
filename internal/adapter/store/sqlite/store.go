// Package sqlite persists run history in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/reviewpilot/reviewpilot/internal/usecase/review"
)

// Store implements the review.HistoryStore interface using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a store at the given path. Use ":memory:" for an
// in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		repository TEXT NOT NULL,
		change_set INTEGER NOT NULL,
		model TEXT,
		outcome TEXT NOT NULL,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_repository ON runs(repository, change_set);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun inserts one run record.
func (s *Store) RecordRun(ctx context.Context, rec review.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, repository, change_set, model, outcome, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), time.Now().Unix(),
		rec.Repository, rec.ChangeSet, rec.Model, rec.Outcome, rec.Detail)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// CountRuns returns the number of recorded runs for a repository.
func (s *Store) CountRuns(ctx context.Context, repository string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM runs WHERE repository = ?`, repository).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return count, nil
}

// LastOutcome returns the most recent outcome for a change set, or empty
// when none is recorded.
func (s *Store) LastOutcome(ctx context.Context, repository string, changeSet int) (string, error) {
	var outcome string
	err := s.db.QueryRowContext(ctx,
		`SELECT outcome FROM runs WHERE repository = ? AND change_set = ?
		 ORDER BY created_at DESC LIMIT 1`,
		repository, changeSet).Scan(&outcome)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last outcome: %w", err)
	}
	return outcome, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"nullbench/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createEvaluationRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create evaluation_runs table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createEvaluationRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS evaluation_runs (
			id TEXT PRIMARY KEY,
			sequence_hash TEXT NOT NULL,
			scorer_name TEXT NOT NULL,
			fingerprint JSONB NOT NULL,
			status TEXT NOT NULL,
			requested_trials INTEGER NOT NULL DEFAULT 0,
			completed_trials INTEGER NOT NULL DEFAULT 0,
			failed_trials INTEGER NOT NULL DEFAULT 0,
			null_scores JSONB NOT NULL DEFAULT '[]',
			result JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_evaluation_runs_created_at ON evaluation_runs (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluation_runs_sequence_hash ON evaluation_runs (sequence_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluation_runs_status ON evaluation_runs (status)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

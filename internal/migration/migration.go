package migration

import (
	"context"
	"fmt"

	"sibdebt/internal/errors"

	"github.com/jmoiron/sqlx"
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
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create runs table")
	}

	if err := r.createModelResultsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create model_results table")
	}

	if err := r.createSkippedModelsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create skipped_models table")
	}

	if err := r.createValidationIssuesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create validation_issues table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			run_id VARCHAR(50) PRIMARY KEY,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			status VARCHAR(20) NOT NULL DEFAULT 'completed',
			survey_year INTEGER NOT NULL,
			analysis_rows INTEGER NOT NULL DEFAULT 0,
			model_count INTEGER NOT NULL DEFAULT 0,
			fingerprint VARCHAR(64) NOT NULL,
			manifest JSONB
		)
	`)
	return err
}

func (r *MigrationRunner) createModelResultsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS model_results (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			run_id VARCHAR(50) NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			name VARCHAR(100) NOT NULL,
			label TEXT,
			estimator VARCHAR(20) NOT NULL,
			dep_var VARCHAR(100) NOT NULL,
			robust_se VARCHAR(20),
			scale_features BOOLEAN DEFAULT false,
			n_obs INTEGER NOT NULL,
			terms TEXT[] NOT NULL,
			coefficients DOUBLE PRECISION[] NOT NULL,
			std_errors DOUBLE PRECISION[],
			t_values DOUBLE PRECISION[],
			p_values DOUBLE PRECISION[],
			r_squared DOUBLE PRECISION,
			adj_r_squared DOUBLE PRECISION,
			aic DOUBLE PRECISION,
			bic DOUBLE PRECISION,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE(run_id, name)
		)
	`)
	return err
}

func (r *MigrationRunner) createSkippedModelsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS skipped_models (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			run_id VARCHAR(50) NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			name VARCHAR(100) NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createValidationIssuesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS validation_issues (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			run_id VARCHAR(50) NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			column_name VARCHAR(100) NOT NULL,
			rule VARCHAR(50) NOT NULL,
			severity VARCHAR(10) NOT NULL,
			detail TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint)",

		"CREATE INDEX IF NOT EXISTS idx_model_results_run_id ON model_results(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_model_results_name ON model_results(name)",

		"CREATE INDEX IF NOT EXISTS idx_skipped_models_run_id ON skipped_models(run_id)",

		"CREATE INDEX IF NOT EXISTS idx_validation_issues_run_id ON validation_issues(run_id)",
		"CREATE INDEX IF NOT EXISTS idx_validation_issues_severity ON validation_issues(severity)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			fmt.Printf("Warning: failed to create index: %v\n", err)
		}
	}

	return nil
}

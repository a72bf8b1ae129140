package ports

import (
	"context"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/run"
	"sibdebt/domain/study"
)

// RunRepository persists completed runs and serves them back to the
// dashboard. Persistence is optional at runtime; a nil repository
// means results live only on disk.
type RunRepository interface {
	// SaveResult stores the run record, its manifest, every model
	// result, and all validation issues in one transaction.
	SaveResult(ctx context.Context, result *run.StudyResult) error

	GetRun(ctx context.Context, runID core.RunID) (*run.Record, error)
	ListRuns(ctx context.Context, limit int) ([]run.Record, error)
	GetModelResults(ctx context.Context, runID core.RunID) ([]study.ModelResult, error)
	GetValidationIssues(ctx context.Context, runID core.RunID) ([]dataset.Violation, error)
}

package ports

import (
	"sibdebt/domain/dataset"
	"sibdebt/domain/study"
)

// DiagnosticsEngine computes the pre-estimation screens reported
// alongside the models: descriptive statistics, the missing-value
// audit, and variance inflation factors.
type DiagnosticsEngine interface {
	// Describe summarises the named columns over their defined values,
	// in request order. Unknown columns are skipped.
	Describe(frame *dataset.Frame, columns []string) []study.DescriptiveRow

	// ComputeVIF screens complete-case regressor columns for
	// multicollinearity. Entries come back sorted by VIF descending.
	ComputeVIF(names []string, cols [][]float64, threshold float64) ([]study.VIFEntry, error)

	// MissingAudit reports per-column missing counts for every column
	// with at least one missing value.
	MissingAudit(frame *dataset.Frame) []study.MissingEntry
}

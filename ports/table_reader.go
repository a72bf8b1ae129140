package ports

import (
	"context"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
)

// TableReader loads a survey data file into a column-oriented frame.
// Implementations exist for Stata .dta files and for CSV/XLSX tables.
type TableReader interface {
	// ReadTable reads the whole file. Numeric columns become float64
	// with NaN for missing; string columns are dropped unless they can
	// be parsed as numbers.
	ReadTable(ctx context.Context, path string) (*dataset.Frame, error)

	// Checksum returns the sha256 of the file's bytes for the run
	// manifest.
	Checksum(path string) (core.FileChecksum, error)
}

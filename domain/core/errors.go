package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)

	// Data integrity errors - these abort a pipeline run
	ErrMissingColumn    = errors.New("required column missing")
	ErrRowCountMismatch = errors.New("merge changed row count")
	ErrDataLoad         = errors.New("data load failed")

	// Schema errors
	ErrSchemaInvalid = errors.New("invalid column schema")

	// Estimation errors
	ErrUnknownEstimator = errors.New("unknown estimator")
	ErrInsufficientData = errors.New("insufficient data for estimation")
)

// Error constructors with context
func NewMissingColumnError(table string, column string) error {
	return fmt.Errorf("%w: %s in %s table", ErrMissingColumn, column, table)
}

func NewRowCountError(before int, after int) error {
	return fmt.Errorf("%w: %d rows before, %d after (join key not unique)", ErrRowCountMismatch, before, after)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewDataLoadError(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDataLoad, path, err)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrRowCountMismatch) ||
		errors.Is(err, ErrDataLoad)
}

func IsEstimationError(err error) bool {
	return errors.Is(err, ErrUnknownEstimator) ||
		errors.Is(err, ErrInsufficientData)
}

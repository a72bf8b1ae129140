package dataset

import (
	"fmt"
	"math"

	"sibdebt/domain/core"
)

// Frame is the canonical tabular object threaded through the pipeline.
// It is column-oriented: every column is a []float64 and NaN marks a
// missing value. Stages produce new columns that the orchestrator folds
// in via AddColumn/SetColumn; no stage rewrites another stage's columns.
type Frame struct {
	names   []string
	columns [][]float64
	index   map[string]int
	rows    int
}

// NewFrame creates an empty frame with a fixed row count.
func NewFrame(rows int) *Frame {
	return &Frame{
		index: make(map[string]int),
		rows:  rows,
	}
}

// RowCount returns the number of rows.
func (f *Frame) RowCount() int {
	return f.rows
}

// ColumnCount returns the number of columns.
func (f *Frame) ColumnCount() int {
	return len(f.names)
}

// ColumnNames returns the column names in insertion order.
func (f *Frame) ColumnNames() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns a copy of the named column's values.
func (f *Frame) Column(name string) ([]float64, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, f.rows)
	copy(out, f.columns[i])
	return out, true
}

// AddColumn appends a new column. The value count must match the frame's
// row count and the name must be new.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != f.rows {
		return core.NewValidationError(name, fmt.Sprintf("expected %d values, got %d", f.rows, len(values)))
	}
	if _, exists := f.index[name]; exists {
		return core.NewValidationError(name, "column already exists")
	}
	col := make([]float64, f.rows)
	copy(col, values)
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	f.columns = append(f.columns, col)
	return nil
}

// SetColumn adds the column, or replaces its values if it already exists.
func (f *Frame) SetColumn(name string, values []float64) error {
	if len(values) != f.rows {
		return core.NewValidationError(name, fmt.Sprintf("expected %d values, got %d", f.rows, len(values)))
	}
	if i, exists := f.index[name]; exists {
		col := make([]float64, f.rows)
		copy(col, values)
		f.columns[i] = col
		return nil
	}
	return f.AddColumn(name, values)
}

// SelectColumns returns a new frame containing only the named columns,
// in the given order. Unknown names are an error; callers filter first.
func (f *Frame) SelectColumns(names []string) (*Frame, error) {
	out := NewFrame(f.rows)
	for _, name := range names {
		i, ok := f.index[name]
		if !ok {
			return nil, core.NewValidationError(name, "column not found")
		}
		if err := out.AddColumn(name, f.columns[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FilterRows returns a new frame with only the rows where keep is true.
func (f *Frame) FilterRows(keep []bool) (*Frame, error) {
	if len(keep) != f.rows {
		return nil, core.NewValidationError("keep", fmt.Sprintf("expected %d flags, got %d", f.rows, len(keep)))
	}
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	out := NewFrame(n)
	for ci, name := range f.names {
		col := make([]float64, 0, n)
		for ri, k := range keep {
			if k {
				col = append(col, f.columns[ci][ri])
			}
		}
		if err := out.AddColumn(name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// TakeRows returns a new frame with the rows at the given positions, in
// the given order.
func (f *Frame) TakeRows(positions []int) (*Frame, error) {
	for _, p := range positions {
		if p < 0 || p >= f.rows {
			return nil, core.NewValidationError("positions", fmt.Sprintf("row %d out of range [0,%d)", p, f.rows))
		}
	}
	out := NewFrame(len(positions))
	for ci, name := range f.names {
		col := make([]float64, len(positions))
		for i, p := range positions {
			col[i] = f.columns[ci][p]
		}
		if err := out.AddColumn(name, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := NewFrame(f.rows)
	for ci, name := range f.names {
		// AddColumn copies the data
		if err := out.AddColumn(name, f.columns[ci]); err != nil {
			// names are unique in the source, so this cannot happen
			panic(err)
		}
	}
	return out
}

// Validate ensures the frame is internally consistent.
func (f *Frame) Validate() error {
	if len(f.names) != len(f.columns) {
		return core.NewValidationError("columns", "name/data length mismatch")
	}
	for ci, name := range f.names {
		if len(f.columns[ci]) != f.rows {
			return core.NewValidationError(name, fmt.Sprintf("expected %d values, got %d", f.rows, len(f.columns[ci])))
		}
		if f.index[name] != ci {
			return core.NewValidationError(name, "index out of sync")
		}
	}
	return nil
}

// IsMissing reports whether a value is the missing marker.
func IsMissing(x float64) bool {
	return math.IsNaN(x)
}

// Missing returns the missing marker.
func Missing() float64 {
	return math.NaN()
}

// MissingColumn returns a column of n missing values.
func MissingColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}

// CountDefined returns how many values in the column are not missing.
func CountDefined(values []float64) int {
	n := 0
	for _, v := range values {
		if !IsMissing(v) {
			n++
		}
	}
	return n
}

// CountMissing returns how many values in the column are missing.
func CountMissing(values []float64) int {
	return len(values) - CountDefined(values)
}

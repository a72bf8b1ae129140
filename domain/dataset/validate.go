package dataset

import (
	"fmt"
	"log"
	"math"
	"sort"
)

// Severity grades a violation. Only errors affect overall validity.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Violation rule identifiers.
const (
	RuleMissingColumn  = "MISSING_COLUMN"
	RuleNotNullable    = "NOT_NULLABLE"
	RuleHighMissing    = "HIGH_MISSING"
	RuleBelowMin       = "BELOW_MIN"
	RuleAboveMax       = "ABOVE_MAX"
	RuleInvalidValues  = "INVALID_VALUES"
	RuleInfiniteValues = "INFINITE_VALUES"
)

// highMissingThreshold is the nullable-column missing share above which
// a warning is emitted. Below it, missingness is normal survey attrition.
const highMissingThreshold = 80.0

// Violation is a single schema violation found during validation.
type Violation struct {
	Column   string   `json:"column"`
	Rule     string   `json:"rule"`
	Detail   string   `json:"detail"`
	Severity Severity `json:"severity"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s - %s", v.Severity, v.Column, v.Rule, v.Detail)
}

// ValidationReport aggregates the violations of one validation pass.
// Violations are appended during the pass and never mutated after.
type ValidationReport struct {
	Violations     []Violation `json:"violations"`
	RowsChecked    int         `json:"rows_checked"`
	ColumnsChecked int         `json:"columns_checked"`
}

// IsValid reports whether the pass found no error-severity violations.
// Warnings never affect validity.
func (r *ValidationReport) IsValid() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			return false
		}
	}
	return true
}

// ErrorCount returns the number of error-severity violations.
func (r *ValidationReport) ErrorCount() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			n++
		}
	}
	return n
}

// WarningCount returns the number of warning-severity violations.
func (r *ValidationReport) WarningCount() int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// Summary renders a one-line pass/fail summary.
func (r *ValidationReport) Summary() string {
	status := "PASS"
	if !r.IsValid() {
		status = "FAIL"
	}
	return fmt.Sprintf("Validation %s: %d rows, %d columns checked. %d errors, %d warnings.",
		status, r.RowsChecked, r.ColumnsChecked, r.ErrorCount(), r.WarningCount())
}

// Validate checks a frame against the schema, column by column, and
// returns the structured report. Violations are findings, not errors;
// the caller decides whether an invalid report stops the run.
func Validate(frame *Frame, schema []ColumnSchema) *ValidationReport {
	report := &ValidationReport{
		RowsChecked:    frame.RowCount(),
		ColumnsChecked: len(schema),
	}

	for _, cs := range schema {
		report.Violations = append(report.Violations, checkColumn(frame, cs)...)
	}

	if report.IsValid() {
		log.Printf("[Validator] %s", report.Summary())
	} else {
		log.Printf("[Validator] %s", report.Summary())
		for _, v := range report.Violations {
			log.Printf("[Validator] %s", v)
		}
	}

	return report
}

// checkColumn runs the per-column rules in order. A missing column
// short-circuits everything else; an all-missing column short-circuits
// the value checks.
func checkColumn(frame *Frame, cs ColumnSchema) []Violation {
	var violations []Violation

	values, ok := frame.Column(cs.Name)
	if !ok {
		return append(violations, Violation{
			Column: cs.Name, Rule: RuleMissingColumn,
			Detail: "Column not found in table.", Severity: SeverityError,
		})
	}

	nullCount := CountMissing(values)
	if nullCount > 0 {
		pct := float64(nullCount) / float64(len(values)) * 100
		if !cs.Nullable {
			violations = append(violations, Violation{
				Column: cs.Name, Rule: RuleNotNullable,
				Detail:   fmt.Sprintf("%d null values (%.1f%%) in non-nullable column.", nullCount, pct),
				Severity: SeverityError,
			})
		} else if pct > highMissingThreshold {
			violations = append(violations, Violation{
				Column: cs.Name, Rule: RuleHighMissing,
				Detail:   fmt.Sprintf("%d null values (%.1f%%) - may compromise analysis.", nullCount, pct),
				Severity: SeverityWarning,
			})
		}
	}

	defined := make([]float64, 0, len(values)-nullCount)
	for _, v := range values {
		if !IsMissing(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return violations
	}

	if cs.MinValue != nil {
		below := 0
		actualMin := math.Inf(1)
		for _, v := range defined {
			if v < actualMin {
				actualMin = v
			}
			if v < *cs.MinValue {
				below++
			}
		}
		if below > 0 {
			violations = append(violations, Violation{
				Column: cs.Name, Rule: RuleBelowMin,
				Detail: fmt.Sprintf("%d values below minimum %v. Actual min = %v.",
					below, *cs.MinValue, actualMin),
				Severity: SeverityError,
			})
		}
	}

	if cs.MaxValue != nil {
		above := 0
		actualMax := math.Inf(-1)
		for _, v := range defined {
			if v > actualMax {
				actualMax = v
			}
			if v > *cs.MaxValue {
				above++
			}
		}
		if above > 0 {
			violations = append(violations, Violation{
				Column: cs.Name, Rule: RuleAboveMax,
				Detail: fmt.Sprintf("%d values above maximum %v. Actual max = %v.",
					above, *cs.MaxValue, actualMax),
				Severity: SeverityError,
			})
		}
	}

	if cs.AllowedValues != nil {
		allowed := make(map[float64]bool, len(cs.AllowedValues))
		for _, v := range cs.AllowedValues {
			allowed[v] = true
		}
		invalidCount := 0
		seen := make(map[float64]bool)
		var examples []float64
		for _, v := range defined {
			if allowed[v] {
				continue
			}
			invalidCount++
			if !seen[v] {
				seen[v] = true
				if len(examples) < 5 {
					examples = append(examples, v)
				}
			}
		}
		if invalidCount > 0 {
			sort.Float64s(examples)
			allowedSorted := make([]float64, len(cs.AllowedValues))
			copy(allowedSorted, cs.AllowedValues)
			sort.Float64s(allowedSorted)
			violations = append(violations, Violation{
				Column: cs.Name, Rule: RuleInvalidValues,
				Detail: fmt.Sprintf("%d values outside allowed set %v. Examples: %v.",
					invalidCount, allowedSorted, examples),
				Severity: SeverityError,
			})
		}
	}

	infCount := 0
	for _, v := range defined {
		if math.IsInf(v, 0) {
			infCount++
		}
	}
	if infCount > 0 {
		violations = append(violations, Violation{
			Column: cs.Name, Rule: RuleInfiniteValues,
			Detail:   fmt.Sprintf("%d infinite values detected.", infCount),
			Severity: SeverityError,
		})
	}

	return violations
}

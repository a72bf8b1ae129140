package dataset

import (
	"fmt"

	"sibdebt/domain/core"
)

// ColumnType tags the logical type of an analysis column.
type ColumnType string

const (
	TypeFloat       ColumnType = "float"
	TypeInt         ColumnType = "int"
	TypeCategorical ColumnType = "categorical"
	TypeBinary      ColumnType = "binary"
)

// ColumnSchema holds the validation rules for one analysis column.
// Min/Max are nil when unbounded; AllowedValues is nil when any value
// in range is acceptable.
type ColumnSchema struct {
	Name          string     `json:"name"`
	Label         string     `json:"label"`
	Type          ColumnType `json:"type"`
	Nullable      bool       `json:"nullable"`
	MinValue      *float64   `json:"min_value,omitempty"`
	MaxValue      *float64   `json:"max_value,omitempty"`
	AllowedValues []float64  `json:"allowed_values,omitempty"`
}

// NewColumnSchema checks rule consistency at definition time. A minimum
// above the maximum is a programming error and fails here, long before
// any data is seen.
func NewColumnSchema(cs ColumnSchema) (ColumnSchema, error) {
	if cs.Name == "" {
		return ColumnSchema{}, fmt.Errorf("%w: empty column name", core.ErrSchemaInvalid)
	}
	if cs.MinValue != nil && cs.MaxValue != nil && *cs.MinValue > *cs.MaxValue {
		return ColumnSchema{}, fmt.Errorf("%w: column %q: min_value (%v) > max_value (%v)",
			core.ErrSchemaInvalid, cs.Name, *cs.MinValue, *cs.MaxValue)
	}
	return cs, nil
}

func mustColumnSchema(cs ColumnSchema) ColumnSchema {
	out, err := NewColumnSchema(cs)
	if err != nil {
		panic(err)
	}
	return out
}

func bound(v float64) *float64 {
	return &v
}

// analysisSchema mirrors the published study's analysis table, one rule
// set per regression column.
var analysisSchema = []ColumnSchema{
	mustColumnSchema(ColumnSchema{
		Name: "hhid", Label: "Household ID", Type: TypeInt, Nullable: false,
	}),
	mustColumnSchema(ColumnSchema{
		Name: "head_siblings", Label: "Number of siblings (head, age <= 40)",
		Type: TypeFloat, Nullable: true, MinValue: bound(0), MaxValue: bound(30),
	}),
	mustColumnSchema(ColumnSchema{
		Name: "debt_ratio_winsorized", Label: "Debt-to-asset ratio (winsorized 1%)",
		Type: TypeFloat, Nullable: true, MinValue: bound(0),
	}),
	mustColumnSchema(ColumnSchema{
		Name: "log_debt_ratio_winsorized", Label: "Log debt-to-asset ratio",
		Type: TypeFloat, Nullable: true,
	}),
	mustColumnSchema(ColumnSchema{
		Name: "total_debt", Label: "Total household debt (CNY)",
		Type: TypeFloat, Nullable: true, MinValue: bound(0),
	}),
	mustColumnSchema(ColumnSchema{
		Name: "total_assets", Label: "Total household assets (CNY)",
		Type: TypeFloat, Nullable: true, MinValue: bound(0),
	}),
	mustColumnSchema(ColumnSchema{
		Name: "head_age", Label: "Head age (years)",
		Type: TypeFloat, Nullable: true, MinValue: bound(16), MaxValue: bound(120),
	}),
	mustColumnSchema(ColumnSchema{
		Name: "head_is_male", Label: "Head is male (1/0)",
		Type: TypeBinary, Nullable: true, AllowedValues: []float64{0, 1},
	}),
	mustColumnSchema(ColumnSchema{
		Name: "head_educ", Label: "Head education level",
		Type: TypeCategorical, Nullable: true, MinValue: bound(1), MaxValue: bound(9),
	}),
	mustColumnSchema(ColumnSchema{
		Name: "head_is_married", Label: "Head is married (1/0)",
		Type: TypeBinary, Nullable: true, AllowedValues: []float64{0, 1},
	}),
	mustColumnSchema(ColumnSchema{
		Name: "head_health", Label: "Head self-rated health (1=best .. 5=worst)",
		Type: TypeCategorical, Nullable: true, MinValue: bound(1), MaxValue: bound(5),
	}),
	mustColumnSchema(ColumnSchema{
		Name: "has_business", Label: "Household owns a business (1/0)",
		Type: TypeBinary, Nullable: true, AllowedValues: []float64{0, 1},
	}),
	mustColumnSchema(ColumnSchema{
		Name: "num_houses", Label: "Number of houses owned",
		Type: TypeFloat, Nullable: true, MinValue: bound(0),
	}),
	mustColumnSchema(ColumnSchema{
		Name: "log_total_assets", Label: "Log(total_assets + 1)",
		Type: TypeFloat, Nullable: true, MinValue: bound(0),
	}),
}

// AnalysisSchema returns the rule set for the analysis-ready table.
func AnalysisSchema() []ColumnSchema {
	out := make([]ColumnSchema, len(analysisSchema))
	copy(out, analysisSchema)
	return out
}

// SchemaByName returns a name-keyed view of a schema list.
func SchemaByName(schema []ColumnSchema) map[string]ColumnSchema {
	out := make(map[string]ColumnSchema, len(schema))
	for _, cs := range schema {
		out[cs.Name] = cs
	}
	return out
}

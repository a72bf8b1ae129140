package survey

import (
	"math"
	"strings"
)

// Midpoint tables transcribed from the 2017 wave codebook. Each table
// covers a cluster of questions that share one bracket layout; the
// bracket boundaries are the survey designers' choice, not ours. Keys
// are interval codes as recorded in the source file, values are
// midpoints in CNY (square metres where noted).

type codebookTable struct {
	variables []string
	codes     map[int]float64
}

var codebookTables = []codebookTable{
	{
		variables: []string{
			"b2003ait", "b2050it", "b2059it", "b2063it", "b2080it",
			"d3109it", "d3110it", "d4103it", "d5107it", "d5108it",
			"d6100ait", "d8104it", "d9103it", "d9110ait", "k2102cit", "c3019ait",
		},
		codes: map[int]float64{
			1: 5_000, 2: 20_000, 3: 40_000, 4: 60_000, 5: 85_000,
			6: 200_000, 7: 400_000, 8: 750_000, 9: 3_000_000,
			10: 7_500_000, 11: 15_000_000,
		},
	},
	{
		variables: []string{"b2003bit", "b2052it"},
		codes: map[int]float64{
			1: 5_000, 2: 20_000, 3: 40_000, 4: 60_000, 5: 85_000,
			6: 200_000, 7: 400_000, 8: 750_000, 9: 3_000_000,
			10: 7_500_000, 11: 15_000_000,
		},
	},
	{
		variables: []string{
			"b2003eit", "b2055it", "a3136it", "d3117it", "b2046it",
			"b3004bit", "b3005bit", "b3005it", "b3006ait", "b3030dit",
			"b3030eit", "b3031ait", "b3045cit", "b3056ait", "c3017cait",
			"c3019cit", "c3019eit", "c7052bit", "c7060it", "c7061it",
			"c7062it", "c8007it", "d1105it", "d2104it", "d3103it",
			"d7106hit", "d7110ait", "e1006it", "e1022it", "e3003cit",
			"e4003it", "h2004it", "c2035ait",
		},
		codes: map[int]float64{
			1: 5_000, 2: 15_000, 3: 35_000, 4: 75_000, 5: 150_000,
			6: 250_000, 7: 400_000, 8: 750_000, 9: 1_500_000,
			10: 3_500_000, 11: 7_500_000,
		},
	},
	{
		variables: []string{
			"b2093it", "a3136ait", "a3136bit", "a3137it", "b2110it",
			"d5109it", "d7106jit", "d7112it", "d9105it", "d9108it",
			"d9110bit", "k1101it", "k2208it", "f1010it", "f1031it",
		},
		codes: map[int]float64{
			1: 2_500, 2: 7_500, 3: 15_000, 4: 35_000, 5: 75_000,
			6: 125_000, 7: 175_000, 8: 250_000, 9: 400_000,
			10: 750_000, 11: 1_500_000,
		},
	},
	{
		variables: []string{"b3008fit"},
		codes: map[int]float64{
			1: 500, 2: 1_500, 3: 3_500, 4: 7_500, 5: 15_000,
			6: 35_000, 7: 75_000, 8: 150_000,
		},
	},
	{
		// unit: square metres
		variables: []string{"c1000bbit"},
		codes: map[int]float64{
			1: 25, 2: 60.5, 3: 80.5, 4: 95.5, 5: 110.5,
			6: 132, 7: 172, 8: 300,
		},
	},
	{
		variables: []string{"c1000bdit"},
		codes: map[int]float64{
			1: 50_000, 2: 200_000, 3: 400_000, 4: 600_000, 5: 850_000,
			6: 1_250_000, 7: 2_250_000, 8: 4_000_000, 9: 6_000_000,
			10: 8_500_000, 11: 12_500_000, 12: 17_500_000, 13: 30_000_000,
		},
	},
	{
		variables: []string{"c2000fit"},
		codes: map[int]float64{
			1: 5_000, 2: 15_000, 3: 35_000, 4: 75_000, 5: 150_000,
			6: 250_000, 7: 400_000, 8: 750_000, 9: 1_500_000,
			10: 3_500_000, 11: 6_000_000, 12: 8_500_000,
			13: 12_500_000, 14: 17_500_000, 15: 30_000_000,
		},
	},
	{
		variables: []string{"c2013it", "c2016it"},
		codes: map[int]float64{
			1: 5_000, 2: 20_000, 3: 40_000, 4: 60_000, 5: 85_000,
			6: 200_000, 7: 400_000, 8: 750_000, 9: 3_000_000,
			10: 7_500_000, 11: 12_500_000, 12: 17_500_000, 13: 30_000_000,
		},
	},
	{
		variables: []string{"c2027dit", "c2032it", "c2064it"},
		codes: map[int]float64{
			1: 50_000, 2: 150_000, 3: 350_000, 4: 650_000, 5: 900_000,
			6: 1_250_000, 7: 1_750_000, 8: 3_500_000, 9: 6_500_000,
			10: 9_000_000, 11: 15_000_000,
		},
	},
	{
		variables: []string{"c2045it"},
		codes: map[int]float64{
			1: 500, 2: 2_000, 3: 4_000, 4: 6_500, 5: 9_000,
			6: 12_500, 7: 17_500, 8: 25_000, 9: 40_000, 10: 75_000,
		},
	},
	{
		variables: []string{"c3002it", "c3002ait"},
		codes: map[int]float64{
			1: 25_000, 2: 75_000, 3: 150_000, 4: 250_000, 5: 400_000,
			6: 650_000, 7: 900_000, 8: 1_250_000, 9: 1_750_000,
			10: 3_500_000, 11: 7_500_000,
		},
	},
	{
		variables: []string{"c3024it", "c3025it", "d4111it", "d6116it"},
		codes: map[int]float64{
			1: 5_000, 2: 15_000, 3: 35_000, 4: 75_000, 5: 150_000,
			6: 250_000, 7: 400_000, 8: 750_000, 9: 1_500_000,
			10: 3_500_000, 11: 7_500_000,
		},
	},
	{
		variables: []string{
			"c8002ait", "g1017it", "g1018it", "g1019it", "g1019ait",
			"g1020it", "c8005ait", "f2006it", "f4011it",
		},
		codes: map[int]float64{
			1: 1_000, 2: 3_500, 3: 7_500, 4: 15_000, 5: 35_000,
			6: 75_000, 7: 125_000, 8: 175_000, 9: 250_000,
			10: 400_000, 11: 750_000,
		},
	},
	{
		variables: []string{"d8106it"},
		codes: map[int]float64{
			1: 10_000, 2: 35_000, 3: 75_000, 4: 150_000, 5: 350_000,
			6: 750_000, 7: 1_500_000, 8: 3_500_000, 9: 7_500_000,
			10: 15_000_000, 11: 30_000_000,
		},
	},
	{
		variables: []string{"e3005cit"},
		codes: map[int]float64{
			1: 5_000, 2: 15_000, 3: 35_000, 4: 75_000, 5: 150_000,
			6: 250_000, 7: 400_000, 8: 750_000, 9: 1_500_000,
			10: 3_500_000, 11: 7_500_000,
		},
	},
	{
		variables: []string{"f1005it"},
		codes: map[int]float64{
			1: 25, 2: 75, 3: 125, 4: 225, 5: 400,
			6: 650, 7: 1_150, 8: 2_250, 9: 4_000,
			10: 7_500, 11: 15_000, 12: 25_000, 13: 40_000, 14: 75_000,
		},
	},
	{
		// code 4 is unused in the 2017 questionnaire
		variables: []string{"f4005it"},
		codes: map[int]float64{
			1: 100, 2: 250, 3: 400,
			5: 750, 6: 1_500, 7: 2_500, 8: 4_000,
			9: 6_500, 10: 11_500, 11: 17_500, 12: 30_000,
		},
	},
	{
		// code 4 is unused in the 2017 questionnaire
		variables: []string{"f4008it"},
		codes: map[int]float64{
			1: 500, 2: 2_000, 3: 4_000,
			5: 7_500, 6: 15_000, 7: 35_000, 8: 75_000,
			9: 125_000, 10: 175_000, 11: 250_000,
			12: 400_000, 13: 750_000, 14: 1_500_000,
		},
	},
	{
		variables: []string{"h3351it"},
		codes: map[int]float64{
			1: 250, 2: 750, 3: 1_500, 4: 3_500, 5: 7_500, 6: 15_000, 7: 30_000,
		},
	},
	{
		variables: []string{"h3354it", "h3356it"},
		codes: map[int]float64{
			1: 250, 2: 750, 3: 2_000, 4: 4_000, 5: 7_500,
			6: 15_000, 7: 35_000, 8: 75_000,
		},
	},
	{
		variables: []string{"h3367it", "h3368it", "h3369it"},
		codes: map[int]float64{
			1: 50, 2: 300, 3: 750, 4: 3_000, 5: 7_500, 6: 30_000, 7: 75_000,
		},
	},
	{
		variables: []string{"g1024it"},
		codes: map[int]float64{
			1: 150, 2: 450, 3: 800, 4: 1_250, 5: 2_250,
			6: 4_500, 7: 8_000, 8: 15_000, 9: 35_000,
			10: 75_000, 11: 150_000,
		},
	},
}

// varToCodes flattens the tables into base-name keyed lookups, built once
var varToCodes = func() map[string]map[int]float64 {
	m := make(map[string]map[int]float64)
	for _, tbl := range codebookTables {
		for _, v := range tbl.variables {
			m[v] = tbl.codes
		}
	}
	return m
}()

// NormalizeVarName strips a trailing _N suffix from indexed variables
// like "c2016it_1", which share the base variable's bracket table.
func NormalizeVarName(name string) string {
	idx := strings.LastIndex(name, "_")
	if idx < 0 || idx == len(name)-1 {
		return name
	}
	for _, r := range name[idx+1:] {
		if r < '0' || r > '9' {
			return name
		}
	}
	return name[:idx]
}

// Resolve maps an interval code to its midpoint for the named variable.
// The second return is false when the code is missing, the variable has
// no registered table, or the code is not in that table. Unresolved
// codes are expected for rarely used brackets and are not an error.
func Resolve(code float64, variable string) (float64, bool) {
	if math.IsNaN(code) {
		return 0, false
	}
	mapping, ok := varToCodes[NormalizeVarName(variable)]
	if !ok {
		return 0, false
	}
	mid, ok := mapping[int(code)]
	if !ok {
		return 0, false
	}
	return mid, true
}

// ResolveColumn applies Resolve element-wise, producing NaN where a code
// does not resolve. Per-element semantics match Resolve exactly.
func ResolveColumn(codes []float64, variable string) []float64 {
	out := make([]float64, len(codes))
	for i, c := range codes {
		if mid, ok := Resolve(c, variable); ok {
			out[i] = mid
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// HasTable reports whether a bracket table is registered for the
// variable (after suffix normalization).
func HasTable(variable string) bool {
	_, ok := varToCodes[NormalizeVarName(variable)]
	return ok
}

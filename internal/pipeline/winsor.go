package pipeline

import (
	"math"
	"sort"

	"sibdebt/domain/dataset"
)

// Winsorize clamps the tails of a column. With n defined values and
// limit l, the k = floor(n*l) most extreme values at that tail are set
// to the boundary order statistic. Missing and non-finite values come
// back missing and do not influence the bounds.
func Winsorize(values []float64, lower, upper float64) []float64 {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !dataset.IsMissing(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}

	out := make([]float64, len(values))
	if len(finite) == 0 {
		for i := range out {
			out[i] = dataset.Missing()
		}
		return out
	}

	sort.Float64s(finite)
	n := len(finite)
	kLow := int(float64(n) * lower)
	kHigh := int(float64(n) * upper)
	lowBound := finite[kLow]
	highBound := finite[n-1-kHigh]

	for i, v := range values {
		switch {
		case dataset.IsMissing(v) || math.IsInf(v, 0):
			out[i] = dataset.Missing()
		case v < lowBound:
			out[i] = lowBound
		case v > highBound:
			out[i] = highBound
		default:
			out[i] = v
		}
	}
	return out
}

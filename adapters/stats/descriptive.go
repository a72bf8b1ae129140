package stats

import (
	"math"

	"github.com/montanaflynn/stats"

	"sibdebt/domain/dataset"
	"sibdebt/domain/study"
)

// Describe summarises the named columns: observation count over the
// non-missing values, then mean, sample standard deviation, min,
// quartiles and max. Columns absent from the frame are skipped; a
// column with no observed values reports N=0 and NaN summaries.
func Describe(frame *dataset.Frame, columns []string) []study.DescriptiveRow {
	rows := make([]study.DescriptiveRow, 0, len(columns))
	for _, name := range columns {
		col, ok := frame.Column(name)
		if !ok {
			continue
		}
		clean := make([]float64, 0, len(col))
		for _, v := range col {
			if !dataset.IsMissing(v) {
				clean = append(clean, v)
			}
		}

		row := study.DescriptiveRow{
			Column: name,
			N:      len(clean),
			Mean:   math.NaN(),
			Std:    math.NaN(),
			Min:    math.NaN(),
			P25:    math.NaN(),
			Median: math.NaN(),
			P75:    math.NaN(),
			Max:    math.NaN(),
		}
		if len(clean) > 0 {
			mean, _ := stats.Mean(clean)
			min, _ := stats.Min(clean)
			max, _ := stats.Max(clean)
			median, _ := stats.Median(clean)
			p25, _ := stats.Percentile(clean, 25)
			p75, _ := stats.Percentile(clean, 75)
			row.Mean = mean
			row.Min = min
			row.Max = max
			row.P25 = p25
			row.Median = median
			row.P75 = p75
		}
		if len(clean) > 1 {
			sd, _ := stats.StandardDeviationSample(clean)
			row.Std = sd
		}
		rows = append(rows, row)
	}
	return rows
}

package stats

import (
	"fmt"
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/study"
)

// ComputeVIF measures multicollinearity among the given regressors.
// Each column is regressed on an intercept plus the remaining columns;
// its variance inflation factor is 1/(1-R^2) of that auxiliary fit.
// Columns must be complete cases, aligned with names. Entries come
// back sorted by VIF descending, flagged when above threshold.
func ComputeVIF(names []string, cols [][]float64, threshold float64) ([]study.VIFEntry, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("vif: %d names for %d columns", len(names), len(cols))
	}
	p := len(cols)
	if p < 2 {
		return nil, fmt.Errorf("%w: VIF needs at least two regressors", core.ErrInsufficientData)
	}
	n := len(cols[0])
	if n <= p+1 {
		return nil, fmt.Errorf("%w: %d observations for %d regressors", core.ErrInsufficientData, n, p)
	}

	entries := make([]study.VIFEntry, 0, p)
	for j := 0; j < p; j++ {
		others := make([][]float64, 0, p-1)
		for q := 0; q < p; q++ {
			if q != j {
				others = append(others, cols[q])
			}
		}
		r2, err := auxiliaryRSquared(cols[j], others)
		if err != nil {
			return nil, fmt.Errorf("vif for %s: %w", names[j], err)
		}
		vif := math.Inf(1)
		if 1-r2 > 0 {
			vif = 1 / (1 - r2)
		}
		entries = append(entries, study.VIFEntry{
			Feature: names[j],
			VIF:     vif,
			Flagged: vif > threshold,
		})
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].VIF > entries[b].VIF
	})

	var flagged []string
	for _, e := range entries {
		if e.Flagged {
			flagged = append(flagged, e.Feature)
		}
	}
	if len(flagged) > 0 {
		log.Printf("[Diagnostics] High multicollinearity detected (VIF > %g): %v", threshold, flagged)
	}
	return entries, nil
}

// auxiliaryRSquared fits y on an intercept plus x and returns the
// centred R-squared.
func auxiliaryRSquared(y []float64, x [][]float64) (float64, error) {
	n := len(y)
	X := designMatrix(y, x)
	yVec := mat.NewVecDense(n, append([]float64(nil), y...))

	var qr mat.QR
	qr.Factorize(X)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, yVec); err != nil {
		return 0, fmt.Errorf("%w: auxiliary design matrix is singular", core.ErrInsufficientData)
	}

	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(X, &beta)
	rss := 0.0
	mean := 0.0
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		rss += r * r
		mean += y[i]
	}
	mean /= float64(n)
	tss := 0.0
	for i := 0; i < n; i++ {
		d := y[i] - mean
		tss += d * d
	}
	if tss <= 0 {
		// Constant regressand is perfectly explained by the intercept.
		return 1, nil
	}
	return 1 - rss/tss, nil
}

// MissingAudit counts missing values per column. Only columns with at
// least one missing value appear, sorted by count descending.
func MissingAudit(frame *dataset.Frame) []study.MissingEntry {
	rows := frame.RowCount()
	entries := make([]study.MissingEntry, 0)
	for _, name := range frame.ColumnNames() {
		col, _ := frame.Column(name)
		count := dataset.CountMissing(col)
		if count == 0 {
			continue
		}
		pct := 0.0
		if rows > 0 {
			pct = math.Round(float64(count)/float64(rows)*100*100) / 100
		}
		entries = append(entries, study.MissingEntry{
			Column:       name,
			MissingCount: count,
			MissingPct:   pct,
		})
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].MissingCount > entries[b].MissingCount
	})
	return entries
}

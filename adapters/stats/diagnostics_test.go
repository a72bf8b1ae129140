package stats

import (
	"errors"
	"math"
	"testing"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
)

func mustFrame(t *testing.T, cols map[string][]float64, order []string) *dataset.Frame {
	t.Helper()
	rows := 0
	for _, v := range cols {
		rows = len(v)
		break
	}
	f := dataset.NewFrame(rows)
	for _, name := range order {
		if err := f.AddColumn(name, cols[name]); err != nil {
			t.Fatalf("AddColumn(%s): %v", name, err)
		}
	}
	return f
}

func TestComputeVIF_UncorrelatedPair(t *testing.T) {
	// For two regressors both VIFs equal 1/(1-r^2). Here r^2 = 16/336,
	// so each VIF is exactly 1.05.
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	b := []float64{1, -1, 1, -1, 1, -1, 1, -1}

	entries, err := ComputeVIF([]string{"a", "b"}, [][]float64{a, b}, 5.0)
	if err != nil {
		t.Fatalf("ComputeVIF failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if !approx(e.VIF, 1.05, 1e-9) {
			t.Errorf("VIF(%s) = %g, want 1.05", e.Feature, e.VIF)
		}
		if e.Flagged {
			t.Errorf("VIF(%s) flagged at threshold 5", e.Feature)
		}
	}
}

func TestComputeVIF_FlagsNearCollinearPair(t *testing.T) {
	x1 := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	x2 := make([]float64, len(x1))
	perturb := []float64{0.013, -0.007, 0.011, 0.002, -0.012, 0.008, -0.003, 0.009}
	for i, v := range x1 {
		x2[i] = 2*v + perturb[i]
	}
	x3 := []float64{1, -1, 1, -1, 1, -1, 1, -1}

	entries, err := ComputeVIF([]string{"x1", "x2", "x3"}, [][]float64{x1, x2, x3}, 5.0)
	if err != nil {
		t.Fatalf("ComputeVIF failed: %v", err)
	}

	// Sorted descending: the collinear pair first, the independent
	// column last and unflagged.
	if entries[2].Feature != "x3" {
		t.Errorf("smallest VIF = %s, want x3 (order: %v)", entries[2].Feature, entries)
	}
	if entries[2].Flagged {
		t.Errorf("x3 flagged with VIF %g", entries[2].VIF)
	}
	for _, e := range entries[:2] {
		if !e.Flagged {
			t.Errorf("VIF(%s) = %g not flagged at threshold 5", e.Feature, e.VIF)
		}
	}
	if entries[0].VIF < entries[1].VIF || entries[1].VIF < entries[2].VIF {
		t.Errorf("entries not sorted descending: %v", entries)
	}
}

func TestComputeVIF_PerfectCollinearityExplodes(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	b := []float64{2, 4, 6, 8, 10, 12, 14, 16}

	entries, err := ComputeVIF([]string{"a", "b"}, [][]float64{a, b}, 5.0)
	if err != nil {
		t.Fatalf("ComputeVIF failed: %v", err)
	}
	// The auxiliary fit is exact up to rounding, so the VIF blows up
	// (infinite when the residual is exactly zero).
	for _, e := range entries {
		if !(e.VIF > 1e6) {
			t.Errorf("VIF(%s) = %g, want explosive", e.Feature, e.VIF)
		}
		if !e.Flagged {
			t.Errorf("VIF(%s) not flagged", e.Feature)
		}
	}
}

func TestComputeVIF_TooFewObservations(t *testing.T) {
	cols := [][]float64{{1, 2, 3, 4}, {2, 1, 4, 3}, {1, 1, 2, 2}}
	_, err := ComputeVIF([]string{"a", "b", "c"}, cols, 5.0)
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestMissingAudit_SortsAndRounds(t *testing.T) {
	nan := math.NaN()
	f := mustFrame(t, map[string][]float64{
		"full": {1, 2, 3},
		"one":  {1, nan, 3},
		"two":  {nan, nan, 3},
	}, []string{"full", "one", "two"})

	entries := MissingAudit(f)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (fully observed column excluded)", len(entries))
	}
	if entries[0].Column != "two" || entries[0].MissingCount != 2 {
		t.Errorf("entries[0] = %+v, want column two with count 2", entries[0])
	}
	if !approx(entries[0].MissingPct, 66.67, 1e-9) {
		t.Errorf("pct(two) = %g, want 66.67", entries[0].MissingPct)
	}
	if entries[1].Column != "one" || !approx(entries[1].MissingPct, 33.33, 1e-9) {
		t.Errorf("entries[1] = %+v, want column one at 33.33", entries[1])
	}
}

func TestMissingAudit_NoMissingValues(t *testing.T) {
	f := mustFrame(t, map[string][]float64{"a": {1, 2}, "b": {3, 4}}, []string{"a", "b"})
	if entries := MissingAudit(f); len(entries) != 0 {
		t.Errorf("got %v, want empty audit", entries)
	}
}

package stats

import (
	"context"
	"errors"
	"math"
	"testing"

	"sibdebt/domain/core"
	"sibdebt/domain/study"
)

func approx(a, b, tol float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= tol
}

// The fixture solves by hand: x = [0,1,2,3], y = [1,3,3,5] gives
// beta = (1.2, 1.2), residuals (-0.2, 0.6, -0.6, 0.2), RSS = 0.8,
// TSS = 8 and (X'X)^-1 = [[0.7,-0.3],[-0.3,0.2]].
func olsFixture() (study.ModelSpec, []float64, [][]float64) {
	spec := study.ModelSpec{
		Name:      "M1",
		Estimator: study.EstimatorOLS,
		DepVar:    "y",
		IndepVars: []string{"x"},
		RobustSE:  study.RobustNone,
	}
	y := []float64{1, 3, 3, 5}
	x := [][]float64{{0, 1, 2, 3}}
	return spec, y, x
}

func TestOLSFit_ClassicalInference(t *testing.T) {
	spec, y, x := olsFixture()
	res, err := NewOLSEstimator().Fit(context.Background(), spec, y, x)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if res.NObs != 4 {
		t.Errorf("NObs = %d, want 4", res.NObs)
	}
	if len(res.Terms) != 2 || res.Terms[0] != "const" || res.Terms[1] != "x" {
		t.Errorf("Terms = %v, want [const x]", res.Terms)
	}
	if !approx(res.Coefficients[0], 1.2, 1e-9) || !approx(res.Coefficients[1], 1.2, 1e-9) {
		t.Errorf("Coefficients = %v, want [1.2 1.2]", res.Coefficients)
	}

	// sigma^2 = 0.8/2 = 0.4; var(const) = 0.4*0.7, var(slope) = 0.4*0.2.
	if !approx(res.StdErrors[0], math.Sqrt(0.28), 1e-9) {
		t.Errorf("SE(const) = %g, want %g", res.StdErrors[0], math.Sqrt(0.28))
	}
	if !approx(res.StdErrors[1], math.Sqrt(0.08), 1e-9) {
		t.Errorf("SE(x) = %g, want %g", res.StdErrors[1], math.Sqrt(0.08))
	}

	// For 2 residual degrees of freedom the two-sided p-value has the
	// closed form 1 - |t|/sqrt(2+t^2).
	tStat := 1.2 / math.Sqrt(0.08)
	wantP := 1 - tStat/math.Sqrt(2+tStat*tStat)
	if !approx(res.TValues[1], tStat, 1e-9) {
		t.Errorf("t(x) = %g, want %g", res.TValues[1], tStat)
	}
	if !approx(res.PValues[1], wantP, 1e-6) {
		t.Errorf("p(x) = %g, want %g", res.PValues[1], wantP)
	}

	if !approx(res.RSquared, 0.9, 1e-9) {
		t.Errorf("RSquared = %g, want 0.9", res.RSquared)
	}
	if !approx(res.AdjRSquared, 0.85, 1e-9) {
		t.Errorf("AdjRSquared = %g, want 0.85", res.AdjRSquared)
	}

	// Gaussian likelihood at RSS/n = 0.2.
	ll := -2 * (math.Log(2*math.Pi) + math.Log(0.2) + 1)
	if !approx(res.AIC, -2*ll+4, 1e-9) {
		t.Errorf("AIC = %g, want %g", res.AIC, -2*ll+4)
	}
	if !approx(res.BIC, -2*ll+2*math.Log(4), 1e-9) {
		t.Errorf("BIC = %g, want %g", res.BIC, -2*ll+2*math.Log(4))
	}
}

func TestOLSFit_HC1Sandwich(t *testing.T) {
	spec, y, x := olsFixture()
	spec.RobustSE = study.RobustHC1

	res, err := NewOLSEstimator().Fit(context.Background(), spec, y, x)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// Coefficients do not change, only the covariance does. The HC0
	// sandwich gives var = (0.0824, 0.0144); HC1 scales by n/(n-k) = 2.
	if !approx(res.Coefficients[1], 1.2, 1e-9) {
		t.Errorf("Coefficients[1] = %g, want 1.2", res.Coefficients[1])
	}
	if !approx(res.StdErrors[0], math.Sqrt(0.1648), 1e-9) {
		t.Errorf("HC1 SE(const) = %g, want %g", res.StdErrors[0], math.Sqrt(0.1648))
	}
	if !approx(res.StdErrors[1], math.Sqrt(0.0288), 1e-9) {
		t.Errorf("HC1 SE(x) = %g, want %g", res.StdErrors[1], math.Sqrt(0.0288))
	}
}

func TestOLSFit_HCFlavoursOrdering(t *testing.T) {
	// HC3 never undercuts HC2, which never undercuts HC0, since each
	// divides by a smaller leverage factor.
	base, y, x := olsFixture()

	ses := map[study.RobustSE]float64{}
	for _, se := range []study.RobustSE{study.RobustHC0, study.RobustHC2, study.RobustHC3} {
		spec := base
		spec.RobustSE = se
		res, err := NewOLSEstimator().Fit(context.Background(), spec, y, x)
		if err != nil {
			t.Fatalf("Fit(%s) failed: %v", se, err)
		}
		ses[se] = res.StdErrors[1]
	}
	if !(ses[study.RobustHC0] < ses[study.RobustHC2] && ses[study.RobustHC2] < ses[study.RobustHC3]) {
		t.Errorf("expected HC0 < HC2 < HC3 standard errors, got %v", ses)
	}
}

func TestOLSFit_TooFewObservations(t *testing.T) {
	spec, _, _ := olsFixture()
	y := []float64{1, 2}
	x := [][]float64{{0, 1}}

	_, err := NewOLSEstimator().Fit(context.Background(), spec, y, x)
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestOLSFit_SingularDesign(t *testing.T) {
	spec, _, _ := olsFixture()
	spec.IndepVars = []string{"x1", "x2"}
	y := []float64{1, 2, 3, 4, 5, 6}
	x1 := []float64{1, 2, 3, 4, 5, 6}
	x2 := []float64{2, 4, 6, 8, 10, 12}

	_, err := NewOLSEstimator().Fit(context.Background(), spec, y, [][]float64{x1, x2})
	if !errors.Is(err, core.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for collinear design, got %v", err)
	}
}

func TestOLSFit_CancelledContext(t *testing.T) {
	spec, y, x := olsFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewOLSEstimator().Fit(ctx, spec, y, x); err == nil {
		t.Error("expected error from cancelled context")
	}
}

package ports

import (
	"context"

	"sibdebt/domain/study"
)

// ModelEstimator fits one family of regression models. The runner
// dispatches on Estimator(); implementations must not mutate their
// inputs.
//
// The design matrix x is column-oriented: x[j] is the j-th regressor,
// aligned with spec.IndepVars[j]. Rows are already complete cases; the
// estimator adds its own intercept.
type ModelEstimator interface {
	Estimator() study.Estimator
	Fit(ctx context.Context, spec study.ModelSpec, y []float64, x [][]float64) (*study.ModelResult, error)
}

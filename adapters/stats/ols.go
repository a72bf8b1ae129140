package stats

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"sibdebt/domain/core"
	"sibdebt/domain/study"
)

// OLSEstimator fits ordinary least squares with optional
// heteroscedasticity-consistent standard errors.
type OLSEstimator struct{}

// NewOLSEstimator creates an OLS estimator
func NewOLSEstimator() *OLSEstimator {
	return &OLSEstimator{}
}

func (e *OLSEstimator) Estimator() study.Estimator {
	return study.EstimatorOLS
}

// Fit estimates y on an intercept plus the regressors in x. Inference
// uses the t distribution with n-k residual degrees of freedom; the
// covariance follows spec.RobustSE.
func (e *OLSEstimator) Fit(ctx context.Context, spec study.ModelSpec, y []float64, x [][]float64) (*study.ModelResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := len(y)
	k := len(x) + 1
	if n <= k {
		return nil, fmt.Errorf("%w: %d observations for %d parameters", core.ErrInsufficientData, n, k)
	}

	X := designMatrix(y, x)
	yVec := mat.NewVecDense(n, append([]float64(nil), y...))

	var qr mat.QR
	qr.Factorize(X)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, yVec); err != nil {
		return nil, fmt.Errorf("%w: design matrix is singular", core.ErrInsufficientData)
	}

	// Residuals and fit statistics.
	fitted := mat.NewVecDense(n, nil)
	fitted.MulVec(X, &beta)
	resid := make([]float64, n)
	rss := 0.0
	mean := 0.0
	for i := 0; i < n; i++ {
		resid[i] = y[i] - fitted.AtVec(i)
		rss += resid[i] * resid[i]
		mean += y[i]
	}
	mean /= float64(n)
	tss := 0.0
	for i := 0; i < n; i++ {
		d := y[i] - mean
		tss += d * d
	}

	rSquared := math.NaN()
	if tss > 0 {
		rSquared = 1 - rss/tss
	}
	dfResid := float64(n - k)
	adjRSquared := 1 - (1-rSquared)*float64(n-1)/dfResid

	// Gaussian log likelihood gives the information criteria.
	ll := -float64(n) / 2 * (math.Log(2*math.Pi) + math.Log(rss/float64(n)) + 1)
	aic := -2*ll + 2*float64(k)
	bic := -2*ll + float64(k)*math.Log(float64(n))

	cov, err := covarianceMatrix(X, resid, spec.RobustSE, dfResid)
	if err != nil {
		return nil, err
	}

	terms := append([]string{"const"}, spec.IndepVars...)
	coefs := make([]float64, k)
	ses := make([]float64, k)
	tvals := make([]float64, k)
	pvals := make([]float64, k)
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dfResid}
	for j := 0; j < k; j++ {
		coefs[j] = beta.AtVec(j)
		ses[j] = math.Sqrt(cov.At(j, j))
		tvals[j] = coefs[j] / ses[j]
		pvals[j] = 2 * tDist.CDF(-math.Abs(tvals[j]))
	}

	return &study.ModelResult{
		Spec:         spec,
		NObs:         n,
		Terms:        terms,
		Coefficients: coefs,
		StdErrors:    ses,
		TValues:      tvals,
		PValues:      pvals,
		RSquared:     rSquared,
		AdjRSquared:  adjRSquared,
		AIC:          aic,
		BIC:          bic,
	}, nil
}

// designMatrix lays out [1 | x1 .. xp] row-major.
func designMatrix(y []float64, x [][]float64) *mat.Dense {
	n := len(y)
	k := len(x) + 1
	X := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		for j, col := range x {
			X.Set(i, j+1, col[i])
		}
	}
	return X
}

// covarianceMatrix computes the coefficient covariance: the classical
// sigma^2 (X'X)^-1 for nonrobust, or the HC sandwich otherwise.
func covarianceMatrix(X *mat.Dense, resid []float64, se study.RobustSE, dfResid float64) (*mat.Dense, error) {
	n, k := X.Dims()

	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	var bread mat.Dense
	if err := bread.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("%w: X'X is singular", core.ErrInsufficientData)
	}

	if se == study.RobustNone || se == "" {
		sigma2 := 0.0
		for _, r := range resid {
			sigma2 += r * r
		}
		sigma2 /= dfResid
		var cov mat.Dense
		cov.Scale(sigma2, &bread)
		return &cov, nil
	}

	// Squared residuals weighted per HC flavour. HC2 and HC3 deflate by
	// leverage, HC1 rescales the whole sandwich by n/(n-k).
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		w := resid[i] * resid[i]
		switch se {
		case study.RobustHC2, study.RobustHC3:
			h := leverage(X, &bread, i)
			if se == study.RobustHC2 {
				w /= 1 - h
			} else {
				w /= (1 - h) * (1 - h)
			}
		}
		d[i] = w
	}

	// meat = X' diag(d) X
	weighted := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < k; j++ {
			weighted.Set(i, j, X.At(i, j)*d[i])
		}
	}
	var meat mat.Dense
	meat.Mul(X.T(), weighted)

	var tmp, cov mat.Dense
	tmp.Mul(&bread, &meat)
	cov.Mul(&tmp, &bread)

	if se == study.RobustHC1 {
		cov.Scale(float64(n)/dfResid, &cov)
	}
	return &cov, nil
}

// leverage returns h_ii = x_i (X'X)^-1 x_i'.
func leverage(X *mat.Dense, bread *mat.Dense, i int) float64 {
	_, k := X.Dims()
	h := 0.0
	for a := 0; a < k; a++ {
		for b := 0; b < k; b++ {
			h += X.At(i, a) * bread.At(a, b) * X.At(i, b)
		}
	}
	return h
}

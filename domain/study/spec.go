package study

import "math"

// Estimator tags the estimation method of a model spec. Dispatch is by
// tag; an unknown tag is a reported skip, never a crash.
type Estimator string

const (
	EstimatorOLS   Estimator = "OLS"
	EstimatorRidge Estimator = "RIDGE"
	EstimatorRLM   Estimator = "RLM"
)

// RobustSE selects the heteroscedasticity-consistent covariance
// estimator for OLS. Ignored by ridge and RLM.
type RobustSE string

const (
	RobustNone RobustSE = "nonrobust"
	RobustHC0  RobustSE = "HC0"
	RobustHC1  RobustSE = "HC1" // Stata default
	RobustHC2  RobustSE = "HC2"
	RobustHC3  RobustSE = "HC3" // most conservative
)

// ModelSpec declaratively defines a single regression. New models are
// added by appending a spec, not by writing estimation code.
type ModelSpec struct {
	Name          string    `json:"name"`
	Label         string    `json:"label"`
	Estimator     Estimator `json:"estimator"`
	DepVar        string    `json:"dep_var"`
	IndepVars     []string  `json:"indep_vars"`
	RobustSE      RobustSE  `json:"robust_se"`
	ScaleFeatures bool      `json:"scale_features"`
}

// MinObservations is the smallest sample a model will fit on.
func (s ModelSpec) MinObservations() int {
	return len(s.IndepVars) + 2
}

// ModelResult holds one estimated model's outputs. Metrics an estimator
// does not define (SEs for ridge, AIC for RLM) are NaN.
type ModelResult struct {
	Spec         ModelSpec `json:"spec"`
	NObs         int       `json:"n_obs"`
	Terms        []string  `json:"terms"` // "const" first when the model has an intercept
	Coefficients []float64 `json:"coefficients"`
	StdErrors    []float64 `json:"std_errors"`
	TValues      []float64 `json:"t_values"`
	PValues      []float64 `json:"p_values"`
	RSquared     float64   `json:"r_squared"`
	AdjRSquared  float64   `json:"adj_r_squared"`
	AIC          float64   `json:"aic"`
	BIC          float64   `json:"bic"`
}

// Coefficient looks a term's coefficient up by name.
func (r *ModelResult) Coefficient(term string) (float64, bool) {
	for i, t := range r.Terms {
		if t == term {
			return r.Coefficients[i], true
		}
	}
	return 0, false
}

// PValue looks a term's p-value up by name.
func (r *ModelResult) PValue(term string) (float64, bool) {
	for i, t := range r.Terms {
		if t == term {
			return r.PValues[i], true
		}
	}
	return 0, false
}

// SignificantVars lists the terms significant at the 5% level.
func (r *ModelResult) SignificantVars() []string {
	var out []string
	for i, t := range r.Terms {
		if !math.IsNaN(r.PValues[i]) && r.PValues[i] < 0.05 {
			out = append(out, t)
		}
	}
	return out
}

// DefaultSpecs returns the five-model battery reported in the study.
func DefaultSpecs(indepVars []string) []ModelSpec {
	return []ModelSpec{
		{
			Name:      "M1",
			Label:     "OLS - Debt Ratio (HC1 robust SE)",
			Estimator: EstimatorOLS,
			DepVar:    "debt_ratio_winsorized",
			IndepVars: indepVars,
			RobustSE:  RobustHC1,
		},
		{
			Name:      "M2",
			Label:     "OLS - Log Debt Ratio (HC1 robust SE)",
			Estimator: EstimatorOLS,
			DepVar:    "log_debt_ratio_winsorized",
			IndepVars: indepVars,
			RobustSE:  RobustHC1,
		},
		{
			Name:          "M3",
			Label:         "RidgeCV - Debt Ratio (standardised)",
			Estimator:     EstimatorRidge,
			DepVar:        "debt_ratio_winsorized",
			IndepVars:     indepVars,
			ScaleFeatures: true,
		},
		{
			Name:          "M4",
			Label:         "RidgeCV - Log Debt Ratio (standardised)",
			Estimator:     EstimatorRidge,
			DepVar:        "log_debt_ratio_winsorized",
			IndepVars:     indepVars,
			ScaleFeatures: true,
		},
		{
			Name:      "M5",
			Label:     "Robust LM (Huber-T) - Debt Ratio",
			Estimator: EstimatorRLM,
			DepVar:    "debt_ratio_winsorized",
			IndepVars: indepVars,
		},
	}
}

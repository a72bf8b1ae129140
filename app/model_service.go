package app

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/semaphore"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/run"
	"sibdebt/domain/study"
	"sibdebt/internal"
	"sibdebt/internal/config"
	"sibdebt/ports"
)

// ModelRunner fits the model battery against the analysis table.
// Estimators register by tag; a spec whose tag has no estimator, or
// whose data cannot support a fit, becomes a reported skip rather than
// a run failure.
type ModelRunner struct {
	estimators map[study.Estimator]ports.ModelEstimator
	cfg        *config.Config
	logger     *internal.Logger
}

// NewModelRunner creates a runner with the given estimators registered
// under their own tags.
func NewModelRunner(cfg *config.Config, estimators ...ports.ModelEstimator) *ModelRunner {
	byTag := make(map[study.Estimator]ports.ModelEstimator, len(estimators))
	for _, e := range estimators {
		byTag[e.Estimator()] = e
	}
	return &ModelRunner{
		estimators: byTag,
		cfg:        cfg,
		logger:     internal.DefaultLogger.Component("ModelRunner"),
	}
}

// RunAll fits every spec, at most MaxParallelModels at a time. Results
// come back in spec order regardless of scheduling.
func (r *ModelRunner) RunAll(ctx context.Context, frame *dataset.Frame, specs []study.ModelSpec) ([]study.ModelResult, []run.SkippedModel) {
	results := make([]*study.ModelResult, len(specs))
	skips := make([]*run.SkippedModel, len(specs))

	sem := semaphore.NewWeighted(r.cfg.Study.MaxParallelModels)
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec study.ModelSpec) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				skips[i] = &run.SkippedModel{Name: spec.Name, Reason: err.Error()}
				return
			}
			defer sem.Release(1)
			results[i], skips[i] = r.fitOne(ctx, frame, spec)
		}(i, spec)
	}
	wg.Wait()

	fitted := make([]study.ModelResult, 0, len(specs))
	skipped := make([]run.SkippedModel, 0)
	for i := range specs {
		if results[i] != nil {
			fitted = append(fitted, *results[i])
		}
		if skips[i] != nil {
			skipped = append(skipped, *skips[i])
		}
	}
	return fitted, skipped
}

func (r *ModelRunner) fitOne(ctx context.Context, frame *dataset.Frame, spec study.ModelSpec) (*study.ModelResult, *run.SkippedModel) {
	est, ok := r.estimators[spec.Estimator]
	if !ok {
		r.logger.Warn("%s skipped: no estimator registered for %q", spec.Name, spec.Estimator)
		return nil, &run.SkippedModel{
			Name:   spec.Name,
			Reason: fmt.Sprintf("%v: %q", core.ErrUnknownEstimator, spec.Estimator),
		}
	}

	y, x, err := completeCases(frame, spec)
	if err != nil {
		r.logger.Warn("%s skipped: %v", spec.Name, err)
		return nil, &run.SkippedModel{Name: spec.Name, Reason: err.Error()}
	}
	if len(y) < spec.MinObservations() {
		reason := fmt.Sprintf("%d complete observations, need at least %d", len(y), spec.MinObservations())
		r.logger.Warn("%s skipped: %s", spec.Name, reason)
		return nil, &run.SkippedModel{Name: spec.Name, Reason: reason}
	}

	r.logger.Info("Fitting %s (%s) on %d observations", spec.Name, spec.Estimator, len(y))
	result, err := est.Fit(ctx, spec, y, x)
	if err != nil {
		r.logger.Warn("%s failed: %v", spec.Name, err)
		return nil, &run.SkippedModel{Name: spec.Name, Reason: err.Error()}
	}
	r.logger.Info("%s fitted: n=%d, R2=%.4f", spec.Name, result.NObs, result.RSquared)
	return result, nil
}

// completeCases extracts the listwise-complete rows for a spec: the
// dependent variable must be finite and every regressor defined.
// Columns come back regressor-major, aligned with spec.IndepVars.
func completeCases(frame *dataset.Frame, spec study.ModelSpec) ([]float64, [][]float64, error) {
	dep, ok := frame.Column(spec.DepVar)
	if !ok {
		return nil, nil, core.NewMissingColumnError("analysis", spec.DepVar)
	}
	indep := make([][]float64, len(spec.IndepVars))
	for j, name := range spec.IndepVars {
		col, ok := frame.Column(name)
		if !ok {
			return nil, nil, core.NewMissingColumnError("analysis", name)
		}
		indep[j] = col
	}

	keep := make([]int, 0, len(dep))
	for i := range dep {
		if math.IsNaN(dep[i]) || math.IsInf(dep[i], 0) {
			continue
		}
		complete := true
		for _, col := range indep {
			if math.IsNaN(col[i]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}

	y := make([]float64, len(keep))
	x := make([][]float64, len(indep))
	for j := range x {
		x[j] = make([]float64, len(keep))
	}
	for r, i := range keep {
		y[r] = dep[i]
		for j, col := range indep {
			x[j][r] = col[i]
		}
	}
	return y, x, nil
}

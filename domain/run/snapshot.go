package run

import (
	"math"
	"time"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/study"
)

// TermSnapshot is one coefficient row of a fitted model. Inference
// fields are null when the estimator does not provide them.
type TermSnapshot struct {
	Term        string   `json:"term"`
	Coefficient *float64 `json:"coefficient"`
	StdError    *float64 `json:"std_error"`
	TValue      *float64 `json:"t_value"`
	PValue      *float64 `json:"p_value"`
}

// ModelSnapshot summarises one fitted model.
type ModelSnapshot struct {
	Name          string         `json:"name"`
	Label         string         `json:"label"`
	Estimator     string         `json:"estimator"`
	DepVar        string         `json:"dep_var"`
	RobustSE      string         `json:"robust_se"`
	ScaleFeatures bool           `json:"scale_features"`
	NObs          int            `json:"n_obs"`
	RSquared      *float64       `json:"r_squared"`
	AdjRSquared   *float64       `json:"adj_r_squared"`
	AIC           *float64       `json:"aic"`
	BIC           *float64       `json:"bic"`
	Terms         []TermSnapshot `json:"terms"`
}

// ValidationSnapshot carries the validation outcome of a run.
type ValidationSnapshot struct {
	Status         string              `json:"status"`
	RowsChecked    int                 `json:"rows_checked"`
	ColumnsChecked int                 `json:"columns_checked"`
	Errors         int                 `json:"errors"`
	Warnings       int                 `json:"warnings"`
	Violations     []dataset.Violation `json:"violations,omitempty"`
}

// Snapshot is the machine-readable record of one completed run, written
// next to the other artefacts. Unlike StudyResult it survives
// encoding/json: every float that can be NaN or infinite is a pointer
// and serialises as null.
type Snapshot struct {
	RunID       core.RunID         `json:"run_id"`
	CreatedAt   core.Timestamp     `json:"created_at"`
	SurveyYear  int                `json:"survey_year"`
	Fingerprint core.Hash          `json:"fingerprint"`
	Counts      StageCounts        `json:"counts"`
	Validation  ValidationSnapshot `json:"validation"`
	Models      []ModelSnapshot    `json:"models"`
	Skipped     []SkippedModel     `json:"skipped,omitempty"`
	DurationMS  float64            `json:"duration_ms"`
}

// NewSnapshot flattens a StudyResult into its serialisable form.
func NewSnapshot(res *StudyResult) *Snapshot {
	snap := &Snapshot{
		RunID:       res.Manifest.RunID,
		CreatedAt:   res.Manifest.CreatedAt,
		SurveyYear:  res.Manifest.SurveyYear,
		Fingerprint: res.Manifest.Fingerprint,
		Counts:      res.Counts,
		Skipped:     res.Skipped,
		DurationMS:  float64(res.Duration.Microseconds()) / 1000.0,
	}
	if res.Validation != nil {
		status := "PASS"
		if !res.Validation.IsValid() {
			status = "FAIL"
		}
		snap.Validation = ValidationSnapshot{
			Status:         status,
			RowsChecked:    res.Validation.RowsChecked,
			ColumnsChecked: res.Validation.ColumnsChecked,
			Errors:         res.Validation.ErrorCount(),
			Warnings:       res.Validation.WarningCount(),
			Violations:     res.Validation.Violations,
		}
	}
	snap.Models = make([]ModelSnapshot, 0, len(res.Models))
	for i := range res.Models {
		snap.Models = append(snap.Models, newModelSnapshot(&res.Models[i]))
	}
	return snap
}

func newModelSnapshot(m *study.ModelResult) ModelSnapshot {
	robust := m.Spec.RobustSE
	if robust == "" {
		robust = study.RobustNone
	}
	ms := ModelSnapshot{
		Name:          m.Spec.Name,
		Label:         m.Spec.Label,
		Estimator:     string(m.Spec.Estimator),
		DepVar:        m.Spec.DepVar,
		RobustSE:      string(robust),
		ScaleFeatures: m.Spec.ScaleFeatures,
		NObs:          m.NObs,
		RSquared:      finiteOrNil(m.RSquared),
		AdjRSquared:   finiteOrNil(m.AdjRSquared),
		AIC:           finiteOrNil(m.AIC),
		BIC:           finiteOrNil(m.BIC),
		Terms:         make([]TermSnapshot, 0, len(m.Terms)),
	}
	for i, term := range m.Terms {
		ms.Terms = append(ms.Terms, TermSnapshot{
			Term:        term,
			Coefficient: finiteOrNil(m.Coefficients[i]),
			StdError:    finiteOrNil(m.StdErrors[i]),
			TValue:      finiteOrNil(m.TValues[i]),
			PValue:      finiteOrNil(m.PValues[i]),
		})
	}
	return ms
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Restore rebuilds a StudyResult from the snapshot and the manifest it
// was written alongside, with null inference fields back as NaN. The
// analysis frame and the diagnostics tables are not part of the
// snapshot and stay empty.
func (s *Snapshot) Restore(manifest *Manifest) *StudyResult {
	res := &StudyResult{
		Manifest: manifest,
		Counts:   s.Counts,
		Skipped:  s.Skipped,
		Duration: time.Duration(s.DurationMS * float64(time.Millisecond)),
	}
	if s.Validation.Status != "" {
		res.Validation = &dataset.ValidationReport{
			Violations:     s.Validation.Violations,
			RowsChecked:    s.Validation.RowsChecked,
			ColumnsChecked: s.Validation.ColumnsChecked,
		}
	}
	res.Models = make([]study.ModelResult, 0, len(s.Models))
	for i := range s.Models {
		res.Models = append(res.Models, restoreModel(&s.Models[i]))
	}
	return res
}

func restoreModel(ms *ModelSnapshot) study.ModelResult {
	m := study.ModelResult{
		Spec: study.ModelSpec{
			Name:          ms.Name,
			Label:         ms.Label,
			Estimator:     study.Estimator(ms.Estimator),
			DepVar:        ms.DepVar,
			RobustSE:      study.RobustSE(ms.RobustSE),
			ScaleFeatures: ms.ScaleFeatures,
		},
		NObs:         ms.NObs,
		Terms:        make([]string, 0, len(ms.Terms)),
		Coefficients: make([]float64, 0, len(ms.Terms)),
		StdErrors:    make([]float64, 0, len(ms.Terms)),
		TValues:      make([]float64, 0, len(ms.Terms)),
		PValues:      make([]float64, 0, len(ms.Terms)),
		RSquared:     orNaN(ms.RSquared),
		AdjRSquared:  orNaN(ms.AdjRSquared),
		AIC:          orNaN(ms.AIC),
		BIC:          orNaN(ms.BIC),
	}
	for i := range ms.Terms {
		t := &ms.Terms[i]
		m.Terms = append(m.Terms, t.Term)
		m.Coefficients = append(m.Coefficients, orNaN(t.Coefficient))
		m.StdErrors = append(m.StdErrors, orNaN(t.StdError))
		m.TValues = append(m.TValues, orNaN(t.TValue))
		m.PValues = append(m.PValues, orNaN(t.PValue))
	}
	if len(m.Terms) > 1 {
		m.Spec.IndepVars = m.Terms[1:]
	}
	return m
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

package ui

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sibdebt/adapters/excel"
	"sibdebt/app"
	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/run"
	"sibdebt/domain/study"
	"sibdebt/internal/config"
	"sibdebt/ports"
)

func dashConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Paths = config.PathConfig{DataDir: "testdata", OutputDir: t.TempDir()}
	cfg.Server.Port = "8080"
	return cfg
}

// seedRun writes a full artefact set through the real exporter so the
// dashboard is tested against exactly what a run leaves on disk.
func seedRun(t *testing.T, cfg *config.Config) *run.StudyResult {
	t.Helper()

	frame := dataset.NewFrame(3)
	for name, values := range map[string][]float64{
		"hhid":                  {1, 2, 3},
		"debt_ratio_winsorized": {0.5, math.NaN(), 0.25},
	} {
		if err := frame.AddColumn(name, values); err != nil {
			t.Fatalf("adding column %s: %v", name, err)
		}
	}

	manifest := run.NewManifest(core.NewRunID(), 2017, 42,
		map[string]core.FileChecksum{"hh.dta": core.NewFileChecksum([]byte("hh"))},
		core.ComputeConfigFingerprint(map[string]interface{}{"survey_year": 2017}))

	nan := math.NaN()
	result := &run.StudyResult{
		Manifest:   manifest,
		Frame:      frame,
		Validation: &dataset.ValidationReport{RowsChecked: 3, ColumnsChecked: 2},
		Counts: run.StageCounts{
			RawHouseholds: 50, RawIndividuals: 130, HouseholdHeads: 48,
			MergedRows: 50, AnalysisRows: 50,
		},
		Models: []study.ModelResult{
			{
				Spec: study.ModelSpec{
					Name: "M1", Label: "Baseline OLS", Estimator: study.EstimatorOLS,
					DepVar: "debt_ratio_winsorized", IndepVars: []string{"head_siblings"},
					RobustSE: study.RobustHC1,
				},
				NObs:         50,
				Terms:        []string{"const", "head_siblings"},
				Coefficients: []float64{0.1, 1.2},
				StdErrors:    []float64{0.05, 0.3},
				TValues:      []float64{2, 4},
				PValues:      []float64{0.046, 0.001},
				RSquared:     0.25, AdjRSquared: 0.23, AIC: nan, BIC: nan,
			},
			{
				Spec: study.ModelSpec{
					Name: "M3", Label: "Ridge", Estimator: study.EstimatorRidge,
					DepVar: "debt_ratio_winsorized", IndepVars: []string{"head_siblings"},
					ScaleFeatures: true,
				},
				NObs:         50,
				Terms:        []string{"const", "head_siblings"},
				Coefficients: []float64{0.2, 0.9},
				StdErrors:    []float64{nan, nan},
				TValues:      []float64{nan, nan},
				PValues:      []float64{nan, nan},
				RSquared:     0.2, AdjRSquared: nan, AIC: nan, BIC: nan,
			},
		},
		Skipped:  []run.SkippedModel{{Name: "M5", Reason: "5 complete observations, need at least 11"}},
		Duration: 1500 * time.Millisecond,
	}

	if err := app.NewExportService(cfg, excel.NewWorkbookWriter()).ExportAll(result); err != nil {
		t.Fatalf("seeding run artefacts: %v", err)
	}
	return result
}

func newTestApp(t *testing.T, cfg *config.Config, registry ports.RunRepository) *App {
	t.Helper()
	a, err := NewApp(cfg, registry)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return a
}

func get(t *testing.T, a *App, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	return rec
}

type stubRegistry struct {
	records []run.Record
	err     error
}

func (s *stubRegistry) SaveResult(ctx context.Context, result *run.StudyResult) error { return nil }

func (s *stubRegistry) GetRun(ctx context.Context, runID core.RunID) (*run.Record, error) {
	return nil, core.ErrRunNotFound
}

func (s *stubRegistry) ListRuns(ctx context.Context, limit int) ([]run.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.records) {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func (s *stubRegistry) GetModelResults(ctx context.Context, runID core.RunID) ([]study.ModelResult, error) {
	return nil, nil
}

func (s *stubRegistry) GetValidationIssues(ctx context.Context, runID core.RunID) ([]dataset.Violation, error) {
	return nil, nil
}

func TestApp_Index_NoRunYet(t *testing.T) {
	a := newTestApp(t, dashConfig(t), nil)

	rec := get(t, a, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No completed run") {
		t.Errorf("empty dashboard should explain how to start:\n%s", rec.Body.String())
	}
}

func TestApp_Index_ShowsRunOverview(t *testing.T) {
	cfg := dashConfig(t)
	result := seedRun(t, cfg)
	a := newTestApp(t, cfg, nil)

	rec := get(t, a, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, fragment := range []string{
		string(result.Manifest.RunID),
		">M1<", ">Baseline OLS<", ">HC1<",
		">M3<", ">nonrobust<",
		">PASS<",
		"Skipped models", "M5",
		"<h1>Siblings and Household Debt: Run Report</h1>",
	} {
		if !strings.Contains(body, fragment) {
			t.Errorf("overview page missing %q", fragment)
		}
	}
}

func TestApp_APIRun_ServesManifest(t *testing.T) {
	cfg := dashConfig(t)
	result := seedRun(t, cfg)
	a := newTestApp(t, cfg, nil)

	rec := get(t, a, "/api/run")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/run = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if doc["run_id"] != string(result.Manifest.RunID) {
		t.Errorf("run_id = %v, want %s", doc["run_id"], result.Manifest.RunID)
	}
	if doc["validation_status"] != "PASS" {
		t.Errorf("validation_status = %v", doc["validation_status"])
	}
	if doc["n_models_estimated"] != float64(2) {
		t.Errorf("n_models_estimated = %v, want 2", doc["n_models_estimated"])
	}
}

func TestApp_APIModels_ServesSnapshots(t *testing.T) {
	cfg := dashConfig(t)
	seedRun(t, cfg)
	a := newTestApp(t, cfg, nil)

	rec := get(t, a, "/api/models")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/models = %d, want 200", rec.Code)
	}
	var models []run.ModelSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &models); err != nil {
		t.Fatalf("decoding models: %v", err)
	}
	if len(models) != 2 || models[0].Name != "M1" || models[1].Name != "M3" {
		t.Fatalf("unexpected model list: %+v", models)
	}
	if models[1].RobustSE != "nonrobust" {
		t.Errorf("ridge robust SE = %q, want nonrobust", models[1].RobustSE)
	}
	if models[1].Terms[1].StdError != nil {
		t.Errorf("ridge std error should be null, got %v", *models[1].Terms[1].StdError)
	}
	if models[0].Terms[1].Coefficient == nil || *models[0].Terms[1].Coefficient != 1.2 {
		t.Errorf("M1 head_siblings coefficient = %v, want 1.2", models[0].Terms[1].Coefficient)
	}
}

func TestApp_APIValidation_ServesReport(t *testing.T) {
	cfg := dashConfig(t)
	seedRun(t, cfg)
	a := newTestApp(t, cfg, nil)

	rec := get(t, a, "/api/validation")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/validation = %d, want 200", rec.Code)
	}
	var validation run.ValidationSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &validation); err != nil {
		t.Fatalf("decoding validation: %v", err)
	}
	if validation.Status != "PASS" || validation.RowsChecked != 3 {
		t.Errorf("validation = %+v", validation)
	}
}

func TestApp_API_NoRunIs404(t *testing.T) {
	a := newTestApp(t, dashConfig(t), nil)

	for _, path := range []string{"/api/run", "/api/validation", "/api/models"} {
		if rec := get(t, a, path); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}
}

func TestApp_APIRuns_WithoutRegistry(t *testing.T) {
	a := newTestApp(t, dashConfig(t), nil)

	if rec := get(t, a, "/api/runs"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /api/runs = %d, want 503", rec.Code)
	}
}

func TestApp_APIRuns_ListsRegistry(t *testing.T) {
	registry := &stubRegistry{records: []run.Record{
		{RunID: core.NewRunID(), Status: run.StatusCompleted, SurveyYear: 2017, AnalysisRows: 100, ModelCount: 5},
		{RunID: core.NewRunID(), Status: run.StatusCompleted, SurveyYear: 2017, AnalysisRows: 90, ModelCount: 4},
	}}
	a := newTestApp(t, dashConfig(t), registry)

	rec := get(t, a, "/api/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/runs = %d, want 200", rec.Code)
	}
	var records []run.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decoding runs: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("listed %d runs, want 2", len(records))
	}
}

func TestApp_Healthz(t *testing.T) {
	a := newTestApp(t, dashConfig(t), nil)

	rec := get(t, a, "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok\n" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}

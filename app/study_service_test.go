package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sibdebt/adapters/excel"
	"sibdebt/adapters/stats"
	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/run"
	"sibdebt/domain/study"
	"sibdebt/internal/config"
	"sibdebt/internal/testkit"
	"sibdebt/ports"
)

type stubRepo struct {
	saved *run.StudyResult
	err   error
}

func (s *stubRepo) SaveResult(_ context.Context, result *run.StudyResult) error {
	if s.err != nil {
		return s.err
	}
	s.saved = result
	return nil
}

func (s *stubRepo) GetRun(context.Context, core.RunID) (*run.Record, error) {
	return nil, core.ErrRunNotFound
}

func (s *stubRepo) ListRuns(context.Context, int) ([]run.Record, error) {
	return nil, nil
}

func (s *stubRepo) GetModelResults(context.Context, core.RunID) ([]study.ModelResult, error) {
	return nil, nil
}

func (s *stubRepo) GetValidationIssues(context.Context, core.RunID) ([]dataset.Violation, error) {
	return nil, nil
}

func studyConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := pipelineConfig()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Study.VIFThreshold = 5
	cfg.Study.RidgeMinExp = -6
	cfg.Study.RidgeMaxExp = 6
	cfg.Study.RidgeGridPoints = 13
	cfg.Study.HuberTuning = 1.345
	cfg.Study.Seed = 42
	cfg.Study.MaxParallelModels = 4
	return cfg
}

func newStudyService(cfg *config.Config, reader *stubReader, repo *stubRepo) *StudyService {
	runner := NewModelRunner(cfg,
		stats.NewOLSEstimator(),
		stats.NewRidgeEstimator(cfg.Study.RidgeAlphas()),
		stats.NewRLMEstimator(cfg.Study.HuberTuning),
	)
	var repoPort ports.RunRepository
	if repo != nil {
		repoPort = repo
	}
	return NewStudyService(
		NewPipelineService(reader, cfg),
		runner,
		NewExportService(cfg, excel.NewWorkbookWriter()),
		stats.NewEngine(),
		reader,
		repoPort,
		cfg,
	)
}

func TestStudyService_Run_EndToEnd(t *testing.T) {
	cfg := studyConfig(t)
	gen := testkit.DefaultSurveyConfig()
	gen.Households = 400
	reader := surveyReader(t, cfg, gen)

	result, err := newStudyService(cfg, reader, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := len(result.Models) + len(result.Skipped); got != 5 {
		t.Fatalf("battery accounted for %d models, want 5", got)
	}
	if len(result.Models) != 5 {
		t.Fatalf("fitted %d of 5 models, skips: %+v", len(result.Models), result.Skipped)
	}
	for i, want := range []string{"M1", "M2", "M3", "M4", "M5"} {
		if result.Models[i].Spec.Name != want {
			t.Errorf("model %d is %s, want %s", i, result.Models[i].Spec.Name, want)
		}
	}
	if _, ok := result.Models[0].Coefficient("head_siblings"); !ok {
		t.Error("M1 lost the variable of interest")
	}

	if result.Counts.AnalysisRows != 400 {
		t.Errorf("AnalysisRows = %d, want 400", result.Counts.AnalysisRows)
	}
	if len(result.VIF) != len(cfg.Study.IndependentVars()) {
		t.Errorf("VIF entries = %d, want one per regressor (%d)",
			len(result.VIF), len(cfg.Study.IndependentVars()))
	}
	if len(result.Descriptives) != 1+len(cfg.Study.IndependentVars()) {
		t.Errorf("descriptive rows = %d, want outcome plus regressors", len(result.Descriptives))
	}
	if len(result.Missing) == 0 {
		t.Error("missing-value audit came back empty on survey data with skip patterns")
	}

	for name, sum := range result.Manifest.InputChecksums {
		if name != "hh.dta" && name != "ind.dta" {
			t.Errorf("checksum keyed by %q, want base file names", name)
		}
		if sum == "" || sum == "FILE_NOT_FOUND" {
			t.Errorf("checksum for %s = %q", name, sum)
		}
	}
	if result.Manifest.Fingerprint == "" {
		t.Error("manifest fingerprint not computed")
	}

	for _, rel := range []string{
		filepath.Join("tables", "descriptive_stats.csv"),
		filepath.Join("tables", "missing_values.csv"),
		filepath.Join("tables", "vif_diagnostics.csv"),
		filepath.Join("tables", "regression_results.tex"),
		filepath.Join("tables", "regression_results.csv"),
		filepath.Join("tables", "analysis_workbook.xlsx"),
		"processed_analysis_data.csv",
		filepath.Join("reports", "report.md"),
		filepath.Join("reports", "reproducibility_manifest.json"),
		filepath.Join("reports", "run_snapshot.json"),
	} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, rel)); err != nil {
			t.Errorf("artefact %s not written: %v", rel, err)
		}
	}

	manifest := readArtefact(t, cfg.Paths.ReportsDir(), "reproducibility_manifest.json")
	if !strings.Contains(manifest, `"validation_status": "PASS"`) {
		t.Errorf("manifest should record a passing validation:\n%s", manifest)
	}
}

func TestStudyService_Run_PersistsToRegistry(t *testing.T) {
	cfg := studyConfig(t)
	gen := testkit.DefaultSurveyConfig()
	gen.Households = 150
	reader := surveyReader(t, cfg, gen)
	repo := &stubRepo{}

	result, err := newStudyService(cfg, reader, repo).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if repo.saved == nil {
		t.Fatal("run was not saved to the registry")
	}
	if repo.saved.Manifest.RunID != result.Manifest.RunID {
		t.Errorf("registry saved run %s, want %s", repo.saved.Manifest.RunID, result.Manifest.RunID)
	}
}

func TestStudyService_Run_RegistryFailureIsNotFatal(t *testing.T) {
	cfg := studyConfig(t)
	gen := testkit.DefaultSurveyConfig()
	gen.Households = 150
	reader := surveyReader(t, cfg, gen)
	repo := &stubRepo{err: fmt.Errorf("connection refused")}

	if _, err := newStudyService(cfg, reader, repo).Run(context.Background()); err != nil {
		t.Fatalf("registry failure must not abort the run: %v", err)
	}
}

package app

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sibdebt/adapters/excel"
	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/run"
	"sibdebt/domain/study"
	"sibdebt/internal/config"
)

func exportConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Paths: config.PathConfig{DataDir: "testdata", OutputDir: t.TempDir()},
		Files: config.FileConfig{HouseholdFile: "hh.dta", IndividualFile: "ind.dta"},
	}
}

func sampleResult(t *testing.T) *run.StudyResult {
	t.Helper()
	nan := math.NaN()

	frame := makeFrame(t, []string{"hhid", "debt_ratio_winsorized"}, map[string][]float64{
		"hhid":                  {1, 2, 3},
		"debt_ratio_winsorized": {0.5, nan, 0.25},
	})

	manifest := run.NewManifest(core.NewRunID(), 2017, 42,
		map[string]core.FileChecksum{
			"hh.dta":  core.NewFileChecksum([]byte("household")),
			"ind.dta": core.NewFileChecksum([]byte("individual")),
		},
		core.ComputeConfigFingerprint(map[string]interface{}{"seed": 42}),
	)

	ols := study.ModelResult{
		Spec: study.ModelSpec{
			Name: "M1", Label: "OLS - Debt Ratio", Estimator: study.EstimatorOLS,
			DepVar: "debt_ratio_winsorized", IndepVars: []string{"head_siblings"},
			RobustSE: study.RobustHC1,
		},
		NObs:         100,
		Terms:        []string{"const", "head_siblings"},
		Coefficients: []float64{0.1, 1.2},
		StdErrors:    []float64{0.05, 0.3},
		TValues:      []float64{2, 4},
		PValues:      []float64{0.046, 0.001},
		RSquared:     0.25, AdjRSquared: 0.24, AIC: 10, BIC: 12,
	}
	ridge := study.ModelResult{
		Spec: study.ModelSpec{
			Name: "M3", Label: "RidgeCV - Debt Ratio", Estimator: study.EstimatorRidge,
			DepVar: "debt_ratio_winsorized", IndepVars: []string{"head_siblings"},
			ScaleFeatures: true,
		},
		NObs:         100,
		Terms:        []string{"const", "head_siblings"},
		Coefficients: []float64{0.2, 0.9},
		StdErrors:    []float64{nan, nan},
		TValues:      []float64{nan, nan},
		PValues:      []float64{nan, nan},
		RSquared:     0.22, AdjRSquared: nan, AIC: nan, BIC: nan,
	}

	return &run.StudyResult{
		Manifest:   manifest,
		Frame:      frame,
		Validation: &dataset.ValidationReport{RowsChecked: 3, ColumnsChecked: 2},
		Counts: run.StageCounts{
			RawHouseholds: 50, RawIndividuals: 130, HouseholdHeads: 48,
			MergedRows: 50, AnalysisRows: 50,
		},
		Models: []study.ModelResult{ols, ridge},
		VIF: []study.VIFEntry{
			{Feature: "x2", VIF: 12.5, Flagged: true},
			{Feature: "x1", VIF: 1.2, Flagged: false},
		},
		Missing: []study.MissingEntry{
			{Column: "debt_ratio_winsorized", MissingCount: 1, MissingPct: 33.33},
		},
		Descriptives: []study.DescriptiveRow{
			{Column: "debt_ratio_winsorized", N: 2, Mean: 0.375, Std: 0.1767766952966369,
				Min: 0.25, P25: 0.3125, Median: 0.375, P75: 0.4375, Max: 0.5},
			{Column: "head_siblings", N: 0, Mean: nan, Std: nan, Min: nan,
				P25: nan, Median: nan, P75: nan, Max: nan},
		},
		Duration: 1500 * time.Millisecond,
	}
}

func readArtefact(t *testing.T, parts ...string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(parts...))
	if err != nil {
		t.Fatalf("reading artefact: %v", err)
	}
	return string(data)
}

func TestExportAll_WritesFullArtefactSet(t *testing.T) {
	cfg := exportConfig(t)
	svc := NewExportService(cfg, excel.NewWorkbookWriter())
	result := sampleResult(t)

	if err := svc.ExportAll(result); err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}

	tables := cfg.Paths.TablesDir()
	reports := cfg.Paths.ReportsDir()

	desc := readArtefact(t, tables, "descriptive_stats.csv")
	wantDesc := ",N,mean,std,min,p25,p50,p75,max\n" +
		"debt_ratio_winsorized,2,0.3750,0.1768,0.2500,0.3125,0.3750,0.4375,0.5000\n" +
		"head_siblings,0,,,,,,,\n"
	if desc != wantDesc {
		t.Errorf("descriptive_stats.csv:\ngot  %q\nwant %q", desc, wantDesc)
	}

	descTex := readArtefact(t, tables, "descriptive_stats.tex")
	for _, fragment := range []string{
		`\caption{Descriptive Statistics}`,
		`\label{tab:desc_stats}`,
		`Variable & N & mean & std & min & p25 & p50 & p75 & max \\`,
		`debt\_ratio\_winsorized & 2 & 0.3750`,
	} {
		if !strings.Contains(descTex, fragment) {
			t.Errorf("descriptive_stats.tex missing %q", fragment)
		}
	}

	missing := readArtefact(t, tables, "missing_values.csv")
	wantMissing := "column,missing_count,missing_pct\ndebt_ratio_winsorized,1,33.33\n"
	if missing != wantMissing {
		t.Errorf("missing_values.csv:\ngot  %q\nwant %q", missing, wantMissing)
	}

	vif := readArtefact(t, tables, "vif_diagnostics.csv")
	wantVIF := "feature,VIF,flagged\nx2,12.50,true\nx1,1.20,false\n"
	if vif != wantVIF {
		t.Errorf("vif_diagnostics.csv:\ngot  %q\nwant %q", vif, wantVIF)
	}

	vifTex := readArtefact(t, tables, "vif_diagnostics.tex")
	for _, fragment := range []string{
		`\caption{Variance Inflation Factors}`,
		`x2 & 12.5000 & Yes \\`,
		`x1 & 1.2000 &  \\`,
	} {
		if !strings.Contains(vifTex, fragment) {
			t.Errorf("vif_diagnostics.tex missing %q", fragment)
		}
	}

	regression := readArtefact(t, tables, "regression_results.tex")
	for _, fragment := range []string{
		`\caption{Effect of Number of Siblings on Household Debt Ratio (CHFS 2017)}`,
		`\label{tab:regression}`,
		` & M1 & M3 \\`,
		`head\_siblings & 1.2000*** & 0.9000 \\`,
		`(0.3000)`,
		`N & 100 & 100 \\`,
		`Robust SE & HC1 & nonrobust \\`,
		`Standard errors in parentheses. HC1 robust standard errors used for OLS models.`,
		`$^{***}p<0.01$; $^{**}p<0.05$; $^{*}p<0.10$`,
	} {
		if !strings.Contains(regression, fragment) {
			t.Errorf("regression_results.tex missing %q", fragment)
		}
	}

	coefs := readArtefact(t, tables, "regression_results.csv")
	if !strings.HasPrefix(coefs, "model,term,coefficient,std_error,t_value,p_value\n") {
		t.Errorf("regression_results.csv header wrong: %q", firstLine(coefs))
	}
	if !strings.Contains(coefs, "M1,head_siblings,1.2,0.3,4,0.001\n") {
		t.Errorf("regression_results.csv missing the M1 row:\n%s", coefs)
	}
	if !strings.Contains(coefs, "M3,head_siblings,0.9,,,\n") {
		t.Errorf("regression_results.csv should leave ridge inference empty:\n%s", coefs)
	}

	processed, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, "processed_analysis_data.csv"))
	if err != nil {
		t.Fatalf("reading processed CSV: %v", err)
	}
	if len(processed) < 3 || processed[0] != 0xEF || processed[1] != 0xBB || processed[2] != 0xBF {
		t.Fatal("processed_analysis_data.csv must start with a UTF-8 BOM")
	}
	wantBody := "hhid,debt_ratio_winsorized\n1,0.5\n2,\n3,0.25\n"
	if string(processed[3:]) != wantBody {
		t.Errorf("processed CSV body:\ngot  %q\nwant %q", string(processed[3:]), wantBody)
	}

	var manifestDoc map[string]interface{}
	if err := json.Unmarshal([]byte(readArtefact(t, reports, "reproducibility_manifest.json")), &manifestDoc); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if manifestDoc["n_models_estimated"] != float64(2) {
		t.Errorf("n_models_estimated = %v, want 2", manifestDoc["n_models_estimated"])
	}
	if manifestDoc["n_analysis_rows"] != float64(50) {
		t.Errorf("n_analysis_rows = %v, want 50", manifestDoc["n_analysis_rows"])
	}
	if manifestDoc["validation_status"] != "PASS" {
		t.Errorf("validation_status = %v, want PASS", manifestDoc["validation_status"])
	}
	if _, ok := manifestDoc["input_checksums"]; !ok {
		t.Error("manifest lost its input checksums")
	}

	report := readArtefact(t, reports, "report.md")
	for _, fragment := range []string{
		"# Siblings and Household Debt: Run Report",
		"| Raw households | 50 |",
		"| M1 | OLS | debt_ratio_winsorized | 100 | 0.2500 | 1.2000 | 0.0010 |",
		"- High multicollinearity flags: x2",
	} {
		if !strings.Contains(report, fragment) {
			t.Errorf("report.md missing %q", fragment)
		}
	}

	if fi, err := os.Stat(filepath.Join(tables, "analysis_workbook.xlsx")); err != nil || fi.Size() == 0 {
		t.Errorf("analysis workbook not written: %v", err)
	}

	var snap run.Snapshot
	if err := json.Unmarshal([]byte(readArtefact(t, reports, "run_snapshot.json")), &snap); err != nil {
		t.Fatalf("run snapshot is not valid JSON: %v", err)
	}
	if snap.Validation.Status != "PASS" || snap.Validation.RowsChecked != 3 {
		t.Errorf("snapshot validation = %+v", snap.Validation)
	}
	if snap.Counts.AnalysisRows != 50 {
		t.Errorf("snapshot analysis rows = %d, want 50", snap.Counts.AnalysisRows)
	}
	if len(snap.Models) != 2 {
		t.Fatalf("snapshot has %d models, want 2", len(snap.Models))
	}
	if snap.Models[0].RobustSE != "HC1" || snap.Models[1].RobustSE != "nonrobust" {
		t.Errorf("snapshot robust SEs = %q, %q", snap.Models[0].RobustSE, snap.Models[1].RobustSE)
	}
	ridgeSib := snap.Models[1].Terms[1]
	if ridgeSib.StdError != nil || ridgeSib.PValue != nil {
		t.Errorf("ridge inference should be null, got %+v", ridgeSib)
	}
	if ridgeSib.Coefficient == nil || *ridgeSib.Coefficient != 0.9 {
		t.Errorf("ridge head_siblings coefficient = %v, want 0.9", ridgeSib.Coefficient)
	}
}

func TestExportAll_EmptyVIFWritesPlaceholder(t *testing.T) {
	cfg := exportConfig(t)
	svc := NewExportService(cfg, excel.NewWorkbookWriter())
	result := sampleResult(t)
	result.VIF = nil

	if err := svc.ExportAll(result); err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}

	vif := readArtefact(t, cfg.Paths.TablesDir(), "vif_diagnostics.csv")
	if vif != "# No data available for VIF computation.\n" {
		t.Errorf("placeholder content = %q", vif)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.TablesDir(), "vif_diagnostics.tex")); !os.IsNotExist(err) {
		t.Error("no VIF LaTeX table should be written without data")
	}
}

func TestExportAll_NoModelsSkipsRegressionTable(t *testing.T) {
	cfg := exportConfig(t)
	svc := NewExportService(cfg, excel.NewWorkbookWriter())
	result := sampleResult(t)
	result.Models = nil

	if err := svc.ExportAll(result); err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.TablesDir(), "regression_results.tex")); !os.IsNotExist(err) {
		t.Error("regression table should be skipped when nothing was fitted")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sibdebt/domain/run"
	"sibdebt/domain/study"
	"sibdebt/internal/config"
	"sibdebt/internal/errors"
	"sibdebt/internal/latex"
	"sibdebt/ports"
)

const (
	regressionCaption = "Effect of Number of Siblings on Household Debt Ratio (CHFS 2017)"
	regressionLabel   = "tab:regression"
	regressionNote    = "Standard errors in parentheses. HC1 robust standard errors used for OLS models."

	// Written instead of a VIF table when no complete cases exist.
	vifPlaceholder = "# No data available for VIF computation.\n"
)

// ExportService writes every artefact of a completed run: publication
// tables, the processed dataset, the analysis workbook, the run report,
// and the reproducibility manifest.
type ExportService struct {
	cfg      *config.Config
	workbook ports.WorkbookWriter
}

// NewExportService creates an export service writing under the
// configured output directory.
func NewExportService(cfg *config.Config, workbook ports.WorkbookWriter) *ExportService {
	return &ExportService{cfg: cfg, workbook: workbook}
}

// ExportAll writes the full artefact set. The first failing artefact
// aborts the export; partially written runs are visible as missing
// files, never as corrupt ones.
func (s *ExportService) ExportAll(result *run.StudyResult) error {
	start := time.Now()
	if err := s.cfg.Paths.EnsureOutputDirs(); err != nil {
		return err
	}
	tables := s.cfg.Paths.TablesDir()
	reports := s.cfg.Paths.ReportsDir()

	steps := []struct {
		artefact string
		write    func() error
	}{
		{"descriptive statistics", func() error { return s.writeDescriptives(tables, result.Descriptives) }},
		{"missing-value audit", func() error { return s.writeMissing(tables, result.Missing) }},
		{"VIF diagnostics", func() error { return s.writeVIF(tables, result.VIF) }},
		{"regression tables", func() error { return s.writeRegression(tables, result.Models) }},
		{"processed dataset", func() error { return s.writeProcessed(result) }},
		{"analysis workbook", func() error {
			return s.workbook.WriteWorkbook(filepath.Join(tables, "analysis_workbook.xlsx"), result)
		}},
		{"run report", func() error { return s.writeReport(reports, result) }},
		{"reproducibility manifest", func() error { return s.writeManifest(reports, result) }},
		{"run snapshot", func() error { return s.writeSnapshot(reports, result) }},
	}
	for _, step := range steps {
		if err := step.write(); err != nil {
			return errors.ExportError(step.artefact, err)
		}
	}

	log.Printf("[Export] Wrote run artefacts to %s in %.2fms",
		s.cfg.Paths.OutputDir, float64(time.Since(start).Microseconds())/1000.0)
	return nil
}

func (s *ExportService) writeDescriptives(dir string, rows []study.DescriptiveRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.Column, strconv.Itoa(r.N),
			f4(r.Mean), f4(r.Std), f4(r.Min), f4(r.P25), f4(r.Median), f4(r.P75), f4(r.Max),
		})
	}

	// The CSV keeps pandas-style layout: an unnamed index column of
	// variable names, then the statistics.
	header := []string{"", "N", "mean", "std", "min", "p25", "p50", "p75", "max"}
	if err := writeCSV(filepath.Join(dir, "descriptive_stats.csv"), header, records); err != nil {
		return err
	}

	tex := latex.Table("Descriptive Statistics", "tab:desc_stats",
		[]string{"Variable", "N", "mean", "std", "min", "p25", "p50", "p75", "max"}, records)
	return os.WriteFile(filepath.Join(dir, "descriptive_stats.tex"), []byte(tex+"\n"), 0o644)
}

func (s *ExportService) writeMissing(dir string, entries []study.MissingEntry) error {
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{
			e.Column, strconv.Itoa(e.MissingCount), fmt.Sprintf("%.2f", e.MissingPct),
		})
	}
	header := []string{"column", "missing_count", "missing_pct"}
	return writeCSV(filepath.Join(dir, "missing_values.csv"), header, records)
}

func (s *ExportService) writeVIF(dir string, entries []study.VIFEntry) error {
	csvPath := filepath.Join(dir, "vif_diagnostics.csv")
	if len(entries) == 0 {
		return os.WriteFile(csvPath, []byte(vifPlaceholder), 0o644)
	}

	records := make([][]string, 0, len(entries))
	texRows := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{
			e.Feature, fmt.Sprintf("%.2f", e.VIF), strconv.FormatBool(e.Flagged),
		})
		flagged := ""
		if e.Flagged {
			flagged = "Yes"
		}
		texRows = append(texRows, []string{e.Feature, fmt.Sprintf("%.4f", e.VIF), flagged})
	}
	if err := writeCSV(csvPath, []string{"feature", "VIF", "flagged"}, records); err != nil {
		return err
	}

	tex := latex.Table("Variance Inflation Factors", "tab:vif",
		[]string{"feature", "VIF", "flagged"}, texRows)
	return os.WriteFile(filepath.Join(dir, "vif_diagnostics.tex"), []byte(tex+"\n"), 0o644)
}

func (s *ExportService) writeRegression(dir string, models []study.ModelResult) error {
	if len(models) == 0 {
		log.Printf("[Export] No fitted models, skipping regression tables")
		return nil
	}

	tex := latex.RegressionTable(models, regressionCaption, regressionLabel, regressionNote)
	if err := os.WriteFile(filepath.Join(dir, "regression_results.tex"), []byte(tex+"\n"), 0o644); err != nil {
		return err
	}

	// Long-form coefficients for machine consumption, full precision.
	records := make([][]string, 0, len(models)*12)
	for i := range models {
		m := &models[i]
		for j, term := range m.Terms {
			records = append(records, []string{
				m.Spec.Name, term,
				numeric(m.Coefficients[j]), numeric(m.StdErrors[j]),
				numeric(m.TValues[j]), numeric(m.PValues[j]),
			})
		}
	}
	header := []string{"model", "term", "coefficient", "std_error", "t_value", "p_value"}
	return writeCSV(filepath.Join(dir, "regression_results.csv"), header, records)
}

// writeProcessed dumps the analysis table as CSV with a UTF-8 BOM so
// spreadsheet software opens it without an import dialog.
func (s *ExportService) writeProcessed(result *run.StudyResult) error {
	frame := result.Frame
	if frame == nil {
		return fmt.Errorf("study result has no analysis frame")
	}

	path := filepath.Join(s.cfg.Paths.OutputDir, "processed_analysis_data.csv")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	names := frame.ColumnNames()
	cols := make([][]float64, len(names))
	for i, name := range names {
		col, ok := frame.Column(name)
		if !ok {
			return fmt.Errorf("column %q vanished from frame", name)
		}
		cols[i] = col
	}

	w := csv.NewWriter(f)
	if err := w.Write(names); err != nil {
		return err
	}
	record := make([]string, len(names))
	for r := 0; r < frame.RowCount(); r++ {
		for c := range cols {
			record[c] = dataValue(cols[c][r])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *ExportService) writeReport(dir string, result *run.StudyResult) error {
	var b strings.Builder
	m := result.Manifest

	b.WriteString("# Siblings and Household Debt: Run Report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", m.RunID)
	fmt.Fprintf(&b, "- Created: %s\n", m.CreatedAt.String())
	fmt.Fprintf(&b, "- Survey year: %d\n", m.SurveyYear)
	fmt.Fprintf(&b, "- Toolchain: %s on %s\n", m.GoVersion, m.Platform)
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n", m.Fingerprint)
	fmt.Fprintf(&b, "- Duration: %s\n\n", result.Duration.Round(time.Millisecond))

	b.WriteString("## Sample Construction\n\n")
	b.WriteString("| Stage | Rows |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Raw households | %d |\n", result.Counts.RawHouseholds)
	fmt.Fprintf(&b, "| Raw individuals | %d |\n", result.Counts.RawIndividuals)
	fmt.Fprintf(&b, "| Household heads | %d |\n", result.Counts.HouseholdHeads)
	fmt.Fprintf(&b, "| Merged | %d |\n", result.Counts.MergedRows)
	fmt.Fprintf(&b, "| Analysis sample | %d |\n\n", result.Counts.AnalysisRows)

	b.WriteString("## Validation\n\n")
	switch {
	case result.Validation == nil:
		b.WriteString("No validation report produced.\n\n")
	case result.Validation.IsValid():
		fmt.Fprintf(&b, "PASS. %s\n\n", result.Validation.Summary())
	default:
		fmt.Fprintf(&b, "FAIL. %s\n\n", result.Validation.Summary())
	}
	if result.Validation != nil && len(result.Validation.Violations) > 0 {
		b.WriteString("| Column | Rule | Severity | Detail |\n|---|---|---|---|\n")
		for _, v := range result.Validation.Violations {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", v.Column, v.Rule, v.Severity, v.Detail)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Models\n\n")
	if len(result.Models) == 0 {
		b.WriteString("No models were fitted.\n\n")
	} else {
		b.WriteString("| Model | Estimator | Dep. variable | N | R2 | head_siblings | p |\n")
		b.WriteString("|---|---|---|---:|---:|---:|---:|\n")
		for i := range result.Models {
			res := &result.Models[i]
			coef, _ := res.Coefficient("head_siblings")
			p, _ := res.PValue("head_siblings")
			fmt.Fprintf(&b, "| %s | %s | %s | %d | %s | %s | %s |\n",
				res.Spec.Name, res.Spec.Estimator, res.Spec.DepVar, res.NObs,
				f4(res.RSquared), f4(coef), f4(p))
		}
		b.WriteString("\n")
	}

	if len(result.Skipped) > 0 {
		b.WriteString("## Skipped Models\n\n")
		for _, sk := range result.Skipped {
			fmt.Fprintf(&b, "- %s: %s\n", sk.Name, sk.Reason)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Diagnostics\n\n")
	var flagged []string
	for _, e := range result.VIF {
		if e.Flagged {
			flagged = append(flagged, e.Feature)
		}
	}
	if len(flagged) > 0 {
		fmt.Fprintf(&b, "- High multicollinearity flags: %s\n", strings.Join(flagged, ", "))
	} else {
		b.WriteString("- No multicollinearity flags.\n")
	}
	fmt.Fprintf(&b, "- Columns with missing values: %d\n", len(result.Missing))
	fmt.Fprintf(&b, "- Models fitted: %d of %d specified\n",
		len(result.Models), len(result.Models)+len(result.Skipped))

	return os.WriteFile(filepath.Join(dir, "report.md"), []byte(b.String()), 0o644)
}

func (s *ExportService) writeManifest(dir string, result *run.StudyResult) error {
	doc := struct {
		*run.Manifest
		NModelsEstimated int    `json:"n_models_estimated"`
		NAnalysisRows    int    `json:"n_analysis_rows"`
		ValidationStatus string `json:"validation_status"`
	}{
		Manifest:         result.Manifest,
		NModelsEstimated: len(result.Models),
		NAnalysisRows:    result.Counts.AnalysisRows,
		ValidationStatus: "PASS",
	}
	if result.Validation != nil && !result.Validation.IsValid() {
		doc.ValidationStatus = "FAIL"
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "reproducibility_manifest.json"), append(data, '\n'), 0o644)
}

// writeSnapshot is the last artefact written; its presence marks the
// run as fully exported. The dashboard reads it.
func (s *ExportService) writeSnapshot(dir string, result *run.StudyResult) error {
	data, err := json.MarshalIndent(run.NewSnapshot(result), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "run_snapshot.json"), append(data, '\n'), 0o644)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func f4(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.4f", v)
}

// numeric renders a value at full precision for machine-readable CSVs.
func numeric(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// dataValue renders a data cell without exponent notation, empty when
// missing.
func dataValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package excel

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"sibdebt/domain/run"
)

// WorkbookWriter renders a study result as a multi-sheet xlsx workbook
// for readers who want the numbers without the LaTeX toolchain.
type WorkbookWriter struct{}

// NewWorkbookWriter creates an xlsx workbook writer
func NewWorkbookWriter() *WorkbookWriter {
	return &WorkbookWriter{}
}

// WriteWorkbook writes one sheet per result section: run summary,
// coefficients, fit statistics, VIF, missing values, descriptives and
// validation findings.
func (w *WorkbookWriter) WriteWorkbook(path string, result *run.StudyResult) error {
	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return err
	}
	if err := w.writeSummary(f, result); err != nil {
		return err
	}
	if err := w.writeModels(f, result); err != nil {
		return err
	}
	if err := w.writeFit(f, result); err != nil {
		return err
	}
	if err := w.writeVIF(f, result); err != nil {
		return err
	}
	if err := w.writeMissing(f, result); err != nil {
		return err
	}
	if err := w.writeDescriptives(f, result); err != nil {
		return err
	}
	if err := w.writeValidation(f, result); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return err
	}

	sheets := f.GetSheetList()
	log.Printf("[Workbook] Wrote %s (%d sheets) in %.2fms", path, len(sheets), float64(time.Since(start).Microseconds())/1000.0)
	return nil
}

func (w *WorkbookWriter) writeSummary(f *excelize.File, result *run.StudyResult) error {
	m := result.Manifest
	status := "PASS"
	if result.Validation != nil && !result.Validation.IsValid() {
		status = "FAIL"
	}

	rows := [][]any{
		{"Run ID", m.RunID.String()},
		{"Created", m.CreatedAt.String()},
		{"Survey year", m.SurveyYear},
		{"Seed", m.Seed},
		{"Go version", m.GoVersion},
		{"Platform", m.Platform},
		{"Fingerprint", m.Fingerprint.String()},
		{},
		{"Raw households", result.Counts.RawHouseholds},
		{"Raw individuals", result.Counts.RawIndividuals},
		{"Household heads", result.Counts.HouseholdHeads},
		{"Merged rows", result.Counts.MergedRows},
		{"Analysis rows", result.Counts.AnalysisRows},
		{},
		{"Models fitted", len(result.Models)},
		{"Models skipped", len(result.Skipped)},
		{"Validation", status},
		{"Duration", result.Duration.Round(time.Millisecond).String()},
	}
	if len(result.Skipped) > 0 {
		rows = append(rows, []any{}, []any{"Skipped model", "Reason"})
		for _, s := range result.Skipped {
			rows = append(rows, []any{s.Name, s.Reason})
		}
	}
	return writeRows(f, "Summary", rows)
}

func (w *WorkbookWriter) writeModels(f *excelize.File, result *run.StudyResult) error {
	if _, err := f.NewSheet("Models"); err != nil {
		return err
	}
	rows := [][]any{{"Model", "Term", "Coefficient", "Std Error", "t", "p"}}
	for _, m := range result.Models {
		for i, term := range m.Terms {
			rows = append(rows, []any{
				m.Spec.Name, term,
				num(m.Coefficients[i]), num(m.StdErrors[i]),
				num(m.TValues[i]), num(m.PValues[i]),
			})
		}
	}
	return writeRows(f, "Models", rows)
}

func (w *WorkbookWriter) writeFit(f *excelize.File, result *run.StudyResult) error {
	if _, err := f.NewSheet("Fit"); err != nil {
		return err
	}
	rows := [][]any{{"Model", "Label", "Estimator", "Dep Variable", "Robust SE", "N", "R2", "Adj R2", "AIC", "BIC"}}
	for _, m := range result.Models {
		rows = append(rows, []any{
			m.Spec.Name, m.Spec.Label, string(m.Spec.Estimator), m.Spec.DepVar, string(m.Spec.RobustSE),
			m.NObs, num(m.RSquared), num(m.AdjRSquared), num(m.AIC), num(m.BIC),
		})
	}
	return writeRows(f, "Fit", rows)
}

func (w *WorkbookWriter) writeVIF(f *excelize.File, result *run.StudyResult) error {
	if _, err := f.NewSheet("VIF"); err != nil {
		return err
	}
	rows := [][]any{{"Feature", "VIF", "Flagged"}}
	for _, e := range result.VIF {
		flagged := ""
		if e.Flagged {
			flagged = "Yes"
		}
		rows = append(rows, []any{e.Feature, num(e.VIF), flagged})
	}
	return writeRows(f, "VIF", rows)
}

func (w *WorkbookWriter) writeMissing(f *excelize.File, result *run.StudyResult) error {
	if _, err := f.NewSheet("Missing Values"); err != nil {
		return err
	}
	rows := [][]any{{"Column", "Missing Count", "Missing %"}}
	for _, e := range result.Missing {
		rows = append(rows, []any{e.Column, e.MissingCount, e.MissingPct})
	}
	return writeRows(f, "Missing Values", rows)
}

func (w *WorkbookWriter) writeDescriptives(f *excelize.File, result *run.StudyResult) error {
	if _, err := f.NewSheet("Descriptives"); err != nil {
		return err
	}
	rows := [][]any{{"Variable", "N", "Mean", "Std", "Min", "P25", "Median", "P75", "Max"}}
	for _, d := range result.Descriptives {
		rows = append(rows, []any{
			d.Column, d.N, num(d.Mean), num(d.Std), num(d.Min),
			num(d.P25), num(d.Median), num(d.P75), num(d.Max),
		})
	}
	return writeRows(f, "Descriptives", rows)
}

func (w *WorkbookWriter) writeValidation(f *excelize.File, result *run.StudyResult) error {
	if result.Validation == nil {
		return nil
	}
	if _, err := f.NewSheet("Validation"); err != nil {
		return err
	}
	rows := [][]any{{"Column", "Rule", "Severity", "Detail"}}
	for _, v := range result.Validation.Violations {
		rows = append(rows, []any{v.Column, v.Rule, string(v.Severity), v.Detail})
	}
	rows = append(rows, []any{}, []any{"Result", result.Validation.Summary()})
	return writeRows(f, "Validation", rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// num maps undefined metrics to blank cells; infinities become text so
// the sheet stays loadable.
func num(v float64) any {
	if math.IsNaN(v) {
		return ""
	}
	if math.IsInf(v, 0) {
		return fmt.Sprintf("%v", v)
	}
	return v
}

package pipeline

import (
	"log"

	"sibdebt/domain/dataset"
	"sibdebt/internal/config"
)

// AnalysisColumns lists the columns the analysis table carries, in
// report order: identifiers and dependent variables first, then head
// controls, then household controls.
func AnalysisColumns(cfg config.StudyConfig) []string {
	cols := []string{
		"hhid",
		"head_siblings",
		"debt_ratio_winsorized",
		"log_debt_ratio_winsorized",
		"total_debt",
		"total_assets",
	}
	cols = append(cols, cfg.HeadControls()...)
	return append(cols, cfg.HouseholdControls()...)
}

// SelectAnalysis projects the enriched household frame down to the
// analysis columns. Columns the pipeline failed to produce are logged
// and excluded rather than fatal, so a thin test fixture still yields
// a usable table.
func SelectAnalysis(hh *dataset.Frame, cfg config.StudyConfig) (*dataset.Frame, error) {
	var existing, missing []string
	for _, name := range AnalysisColumns(cfg) {
		if hh.HasColumn(name) {
			existing = append(existing, name)
		} else {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		log.Printf("[Pipeline] Missing analysis columns (excluded): %v", missing)
	}

	analysis, err := hh.SelectColumns(existing)
	if err != nil {
		return nil, err
	}
	log.Printf("[Pipeline] Analysis table: %d rows x %d cols.", analysis.RowCount(), analysis.ColumnCount())
	return analysis, nil
}

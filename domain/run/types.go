package run

import (
	"fmt"
	"time"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/study"
)

// Status of a recorded run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is the persisted summary of one run.
type Record struct {
	RunID        core.RunID     `db:"run_id" json:"run_id"`
	CreatedAt    core.Timestamp `db:"created_at" json:"created_at"`
	Status       Status         `db:"status" json:"status"`
	SurveyYear   int            `db:"survey_year" json:"survey_year"`
	AnalysisRows int            `db:"analysis_rows" json:"analysis_rows"`
	ModelCount   int            `db:"model_count" json:"model_count"`
	Fingerprint  core.Hash      `db:"fingerprint" json:"fingerprint"`
}

// StageCounts traces row attrition from raw files to the analysis
// table.
type StageCounts struct {
	RawHouseholds  int `json:"raw_households"`
	RawIndividuals int `json:"raw_individuals"`
	HouseholdHeads int `json:"household_heads"`
	MergedRows     int `json:"merged_rows"`
	AnalysisRows   int `json:"analysis_rows"`
}

// SkippedModel records a model the runner declined to fit and why.
type SkippedModel struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// StudyResult bundles everything one run produced: the analysis frame,
// its validation report, fitted models, and diagnostics.
type StudyResult struct {
	Manifest     *Manifest                 `json:"manifest"`
	Frame        *dataset.Frame            `json:"-"`
	Validation   *dataset.ValidationReport `json:"validation"`
	Counts       StageCounts               `json:"counts"`
	Models       []study.ModelResult       `json:"models"`
	Skipped      []SkippedModel            `json:"skipped,omitempty"`
	VIF          []study.VIFEntry          `json:"vif"`
	Missing      []study.MissingEntry      `json:"missing"`
	Descriptives []study.DescriptiveRow    `json:"descriptives"`
	Duration     time.Duration             `json:"duration_ns"`
}

// Summary renders a one-paragraph digest for logs and the CLI.
func (r *StudyResult) Summary() string {
	status := "PASS"
	if r.Validation != nil && !r.Validation.IsValid() {
		status = "FAIL"
	}
	return fmt.Sprintf(
		"Run %s: %d households -> %d heads -> %d analysis rows. %d models fitted, %d skipped. Validation %s. Took %s.",
		r.Manifest.RunID, r.Counts.RawHouseholds, r.Counts.HouseholdHeads, r.Counts.AnalysisRows,
		len(r.Models), len(r.Skipped), status, r.Duration.Round(time.Millisecond),
	)
}

// ToRecord produces the persistable summary row for this result.
func (r *StudyResult) ToRecord() Record {
	return Record{
		RunID:        r.Manifest.RunID,
		CreatedAt:    r.Manifest.CreatedAt,
		Status:       StatusCompleted,
		SurveyYear:   r.Manifest.SurveyYear,
		AnalysisRows: r.Counts.AnalysisRows,
		ModelCount:   len(r.Models),
		Fingerprint:  r.Manifest.Fingerprint,
	}
}

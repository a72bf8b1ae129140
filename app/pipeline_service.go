package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"sibdebt/domain/dataset"
	"sibdebt/domain/run"
	"sibdebt/internal/config"
	"sibdebt/internal/pipeline"
	"sibdebt/ports"
)

// PipelineService turns the raw survey release into the analysis-ready
// table, tracking row attrition at every stage.
type PipelineService struct {
	reader ports.TableReader
	cfg    *config.Config
}

// PipelineResult carries the analysis frame together with its audit
// trail: per-stage row counts and the schema validation report.
type PipelineResult struct {
	Frame      *dataset.Frame
	Counts     run.StageCounts
	Validation *dataset.ValidationReport
}

// NewPipelineService creates a pipeline service over the given reader.
func NewPipelineService(reader ports.TableReader, cfg *config.Config) *PipelineService {
	return &PipelineService{reader: reader, cfg: cfg}
}

// BuildAnalysisTable runs head extraction, the household merge, feature
// construction, and column selection end to end. The returned frame is
// the table every model and diagnostic downstream consumes.
func (s *PipelineService) BuildAnalysisTable(ctx context.Context) (*PipelineResult, error) {
	start := time.Now()

	hh, err := s.reader.ReadTable(ctx, s.cfg.Files.HouseholdPath(s.cfg.Paths))
	if err != nil {
		return nil, fmt.Errorf("loading household table: %w", err)
	}
	ind, err := s.reader.ReadTable(ctx, s.cfg.Files.IndividualPath(s.cfg.Paths))
	if err != nil {
		return nil, fmt.Errorf("loading individual table: %w", err)
	}

	counts := run.StageCounts{
		RawHouseholds:  hh.RowCount(),
		RawIndividuals: ind.RowCount(),
	}
	log.Printf("[Pipeline] Loaded %d households, %d individuals", counts.RawHouseholds, counts.RawIndividuals)

	heads, err := pipeline.ExtractHeads(ind, s.cfg.Study)
	if err != nil {
		return nil, fmt.Errorf("extracting household heads: %w", err)
	}
	counts.HouseholdHeads = heads.RowCount()

	merged, err := pipeline.MergeHeadIntoHousehold(hh, heads)
	if err != nil {
		return nil, fmt.Errorf("merging heads into households: %w", err)
	}
	counts.MergedRows = merged.RowCount()

	debtCols, assetCols, err := pipeline.CoalesceAll(merged)
	if err != nil {
		return nil, fmt.Errorf("coalescing balance sheet variables: %w", err)
	}
	if err := pipeline.ComputeTotals(merged, debtCols, assetCols); err != nil {
		return nil, fmt.Errorf("computing balance sheet totals: %w", err)
	}
	if err := pipeline.ComputeDebtRatio(merged, s.cfg.Study); err != nil {
		return nil, fmt.Errorf("computing debt ratio: %w", err)
	}
	if err := pipeline.BuildControls(merged); err != nil {
		return nil, fmt.Errorf("building control variables: %w", err)
	}

	analysis, err := pipeline.SelectAnalysis(merged, s.cfg.Study)
	if err != nil {
		return nil, fmt.Errorf("selecting analysis columns: %w", err)
	}
	counts.AnalysisRows = analysis.RowCount()

	report := dataset.Validate(analysis, dataset.AnalysisSchema())
	if !report.IsValid() {
		log.Printf("[Pipeline] Validation found %d error(s), %d warning(s)",
			report.ErrorCount(), report.WarningCount())
	}

	log.Printf("[Pipeline] Analysis table ready: %d rows x %d cols in %.2fms",
		analysis.RowCount(), analysis.ColumnCount(), float64(time.Since(start).Microseconds())/1000.0)

	return &PipelineResult{Frame: analysis, Counts: counts, Validation: report}, nil
}

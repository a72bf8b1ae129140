package app

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"sibdebt/domain/core"
	"sibdebt/domain/dataset"
	"sibdebt/domain/run"
	"sibdebt/domain/study"
	"sibdebt/internal/config"
	"sibdebt/ports"
)

// StudyService orchestrates a complete run: the analysis table, the
// screening diagnostics, the model battery, artefact export, and
// optional registry persistence.
type StudyService struct {
	pipeline *PipelineService
	runner   *ModelRunner
	export   *ExportService
	diag     ports.DiagnosticsEngine
	reader   ports.TableReader
	repo     ports.RunRepository // nil disables the run registry
	cfg      *config.Config
}

// NewStudyService wires the run orchestrator. Pass a nil repository to
// keep results on disk only.
func NewStudyService(
	pipeline *PipelineService,
	runner *ModelRunner,
	export *ExportService,
	diag ports.DiagnosticsEngine,
	reader ports.TableReader,
	repo ports.RunRepository,
	cfg *config.Config,
) *StudyService {
	return &StudyService{
		pipeline: pipeline,
		runner:   runner,
		export:   export,
		diag:     diag,
		reader:   reader,
		repo:     repo,
		cfg:      cfg,
	}
}

// Run executes the study end to end and returns the result bundle. A
// failed validation does not abort the run; the report records it and
// the manifest carries the FAIL status.
func (s *StudyService) Run(ctx context.Context) (*run.StudyResult, error) {
	start := time.Now()
	manifest := s.buildManifest()
	log.Printf("[Study] Run %s started (survey year %d)", manifest.RunID, manifest.SurveyYear)

	pipe, err := s.pipeline.BuildAnalysisTable(ctx)
	if err != nil {
		return nil, err
	}
	if pipe.Validation != nil && !pipe.Validation.IsValid() {
		log.Printf("[Study] Data validation reported problems; check the reports directory for details")
	}
	frame := pipe.Frame

	descriptives := s.diag.Describe(frame, s.descriptiveColumns())
	missing := s.diag.MissingAudit(frame)
	vif := s.screenVIF(frame)

	specs := study.DefaultSpecs(s.cfg.Study.IndependentVars())
	models, skipped := s.runner.RunAll(ctx, frame, specs)

	result := &run.StudyResult{
		Manifest:     manifest,
		Frame:        frame,
		Validation:   pipe.Validation,
		Counts:       pipe.Counts,
		Models:       models,
		Skipped:      skipped,
		VIF:          vif,
		Missing:      missing,
		Descriptives: descriptives,
		Duration:     time.Since(start),
	}

	if err := s.export.ExportAll(result); err != nil {
		return nil, err
	}

	if s.repo != nil {
		if err := s.repo.SaveResult(ctx, result); err != nil {
			log.Printf("[Study] Run registry unavailable, results kept on disk only: %v", err)
		}
	}

	log.Printf("[Study] %s", result.Summary())
	return result, nil
}

// buildManifest pins the run's inputs and configuration before any
// work happens. An unreadable input is recorded, not fatal here; the
// pipeline will fail properly when it tries to load the file.
func (s *StudyService) buildManifest() *run.Manifest {
	checksums := map[string]core.FileChecksum{}
	for _, path := range []string{
		s.cfg.Files.HouseholdPath(s.cfg.Paths),
		s.cfg.Files.IndividualPath(s.cfg.Paths),
	} {
		sum, err := s.reader.Checksum(path)
		if err != nil {
			log.Printf("[Study] Checksum failed for %s: %v", path, err)
			sum = core.FileChecksum("FILE_NOT_FOUND")
		}
		checksums[filepath.Base(path)] = sum
	}

	return run.NewManifest(
		core.NewRunID(),
		s.cfg.Study.SurveyYear,
		s.cfg.Study.Seed,
		checksums,
		core.ComputeConfigFingerprint(s.cfg.Study.Params()),
	)
}

// descriptiveColumns lists the outcome plus every regressor.
func (s *StudyService) descriptiveColumns() []string {
	return append([]string{"debt_ratio_winsorized"}, s.cfg.Study.IndependentVars()...)
}

// screenVIF runs the multicollinearity screen over the complete cases
// of whichever regressors the frame actually carries. A screen that
// cannot run (no complete cases, too few regressors) is reported as an
// empty table, not an error.
func (s *StudyService) screenVIF(frame *dataset.Frame) []study.VIFEntry {
	var names []string
	var cols [][]float64
	for _, name := range s.cfg.Study.IndependentVars() {
		if col, ok := frame.Column(name); ok {
			names = append(names, name)
			cols = append(cols, col)
		}
	}
	if len(names) == 0 {
		return nil
	}

	n := len(cols[0])
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		complete := true
		for _, col := range cols {
			if dataset.IsMissing(col[i]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}

	clean := make([][]float64, len(cols))
	for j := range cols {
		clean[j] = make([]float64, len(keep))
		for r, i := range keep {
			clean[j][r] = cols[j][i]
		}
	}

	entries, err := s.diag.ComputeVIF(names, clean, s.cfg.Study.VIFThreshold)
	if err != nil {
		log.Printf("[Study] VIF screen skipped: %v", err)
		return nil
	}
	return entries
}

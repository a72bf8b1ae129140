package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"sibdebt/adapters/excel"
	"sibdebt/adapters/postgres"
	"sibdebt/adapters/stata"
	"sibdebt/adapters/stats"
	"sibdebt/app"
	"sibdebt/internal/config"
	"sibdebt/internal/migration"
	"sibdebt/ports"
)

// One-shot study runner: loads the survey release, builds the analysis
// table, fits the model battery, and writes every artefact under the
// configured output directory. The cobra CLI in cmd/cli exposes the
// same run plus the auxiliary commands (validate, synth, serve, ...).
func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "sibdebt: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Paths.EnsureOutputDirs(); err != nil {
		return err
	}

	repo, closeRegistry := openRegistry(ctx, cfg)
	defer closeRegistry()

	reader := newTableReader(cfg)
	runner := app.NewModelRunner(cfg,
		stats.NewOLSEstimator(),
		stats.NewRidgeEstimator(cfg.Study.RidgeAlphas()),
		stats.NewRLMEstimator(cfg.Study.HuberTuning),
	)
	study := app.NewStudyService(
		app.NewPipelineService(reader, cfg),
		runner,
		app.NewExportService(cfg, excel.NewWorkbookWriter()),
		stats.NewEngine(),
		reader,
		repo,
		cfg,
	)

	result, err := study.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(result.Summary())
	fmt.Printf("Artefacts written to %s\n", cfg.Paths.OutputDir)
	if result.Validation != nil && !result.Validation.IsValid() {
		fmt.Println("⚠️  Validation reported errors; see reports/report.md")
	}
	return nil
}

// newTableReader picks the survey decoder by file extension. CHFS
// releases ship as Stata .dta; CSV and XLSX cover synthetic and
// converted inputs.
func newTableReader(cfg *config.Config) ports.TableReader {
	if strings.EqualFold(filepath.Ext(cfg.Files.HouseholdFile), ".dta") {
		return stata.NewReader()
	}
	return excel.NewDataReader()
}

// openRegistry connects the optional run registry. Registry problems
// never block a study run; results stay on disk.
func openRegistry(ctx context.Context, cfg *config.Config) (ports.RunRepository, func()) {
	if !cfg.Database.Enabled() {
		return nil, func() {}
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		log.Printf("[Main] Run registry unavailable: %v; keeping results on disk only", err)
		return nil, func() {}
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.Printf("[Main] Run registry migration failed: %v; keeping results on disk only", err)
		db.Close()
		return nil, func() {}
	}
	return postgres.NewRunRepository(db), func() { db.Close() }
}

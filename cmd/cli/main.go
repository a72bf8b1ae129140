package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"sibdebt/adapters/excel"
	"sibdebt/adapters/postgres"
	"sibdebt/adapters/stata"
	"sibdebt/adapters/stats"
	"sibdebt/app"
	"sibdebt/domain/dataset"
	"sibdebt/domain/survey"
	"sibdebt/internal/config"
	"sibdebt/internal/migration"
	"sibdebt/internal/testkit"
	"sibdebt/ports"
	"sibdebt/ui"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sibdebt",
		Short: "Sibship size and household debt study over CHFS 2017 microdata",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newMidpointCmd(),
		newSynthCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return config.Load()
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

// openRegistry connects to the run registry when DATABASE_URL is set
// and brings its schema up to date. A disabled registry returns a nil
// repository; the study runs fine without one.
func openRegistry(ctx context.Context, cfg *config.Config) (ports.RunRepository, func(), error) {
	if !cfg.Database.Enabled() {
		return nil, func() {}, nil
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to run registry: %w", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate run registry: %w", err)
	}
	return postgres.NewRunRepository(db), func() { db.Close() }, nil
}

func buildStudy(cfg *config.Config, reader ports.TableReader, repo ports.RunRepository) *app.StudyService {
	runner := app.NewModelRunner(cfg,
		stats.NewOLSEstimator(),
		stats.NewRidgeEstimator(cfg.Study.RidgeAlphas()),
		stats.NewRLMEstimator(cfg.Study.HuberTuning),
	)
	return app.NewStudyService(
		app.NewPipelineService(reader, cfg),
		runner,
		app.NewExportService(cfg, excel.NewWorkbookWriter()),
		stats.NewEngine(),
		reader,
		repo,
		cfg,
	)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full study: load, build, validate, fit, export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runStudy(cmd.Context(), cfg)
		},
	}
}

func runStudy(ctx context.Context, cfg *config.Config) error {
	repo, closeRegistry, err := openRegistry(ctx, cfg)
	if err != nil {
		log.Printf("[CLI] Run registry unavailable: %v; keeping results on disk only", err)
		repo, closeRegistry = nil, func() {}
	}
	defer closeRegistry()

	result, err := buildStudy(cfg, newTableReader(cfg), repo).Run(ctx)
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

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Build the analysis table and validate it without fitting models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runValidate(cmd.Context(), cfg)
		},
	}
}

func runValidate(ctx context.Context, cfg *config.Config) error {
	res, err := app.NewPipelineService(newTableReader(cfg), cfg).BuildAnalysisTable(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Analysis table: %d rows, %d columns\n", res.Frame.RowCount(), res.Frame.ColumnCount())
	fmt.Println(res.Validation.Summary())
	for _, v := range res.Validation.Violations {
		fmt.Printf("  %s\n", v)
	}
	if !res.Validation.IsValid() {
		return fmt.Errorf("validation failed with %d errors", res.Validation.ErrorCount())
	}
	fmt.Println("✅ Validation passed")
	return nil
}

func newMidpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "midpoint <code> <variable>",
		Short: "Look up the midpoint an interval code resolves to",
		Long: `Look up the midpoint a codebook bracket code resolves to for one
survey variable.

Example: sibdebt midpoint 5 c2016it_1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid code %q: %w", args[0], err)
			}
			variable := args[1]
			if !survey.HasTable(variable) {
				return fmt.Errorf("no bracket table registered for variable %q", variable)
			}
			mid, ok := survey.Resolve(code, variable)
			if !ok {
				return fmt.Errorf("code %s is not in the bracket table for %q", args[0], variable)
			}
			fmt.Printf("%s code %s -> %s\n", variable, args[0], strconv.FormatFloat(mid, 'f', -1, 64))
			return nil
		},
	}
}

func newSynthCmd() *cobra.Command {
	var households int
	var seed int64
	var outDir string

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate a synthetic survey pair for development and demos",
		Long: `Generate synthetic household and individual tables with the CHFS 2017
column layout, written as CSV so a full study can run without the
licensed microdata.

Example: sibdebt synth --households 800 --out data/synth`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(households, seed, outDir)
		},
	}

	cmd.Flags().IntVar(&households, "households", 500, "number of households to generate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "RNG seed (deterministic)")
	cmd.Flags().StringVar(&outDir, "out", filepath.Join("data", "synth"), "output directory")

	return cmd
}

func runSynth(households int, seed int64, outDir string) error {
	if households <= 0 {
		return fmt.Errorf("households must be positive")
	}
	genCfg := testkit.DefaultSurveyConfig()
	genCfg.Households = households
	genCfg.Seed = seed

	hh, ind, err := testkit.NewSurveyGenerator(genCfg).GenerateTables()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	hhPath := filepath.Join(outDir, "synth_hh.csv")
	indPath := filepath.Join(outDir, "synth_ind.csv")
	if err := writeFrameCSV(hhPath, hh); err != nil {
		return err
	}
	if err := writeFrameCSV(indPath, ind); err != nil {
		return err
	}

	fmt.Printf("Wrote %d households to %s\n", hh.RowCount(), hhPath)
	fmt.Printf("Wrote %d individuals to %s\n", ind.RowCount(), indPath)
	fmt.Println("Set CHFS_DATA_DIR, CHFS_HH_FILE and CHFS_IND_FILE to run a study on them.")
	return nil
}

func writeFrameCSV(path string, frame *dataset.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	names := frame.ColumnNames()
	cols := make([][]float64, len(names))
	for i, name := range names {
		col, _ := frame.Column(name)
		cols[i] = col
	}

	w := csv.NewWriter(f)
	if err := w.Write(names); err != nil {
		return err
	}
	record := make([]string, len(names))
	for r := 0; r < frame.RowCount(); r++ {
		for c := range cols {
			if math.IsNaN(cols[c][r]) {
				record[c] = ""
			} else {
				record[c] = strconv.FormatFloat(cols[c][r], 'f', -1, 64)
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the results dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repo, closeRegistry, err := openRegistry(cmd.Context(), cfg)
			if err != nil {
				log.Printf("[CLI] Run registry unavailable: %v; /api/runs will be disabled", err)
				repo, closeRegistry = nil, func() {}
			}
			defer closeRegistry()

			dashboard, err := ui.NewApp(cfg, repo)
			if err != nil {
				return err
			}
			return dashboard.Start()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build and toolchain versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version, commit := "devel", "unknown"
			if info, ok := debug.ReadBuildInfo(); ok {
				if info.Main.Version != "" {
					version = info.Main.Version
				}
				for _, s := range info.Settings {
					if s.Key == "vcs.revision" {
						commit = s.Value
					}
				}
				fmt.Printf("sibdebt %s (commit %s, %s)\n", version, commit, info.GoVersion)
				return
			}
			fmt.Printf("sibdebt %s\n", version)
		},
	}
}

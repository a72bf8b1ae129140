package config

import (
	"math"
	"os"
	"path/filepath"
	"strconv"

	"sibdebt/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Paths    PathConfig
	Files    FileConfig
	Study    StudyConfig
	Database DatabaseConfig
	Server   ServerConfig
}

// PathConfig holds file system locations for inputs and outputs
type PathConfig struct {
	DataDir   string
	OutputDir string
}

func (p PathConfig) TablesDir() string  { return filepath.Join(p.OutputDir, "tables") }
func (p PathConfig) ReportsDir() string { return filepath.Join(p.OutputDir, "reports") }
func (p PathConfig) FiguresDir() string { return filepath.Join(p.OutputDir, "figures") }

// EnsureOutputDirs creates the output tree if it does not exist
func (p PathConfig) EnsureOutputDirs() error {
	for _, dir := range []string{p.TablesDir(), p.ReportsDir(), p.FiguresDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create output directory %s", dir)
		}
	}
	return nil
}

// FileConfig names the survey release files
type FileConfig struct {
	HouseholdFile  string
	IndividualFile string
}

func (f FileConfig) HouseholdPath(p PathConfig) string {
	return filepath.Join(p.DataDir, f.HouseholdFile)
}

func (f FileConfig) IndividualPath(p PathConfig) string {
	return filepath.Join(p.DataDir, f.IndividualFile)
}

// StudyConfig holds the analysis parameters. Every constant that
// shapes the estimates is surfaced here so the manifest can pin it.
type StudyConfig struct {
	SurveyYear        int
	MinHeadAge        int
	MaxSiblingAge     int // heads older than this get an undefined sibling count
	WinsorLower       float64
	WinsorUpper       float64
	RatioEpsilon      float64 // denominators at or below this count as zero assets
	LogOffset         float64 // c in log(x + c)
	VIFThreshold      float64
	RidgeMinExp       float64
	RidgeMaxExp       float64
	RidgeGridPoints   int
	HuberTuning       float64
	Seed              int64
	MaxParallelModels int64
}

// RidgeAlphas returns the penalty grid, log-spaced between
// 10^RidgeMinExp and 10^RidgeMaxExp inclusive.
func (s StudyConfig) RidgeAlphas() []float64 {
	alphas := make([]float64, s.RidgeGridPoints)
	step := (s.RidgeMaxExp - s.RidgeMinExp) / float64(s.RidgeGridPoints-1)
	for i := range alphas {
		alphas[i] = math.Pow(10, s.RidgeMinExp+float64(i)*step)
	}
	return alphas
}

// HeadControls are the head-level covariates entering every model.
func (s StudyConfig) HeadControls() []string {
	return []string{"head_age", "head_is_male", "head_educ", "head_is_married", "head_health"}
}

// HouseholdControls are the household-level covariates entering every
// model.
func (s StudyConfig) HouseholdControls() []string {
	return []string{"has_business", "num_houses", "log_total_assets"}
}

// IndependentVars is the full regressor list: the variable of interest
// first, then head controls, then household controls.
func (s StudyConfig) IndependentVars() []string {
	vars := []string{"head_siblings"}
	vars = append(vars, s.HeadControls()...)
	vars = append(vars, s.HouseholdControls()...)
	return vars
}

// Params flattens the study parameters for fingerprinting.
func (s StudyConfig) Params() map[string]interface{} {
	return map[string]interface{}{
		"survey_year":       s.SurveyYear,
		"min_head_age":      s.MinHeadAge,
		"max_sibling_age":   s.MaxSiblingAge,
		"winsor_lower":      s.WinsorLower,
		"winsor_upper":      s.WinsorUpper,
		"ratio_epsilon":     s.RatioEpsilon,
		"log_offset":        s.LogOffset,
		"vif_threshold":     s.VIFThreshold,
		"ridge_min_exp":     s.RidgeMinExp,
		"ridge_max_exp":     s.RidgeMaxExp,
		"ridge_grid_points": s.RidgeGridPoints,
		"huber_tuning":      s.HuberTuning,
		"seed":              s.Seed,
		"independent_vars":  s.IndependentVars(),
	}
}

// DatabaseConfig holds database connection settings. An empty URL
// disables persistence.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// ServerConfig holds dashboard server settings
type ServerConfig struct {
	Port string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Paths:    loadPathConfig(),
		Files:    loadFileConfig(),
		Study:    loadStudyConfig(),
		Database: loadDatabaseConfig(),
		Server:   loadServerConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadPathConfig() PathConfig {
	return PathConfig{
		DataDir:   getEnvOrDefault("CHFS_DATA_DIR", filepath.Join("data", "raw")),
		OutputDir: getEnvOrDefault("CHFS_OUTPUT_DIR", "output"),
	}
}

func loadFileConfig() FileConfig {
	return FileConfig{
		HouseholdFile:  getEnvOrDefault("CHFS_HH_FILE", "chfs2017_hh_202206.dta"),
		IndividualFile: getEnvOrDefault("CHFS_IND_FILE", "chfs2017_ind_202206.dta"),
	}
}

func loadStudyConfig() StudyConfig {
	return StudyConfig{
		SurveyYear:        getEnvIntOrDefault("STUDY_SURVEY_YEAR", 2017),
		MinHeadAge:        getEnvIntOrDefault("STUDY_MIN_HEAD_AGE", 16),
		MaxSiblingAge:     getEnvIntOrDefault("STUDY_MAX_SIBLING_AGE", 40),
		WinsorLower:       getEnvFloatOrDefault("STUDY_WINSOR_LOWER", 0.01),
		WinsorUpper:       getEnvFloatOrDefault("STUDY_WINSOR_UPPER", 0.01),
		RatioEpsilon:      getEnvFloatOrDefault("STUDY_RATIO_EPSILON", 1e-9),
		LogOffset:         getEnvFloatOrDefault("STUDY_LOG_OFFSET", 0.001),
		VIFThreshold:      getEnvFloatOrDefault("STUDY_VIF_THRESHOLD", 5.0),
		RidgeMinExp:       getEnvFloatOrDefault("STUDY_RIDGE_MIN_EXP", -6),
		RidgeMaxExp:       getEnvFloatOrDefault("STUDY_RIDGE_MAX_EXP", 6),
		RidgeGridPoints:   getEnvIntOrDefault("STUDY_RIDGE_GRID_POINTS", 13),
		HuberTuning:       getEnvFloatOrDefault("STUDY_HUBER_TUNING", 1.345),
		Seed:              int64(getEnvIntOrDefault("STUDY_SEED", 42)),
		MaxParallelModels: int64(getEnvIntOrDefault("STUDY_MAX_PARALLEL", 4)),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", ""),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func validateConfig(config *Config) error {
	s := config.Study
	if s.WinsorLower < 0 || s.WinsorLower >= 0.5 {
		return errors.ConfigInvalid("STUDY_WINSOR_LOWER must be in [0, 0.5)")
	}
	if s.WinsorUpper < 0 || s.WinsorUpper >= 0.5 {
		return errors.ConfigInvalid("STUDY_WINSOR_UPPER must be in [0, 0.5)")
	}
	if s.MinHeadAge < 0 {
		return errors.ConfigInvalid("STUDY_MIN_HEAD_AGE must be non-negative")
	}
	if s.MaxSiblingAge < s.MinHeadAge {
		return errors.ConfigInvalid("STUDY_MAX_SIBLING_AGE must not be below STUDY_MIN_HEAD_AGE")
	}
	if s.VIFThreshold <= 0 {
		return errors.ConfigInvalid("STUDY_VIF_THRESHOLD must be positive")
	}
	if s.RidgeGridPoints < 2 {
		return errors.ConfigInvalid("STUDY_RIDGE_GRID_POINTS must be at least 2")
	}
	if s.LogOffset <= 0 {
		return errors.ConfigInvalid("STUDY_LOG_OFFSET must be positive")
	}
	if s.MaxParallelModels < 1 {
		return errors.ConfigInvalid("STUDY_MAX_PARALLEL must be at least 1")
	}
	if config.Paths.DataDir == "" {
		return errors.ConfigInvalid("CHFS_DATA_DIR cannot be empty")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

package config

import (
	"math"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Study.SurveyYear != 2017 {
		t.Errorf("SurveyYear = %d, want 2017", cfg.Study.SurveyYear)
	}
	if cfg.Study.MinHeadAge != 16 {
		t.Errorf("MinHeadAge = %d, want 16", cfg.Study.MinHeadAge)
	}
	if cfg.Study.MaxSiblingAge != 40 {
		t.Errorf("MaxSiblingAge = %d, want 40", cfg.Study.MaxSiblingAge)
	}
	if cfg.Study.WinsorLower != 0.01 || cfg.Study.WinsorUpper != 0.01 {
		t.Errorf("winsor limits = %v/%v, want 0.01/0.01", cfg.Study.WinsorLower, cfg.Study.WinsorUpper)
	}
	if cfg.Files.HouseholdFile != "chfs2017_hh_202206.dta" {
		t.Errorf("HouseholdFile = %q", cfg.Files.HouseholdFile)
	}
	if cfg.Database.Enabled() {
		t.Error("database should be disabled without DATABASE_URL")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STUDY_SURVEY_YEAR", "2019")
	t.Setenv("STUDY_VIF_THRESHOLD", "10")
	t.Setenv("CHFS_DATA_DIR", "/srv/chfs")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Study.SurveyYear != 2019 {
		t.Errorf("SurveyYear = %d, want 2019", cfg.Study.SurveyYear)
	}
	if cfg.Study.VIFThreshold != 10 {
		t.Errorf("VIFThreshold = %v, want 10", cfg.Study.VIFThreshold)
	}
	if cfg.Paths.DataDir != "/srv/chfs" {
		t.Errorf("DataDir = %q", cfg.Paths.DataDir)
	}
}

func TestLoadRejectsBadWinsorLimit(t *testing.T) {
	t.Setenv("STUDY_WINSOR_LOWER", "0.6")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for winsor limit 0.6")
	}
}

func TestRidgeAlphasGrid(t *testing.T) {
	s := StudyConfig{RidgeMinExp: -6, RidgeMaxExp: 6, RidgeGridPoints: 13}
	alphas := s.RidgeAlphas()

	if len(alphas) != 13 {
		t.Fatalf("grid size = %d, want 13", len(alphas))
	}
	if math.Abs(alphas[0]-1e-6) > 1e-18 {
		t.Errorf("first alpha = %g, want 1e-6", alphas[0])
	}
	if math.Abs(alphas[12]-1e6) > 1e-6 {
		t.Errorf("last alpha = %g, want 1e6", alphas[12])
	}
	// Log-spaced: each point is 10x the previous.
	for i := 1; i < len(alphas); i++ {
		ratio := alphas[i] / alphas[i-1]
		if math.Abs(ratio-10) > 1e-9 {
			t.Errorf("alpha[%d]/alpha[%d] = %v, want 10", i, i-1, ratio)
		}
	}
}

func TestIndependentVarsOrder(t *testing.T) {
	s := StudyConfig{}
	vars := s.IndependentVars()

	if vars[0] != "head_siblings" {
		t.Errorf("first regressor = %q, want head_siblings", vars[0])
	}
	if len(vars) != 9 {
		t.Errorf("regressor count = %d, want 9", len(vars))
	}
	last := vars[len(vars)-1]
	if last != "log_total_assets" {
		t.Errorf("last regressor = %q, want log_total_assets", last)
	}
}

package run

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"

	"sibdebt/domain/core"
)

// Manifest is the truth source for replaying a run: input checksums,
// the configuration fingerprint, the seed, and toolchain provenance.
// It must exist before any result artefact is written.
type Manifest struct {
	RunID             core.RunID                   `json:"run_id"`
	CreatedAt         core.Timestamp               `json:"created_at"`
	SurveyYear        int                          `json:"survey_year"`
	Seed              int64                        `json:"seed"`
	GoVersion         string                       `json:"go_version"`
	Platform          string                       `json:"platform"`
	GitCommit         string                       `json:"git_commit,omitempty"`
	GitDirty          bool                         `json:"git_dirty,omitempty"`
	InputChecksums    map[string]core.FileChecksum `json:"input_checksums"`
	ConfigFingerprint core.ConfigFingerprint       `json:"config_fingerprint"`
	Dependencies      map[string]string            `json:"dependencies"`
	Fingerprint       core.Hash                    `json:"fingerprint"`
}

// NewManifest assembles a manifest for the given run. Toolchain and
// dependency provenance come from the binary's embedded build info.
func NewManifest(
	runID core.RunID,
	surveyYear int,
	seed int64,
	inputChecksums map[string]core.FileChecksum,
	configFingerprint core.ConfigFingerprint,
) *Manifest {
	m := &Manifest{
		RunID:             runID,
		CreatedAt:         core.Now(),
		SurveyYear:        surveyYear,
		Seed:              seed,
		GoVersion:         runtime.Version(),
		Platform:          runtime.GOOS + "/" + runtime.GOARCH,
		InputChecksums:    inputChecksums,
		ConfigFingerprint: configFingerprint,
		Dependencies:      map[string]string{},
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			m.Dependencies[dep.Path] = dep.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				m.GitCommit = setting.Value
			case "vcs.modified":
				m.GitDirty = setting.Value == "true"
			}
		}
	}

	m.Fingerprint = computeFingerprint(surveyYear, seed, inputChecksums, configFingerprint, m.GoVersion)
	return m
}

// computeFingerprint hashes the determinism parameters into a single
// value. Checksums are folded in sorted key order.
func computeFingerprint(
	surveyYear int,
	seed int64,
	inputChecksums map[string]core.FileChecksum,
	configFingerprint core.ConfigFingerprint,
	goVersion string,
) core.Hash {
	keys := make([]string, 0, len(inputChecksums))
	for k := range inputChecksums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := fmt.Sprintf("year:%d|seed:%d|config:%s|go:%s", surveyYear, seed, configFingerprint, goVersion)
	for _, k := range keys {
		data += fmt.Sprintf("|input:%s=%s", k, inputChecksums[k])
	}
	return core.NewHash([]byte(data))
}

// Validate checks that the manifest is complete enough to replay from.
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("manifest", "run_id cannot be empty")
	}
	if m.ConfigFingerprint == "" {
		return core.NewValidationError("manifest", "config_fingerprint cannot be empty")
	}
	if len(m.InputChecksums) == 0 {
		return core.NewValidationError("manifest", "input_checksums cannot be empty")
	}
	if m.Fingerprint == "" {
		return core.NewValidationError("manifest", "fingerprint not computed")
	}
	return nil
}

package ui

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"sibdebt/domain/run"
	"sibdebt/internal/config"
)

// Artefact files the dashboard reads, relative to the reports
// directory. The exporter owns the names.
const (
	snapshotFile = "run_snapshot.json"
	manifestFile = "reproducibility_manifest.json"
	reportFile   = "report.md"
)

// ArtifactStore reads the artefacts of the most recent completed run
// from the output directory. Every call re-reads from disk, so a fresh
// run shows up without restarting the server.
type ArtifactStore struct {
	paths config.PathConfig
}

func NewArtifactStore(paths config.PathConfig) *ArtifactStore {
	return &ArtifactStore{paths: paths}
}

// Snapshot loads the machine-readable run record. Callers distinguish
// "no run yet" with errors.Is(err, fs.ErrNotExist).
func (s *ArtifactStore) Snapshot() (*run.Snapshot, error) {
	raw, err := os.ReadFile(filepath.Join(s.paths.ReportsDir(), snapshotFile))
	if err != nil {
		return nil, err
	}
	var snap run.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode run snapshot: %w", err)
	}
	return &snap, nil
}

// ManifestJSON returns the reproducibility manifest verbatim.
func (s *ArtifactStore) ManifestJSON() ([]byte, error) {
	return os.ReadFile(filepath.Join(s.paths.ReportsDir(), manifestFile))
}

// ReportHTML renders the Markdown run report to HTML. The report is
// produced by the exporter, never by user input.
func (s *ArtifactStore) ReportHTML() (template.HTML, error) {
	raw, err := os.ReadFile(filepath.Join(s.paths.ReportsDir(), reportFile))
	if err != nil {
		return "", err
	}
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return template.HTML(markdown.Render(p.Parse(raw), renderer)), nil
}

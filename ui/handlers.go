package ui

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"

	"sibdebt/domain/run"
)

const runListLimit = 50

// handleIndex renders the run overview page.
func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := a.store.Snapshot()
	if errors.Is(err, fs.ErrNotExist) {
		a.renderTemplate(w, "index.html", map[string]interface{}{
			"Title":  "Siblings & Household Debt (CHFS 2017)",
			"HasRun": false,
		})
		return
	}
	if err != nil {
		log.Printf("[Dashboard] Failed to load run snapshot: %v", err)
		http.Error(w, "Failed to load run snapshot", http.StatusInternalServerError)
		return
	}

	report, err := a.store.ReportHTML()
	if err != nil {
		// The overview still works without the report section.
		log.Printf("[Dashboard] Failed to render run report: %v", err)
	}

	a.renderTemplate(w, "index.html", map[string]interface{}{
		"Title":    "Siblings & Household Debt (CHFS 2017)",
		"HasRun":   true,
		"Snapshot": snap,
		"Report":   report,
	})
}

// handleRun serves the reproducibility manifest of the latest run.
func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	raw, err := a.store.ManifestJSON()
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "No completed run found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[Dashboard] Failed to load manifest: %v", err)
		http.Error(w, "Failed to load manifest", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

// handleValidation serves the validation outcome of the latest run.
func (a *App) handleValidation(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.loadSnapshot(w)
	if !ok {
		return
	}
	a.respondJSON(w, snap.Validation)
}

// handleModels serves the fitted model summaries of the latest run.
func (a *App) handleModels(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.loadSnapshot(w)
	if !ok {
		return
	}
	a.respondJSON(w, snap.Models)
}

// handleRuns lists past runs from the registry.
func (a *App) handleRuns(w http.ResponseWriter, r *http.Request) {
	if a.registry == nil {
		http.Error(w, "Run registry is not configured", http.StatusServiceUnavailable)
		return
	}
	records, err := a.registry.ListRuns(r.Context(), runListLimit)
	if err != nil {
		log.Printf("[Dashboard] Failed to list runs: %v", err)
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []run.Record{}
	}
	a.respondJSON(w, records)
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (a *App) loadSnapshot(w http.ResponseWriter) (*run.Snapshot, bool) {
	snap, err := a.store.Snapshot()
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "No completed run found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Printf("[Dashboard] Failed to load run snapshot: %v", err)
		http.Error(w, "Failed to load run snapshot", http.StatusInternalServerError)
		return nil, false
	}
	return snap, true
}

func (a *App) respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Dashboard] Failed to encode response: %v", err)
	}
}

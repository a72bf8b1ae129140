package ui

import (
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sibdebt/internal/config"
	"sibdebt/ports"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App is the read-only dashboard over the artefacts of the most recent
// run. It never writes to the output directory; with no completed run
// it serves a getting-started page.
type App struct {
	router    *chi.Mux
	templates *template.Template
	store     *ArtifactStore
	registry  ports.RunRepository
	port      string
}

// NewApp builds the dashboard. registry may be nil; /api/runs then
// reports the registry as unavailable.
func NewApp(cfg *config.Config, registry ports.RunRepository) (*App, error) {
	funcMap := template.FuncMap{
		"f4": func(v *float64) string {
			if v == nil {
				return ""
			}
			return strconv.FormatFloat(*v, 'f', 4, 64)
		},
		"f2": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		templates: templates,
		store:     NewArtifactStore(cfg.Paths),
		registry:  registry,
		port:      cfg.Server.Port,
	}
	app.setupMiddleware()
	app.setupRoutes()
	return app, nil
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/healthz", a.handleHealthz)

	a.router.Get("/api/run", a.handleRun)
	a.router.Get("/api/validation", a.handleValidation)
	a.router.Get("/api/models", a.handleModels)
	a.router.Get("/api/runs", a.handleRuns)
}

// Router exposes the handler tree for embedding and tests.
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) Start() error {
	addr := ":" + a.port
	log.Printf("[Dashboard] Serving on http://localhost%s", addr)
	return http.ListenAndServe(addr, a.router)
}

func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		log.Printf("[Dashboard] Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

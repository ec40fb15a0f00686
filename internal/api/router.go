package api

import (
	"log/slog"
	"net/http"

	"github.com/sydlexius/driftwave/internal/api/middleware"
	"github.com/sydlexius/driftwave/internal/event"
	"github.com/sydlexius/driftwave/internal/library"
	"github.com/sydlexius/driftwave/internal/playlist"
	"github.com/sydlexius/driftwave/internal/provider"
	"github.com/sydlexius/driftwave/internal/run"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Orchestrator     *run.Orchestrator
	Selection        *run.Selection
	Generator        run.Config
	Library          *library.Store
	Scanner          *library.Scanner
	Index            *library.Index
	Queue            *playlist.Queue
	Cache            *provider.Cache
	ProviderSettings *provider.SettingsService
	EventBus         *event.Bus
	Logger           *slog.Logger
	BasePath         string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	orchestrator     *run.Orchestrator
	selection        *run.Selection
	generator        run.Config
	library          *library.Store
	scanner          *library.Scanner
	index            *library.Index
	queue            *playlist.Queue
	cache            *provider.Cache
	providerSettings *provider.SettingsService
	eventBus         *event.Bus
	logger           *slog.Logger
	basePath         string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		orchestrator:     deps.Orchestrator,
		selection:        deps.Selection,
		generator:        deps.Generator,
		library:          deps.Library,
		scanner:          deps.Scanner,
		index:            deps.Index,
		queue:            deps.Queue,
		cache:            deps.Cache,
		providerSettings: deps.ProviderSettings,
		eventBus:         deps.EventBus,
		logger:           deps.Logger,
		basePath:         deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/healthz", r.handleHealth)

	mux.HandleFunc("POST "+bp+"/api/generate", r.handleGenerate)
	mux.HandleFunc("GET "+bp+"/api/runs/latest", r.handleLatestRun)

	mux.HandleFunc("PUT "+bp+"/api/selection", r.handleSetSelection)
	mux.HandleFunc("DELETE "+bp+"/api/selection", r.handleClearSelection)
	mux.HandleFunc("PUT "+bp+"/api/now-playing", r.handleSetNowPlaying)

	mux.HandleFunc("POST "+bp+"/api/library/rescan", r.handleRescan)
	mux.HandleFunc("GET "+bp+"/api/library/status", r.handleLibraryStatus)

	mux.HandleFunc("GET "+bp+"/api/queue", r.handleQueue)
	mux.HandleFunc("POST "+bp+"/api/queue/next", r.handleQueueNext)
	mux.HandleFunc("POST "+bp+"/api/cache/clear", r.handleCacheClear)

	mux.HandleFunc("PUT "+bp+"/api/providers/{name}/key", r.handleSetProviderKey)
	mux.HandleFunc("DELETE "+bp+"/api/providers/{name}/key", r.handleDeleteProviderKey)

	return middleware.Logging(r.logger)(mux)
}

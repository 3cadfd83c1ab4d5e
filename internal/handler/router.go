package handler

import (
	"net/http"

	"nilor/internal/metrics"
	"nilor/internal/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig holds everything the router mounts. Events, Live and Metrics
// are optional.
type RouterConfig struct {
	Editor         *service.Editor
	Logger         *zap.Logger
	Metrics        *metrics.Collector
	Events         http.Handler
	Live           http.Handler
	AllowedOrigins []string
}

// NewRouter configures all routes and middleware
func NewRouter(cfg RouterConfig) http.Handler {
	h := NewGraphHandler(cfg.Editor, cfg.Logger)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(RequestLogger(cfg.Logger, cfg.Metrics))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	router.Get("/health", h.Health)

	router.Route("/api", func(r chi.Router) {
		r.Get("/graph", h.GetGraph)
		r.Put("/graph", h.PutGraph)
		r.Delete("/autosave", h.ClearAutosave)

		r.Get("/export/{format}", h.Export)
		r.Post("/import/{format}", h.Import)

		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", h.ListNodes)
			r.Post("/", h.CreateNode)
			r.Get("/{id}", h.GetNode)
			r.Patch("/{id}", h.UpdateNode)
			r.Delete("/{id}", h.DeleteNode)

			r.Post("/{id}/ports", h.CreatePort)
			r.Get("/{id}/ports/{direction}/{portID}", h.GetPort)
			r.Patch("/{id}/ports/{direction}/{portID}", h.UpdatePort)
			r.Delete("/{id}/ports/{direction}/{portID}", h.DeletePort)
		})

		r.Route("/edges", func(r chi.Router) {
			r.Get("/", h.ListEdges)
			r.Post("/", h.CreateEdge)
			r.Get("/{id}", h.GetEdge)
			r.Delete("/{id}", h.DeleteEdge)
		})
	})

	if cfg.Events != nil {
		router.Method(http.MethodGet, "/events", cfg.Events)
	}
	if cfg.Live != nil {
		router.Method(http.MethodGet, "/live", cfg.Live)
	}
	if cfg.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	return router
}

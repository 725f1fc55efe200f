package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/health"
	"github.com/Kone-AI/Kone-sub000/pkg/telemetry/tracing"
)

// Handler returns the routed HTTP handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// outermost first
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(RequestIDMiddleware)
	r.Use(tracing.HTTPMiddleware)
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/health", s.deps.Health.LivenessHandler())
	r.Head("/health", s.deps.Health.LivenessHandler())
	r.Get("/ready", s.deps.Health.ReadinessHandler())
	r.Head("/ready", s.deps.Health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(s.deps.Version, s.deps.Commit, s.deps.BuildTime))

	if s.deps.Metrics != nil {
		r.Handle(s.deps.MetricsPath, s.deps.Metrics)
	}

	r.Route("/status", func(r chi.Router) {
		if s.deps.Models != nil {
			r.Get("/models", s.handleListModels())
			r.Get("/models/*", s.handleGetModel())
		}
		if s.deps.Providers != nil {
			r.Get("/providers", s.handleListProviders())
			r.Post("/providers/{name}/reset", s.handleResetProvider())
		}
		if s.deps.History != nil {
			r.Get("/history", s.handleHistory())
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method "+r.Method+" not allowed")
	})

	return r
}

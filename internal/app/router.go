// Package app wires the HTTP router, readiness checks and background sweeps.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/kerjaflow/fitscore/internal/adapter/httpserver"
	"github.com/kerjaflow/fitscore/internal/adapter/observability"
	"github.com/kerjaflow/fitscore/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming
// spaces. An empty input means all origins.
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(150 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Mutating endpoints are rate limited per IP. Search, ranking and
	// document generation hit external services, so they share the limit.
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))

		wr.Post("/v1/resume", srv.ResumeSaveHandler())
		wr.Delete("/v1/resume", srv.ResumeDeleteHandler())

		wr.Post("/v1/search", srv.SearchHandler())
		wr.Delete("/v1/jobs/{id}", srv.DeleteJobHandler())

		wr.Post("/v1/rankings/search", srv.RankSearchHandler())
		wr.Delete("/v1/rankings/{id}", srv.DeleteRankingHandler())

		wr.Post("/v1/saved-jobs/toggle", srv.ToggleSavedHandler())
		wr.Put("/v1/saved-jobs/notes", srv.UpdateNotesHandler())

		wr.Post("/v1/documents", srv.GenerateDocumentHandler())
		wr.Delete("/v1/documents/{id}", srv.DeleteDocumentHandler())

		wr.Post("/v1/analyses", srv.AnalyzeHandler())
		wr.Delete("/v1/analyses/{id}", srv.DeleteAnalysisHandler())
	})

	// Read-only endpoints.
	r.Get("/v1/resume", srv.ResumeGetHandler())
	r.Get("/v1/jobs", srv.ListJobsHandler())
	r.Get("/v1/rankings", srv.ListRankingsHandler())
	r.Get("/v1/saved-jobs", srv.ListSavedHandler())
	r.Get("/v1/documents", srv.ListDocumentsHandler())
	r.Get("/v1/analyses", srv.ListAnalysesHandler())
	r.Get("/v1/analyses/{id}", srv.AnalysisResultHandler())

	// Health and metrics.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
	r.Get("/readyz", srv.ReadyzHandler())

	return httpserver.SecurityHeaders(r)
}

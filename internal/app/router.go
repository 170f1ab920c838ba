package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-interview-assessor/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-assessor/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-assessor/internal/config"
)

// defaultRouteTimeout applies to every route except the synchronous run.
const defaultRouteTimeout = 30 * time.Second

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
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
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-Id", httpserver.APIKeyHeader},
		ExposedHeaders:   []string{"X-Request-Id", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1/assessments", func(ar chi.Router) {
		ar.Use(httpserver.APIKeyAuth(cfg.APIKeyHash))

		// Mutating endpoints run pipelines; limit per client IP.
		ar.Group(func(wr chi.Router) {
			if cfg.RateLimitPerMin > 0 {
				wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			}
			wr.With(httpserver.TimeoutMiddleware(defaultRouteTimeout)).Post("/", srv.SubmitHandler())
			wr.With(httpserver.TimeoutMiddleware(syncTimeout(cfg))).Post("/run", srv.RunHandler())
		})
		ar.Group(func(rr chi.Router) {
			rr.Use(httpserver.TimeoutMiddleware(defaultRouteTimeout))
			rr.Get("/{id}", srv.GetHandler())
			rr.Get("/{id}/report", srv.ReportHandler())
		})
	})

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}

// syncTimeout leaves the handler's own deadline room to write its response.
func syncTimeout(cfg config.Config) time.Duration {
	if cfg.SyncRunTimeout <= 0 {
		return defaultRouteTimeout
	}
	return cfg.SyncRunTimeout + 5*time.Second
}

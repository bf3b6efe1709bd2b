package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/worklog-bot/worklog/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Admin API, nil when AUTH_JWT_SECRET is unset.
	GetUsage    http.HandlerFunc
	SetLimit    http.HandlerFunc
	ListAudit   http.HandlerFunc
	ResetAccess http.HandlerFunc
	RevokeToken http.HandlerFunc
	Whoami      http.HandlerFunc

	AuthMiddleware func(http.Handler) http.Handler

	// Reports serves locally published spreadsheets; nil when reports go to Drive.
	Reports http.Handler
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AdminRateLimiter   func(http.Handler) http.Handler
	// Checks are run by the readiness probe, keyed by dependency name.
	Checks map[string]HealthCheck
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(mw.CORS(cfg.CORSAllowedOrigins))

	// Liveness probe, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "healthy"}
		status := http.StatusOK

		for name, check := range cfg.Checks {
			if err := check(r.Context()); err != nil {
				health[name] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			health[name] = "healthy"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	if h.Reports != nil {
		r.Handle("/reports/*", http.StripPrefix("/reports/", h.Reports))
	}

	if h.AuthMiddleware != nil {
		r.Route("/api/v1/admin", func(r chi.Router) {
			if cfg.AdminRateLimiter != nil {
				r.Use(cfg.AdminRateLimiter)
			}
			r.Use(h.AuthMiddleware)

			r.Get("/whoami", h.Whoami)
			r.Post("/token/revoke", h.RevokeToken)

			r.Route("/users/{userID}", func(r chi.Router) {
				r.Get("/usage", h.GetUsage)
				r.Put("/limit", h.SetLimit)
				r.Get("/audit", h.ListAudit)
				if h.ResetAccess != nil {
					r.Delete("/access", h.ResetAccess)
				}
			})
		})
	}

	return r
}

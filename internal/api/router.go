package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes assembles the router and middleware stack. Ordering matters:
// the recoverer is outermost, correlation before anything that logs,
// metrics and tracing before the rate limiter so rejected requests are
// still counted.
func (s *Server) routes() http.Handler {
	cfg := s.currentConfig()

	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(corsReadOnly)
	r.Use(securityHeaders)
	r.Use(httpMetrics)
	if s.deps.Tracing {
		r.Use(tracing("parking-api"))
	}
	r.Use(requestLogger)
	if cfg.RateLimitEnabled {
		// Sliding one-minute window; the configured burst widens the
		// window allowance.
		r.Use(rateLimit(cfg.RateLimitRPS*60+cfg.RateLimitBurst, time.Minute))
	}

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	}
	if s.deps.ServeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/availability", s.handleAvailability)
		r.Get("/availability/{carparkID}", s.handleCarparkAvailability)
		r.Get("/availability/{carparkID}/history", s.handleHistory)
		r.Get("/carparks/{carparkID}", s.handleCarparkDetails)
		r.Get("/status", s.handleStatus)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(refreshRateLimit())
			r.Post("/refresh", s.handleRefresh)
		})
	})

	return r
}

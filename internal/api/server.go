// Package api serves the carpark availability HTTP API: the merged
// snapshot, per-carpark lookups, URA detail and history queries, and
// the token-protected refresh trigger.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/config"
	"github.com/zeecm/parking/internal/health"
	"github.com/zeecm/parking/internal/jobs"
	"github.com/zeecm/parking/internal/store"
)

// Refresher is the part of the refresh pipeline the API drives.
type Refresher interface {
	Run(ctx context.Context) (*jobs.Result, error)
	LastResult() *jobs.Result
	LastRun() time.Time
}

// SnapshotCache is the read side of the availability cache.
type SnapshotCache interface {
	GetSnapshot(key string) (*carpark.Snapshot, bool)
	GetDetails(key string) ([]carpark.Detail, bool)
}

// DetailStore answers per-carpark detail and history queries.
type DetailStore interface {
	Details(ctx context.Context, carparkID string) ([]carpark.Detail, error)
	History(ctx context.Context, carparkID string, since time.Time, limit int) ([]store.HistoryEntry, error)
}

// Deps holds the collaborators of the API server. Cache is required;
// Store and Refresher are optional and their endpoints answer 503 when
// absent.
type Deps struct {
	Cache     SnapshotCache
	Store     DetailStore
	Refresher Refresher
	Health    *health.Manager
	// Tracing enables the OTel middleware on the router.
	Tracing bool
	// ServeMetrics mounts /metrics on the API router; off when a
	// dedicated metrics listener is configured.
	ServeMetrics bool
}

// Server is the HTTP API server.
type Server struct {
	mu   sync.RWMutex
	cfg  config.AppConfig
	deps Deps

	startTime time.Time
}

// New creates an API server with the given configuration and
// collaborators.
func New(cfg config.AppConfig, deps Deps) *Server {
	return &Server{
		cfg:       cfg,
		deps:      deps,
		startTime: time.Now(),
	}
}

// Handler builds the routed handler with the full middleware stack.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// HealthManager exposes the readiness manager so the daemon can
// register dependency checkers during bootstrap.
func (s *Server) HealthManager() *health.Manager {
	return s.deps.Health
}

// ApplyConfig swaps in a reloaded configuration. Auth settings take
// effect on the next request. Listener addresses and the rate limiter
// are fixed when the handler is built and need a restart to change.
func (s *Server) ApplyConfig(cfg config.AppConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

func (s *Server) currentConfig() config.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Package daemon owns the process lifecycle of the availability
// service: HTTP listeners, graceful shutdown with LIFO cleanup hooks,
// and the long-running subsystems (config watcher, refresh scheduler).
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ShutdownHook performs one cleanup step during graceful shutdown.
// Hooks run in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// ServerOptions holds the listener configuration of the daemon.
type ServerOptions struct {
	// Listen is the API listen address, e.g. ":8080".
	Listen string

	// MetricsListen is the dedicated metrics listen address. Empty
	// means no separate metrics listener.
	MetricsListen string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
}

// Defaults applied to zero ServerOptions fields.
const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 15 * time.Second
	defaultMaxHeaderBytes  = 1 << 20
)

func (o *ServerOptions) applyDefaults() {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = defaultIdleTimeout
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = defaultShutdownTimeout
	}
	if o.MaxHeaderBytes <= 0 {
		o.MaxHeaderBytes = defaultMaxHeaderBytes
	}
}

// Manager manages the daemon lifecycle: starting servers, handling
// shutdown.
type Manager interface {
	// Start starts all configured servers and blocks until shutdown.
	Start(ctx context.Context) error

	// Shutdown gracefully shuts down all servers and runs the
	// registered hooks.
	Shutdown(ctx context.Context) error

	// RegisterShutdownHook registers a cleanup function to run during
	// shutdown.
	RegisterShutdownHook(name string, hook ShutdownHook)
}

type manager struct {
	opts ServerOptions
	deps Deps

	apiServer     *http.Server
	metricsServer *http.Server

	shutdownHooks []namedHook

	started  bool
	stopping bool
	mu       sync.Mutex

	logger zerolog.Logger
}

type namedHook struct {
	name string
	hook ShutdownHook
}

// NewManager creates a daemon manager with the given listener options
// and dependencies.
func NewManager(opts ServerOptions, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	opts.applyDefaults()

	return &manager{
		opts:   opts,
		deps:   deps,
		logger: deps.Logger.With().Str("component", "daemon").Logger(),
	}, nil
}

// Start starts the servers and blocks until the context is cancelled
// or a server fails.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("start context is nil")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Info().
		Str("event", "daemon.starting").
		Str("listen", m.opts.Listen).
		Str("metrics_listen", m.opts.MetricsListen).
		Dur("shutdown_timeout", m.opts.ShutdownTimeout).
		Msg("starting daemon")

	errChan := make(chan error, 2)

	if m.opts.MetricsListen != "" && m.deps.MetricsHandler != nil {
		m.startMetricsServer(errChan)
	}
	m.startAPIServer(errChan)

	select {
	case err := <-errChan:
		m.logger.Error().Err(err).
			Str("event", "daemon.server_failed").
			Msg("server error, initiating shutdown")
		// Detached but bounded so shutdown completes even when the
		// parent context is already cancelled.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := m.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("server error and shutdown failure: %w", errors.Join(err, shutdownErr))
		}
		return err
	case <-ctx.Done():
		m.logger.Info().
			Str("event", "daemon.shutdown_signal").
			Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.ShutdownTimeout)
		defer cancel()
		return m.Shutdown(shutdownCtx)
	}
}

func (m *manager) startAPIServer(errChan chan<- error) {
	m.apiServer = &http.Server{
		Addr:              m.opts.Listen,
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.opts.ReadTimeout,
		ReadHeaderTimeout: m.opts.ReadTimeout / 2,
		WriteTimeout:      m.opts.WriteTimeout,
		IdleTimeout:       m.opts.IdleTimeout,
		MaxHeaderBytes:    m.opts.MaxHeaderBytes,
	}

	go func() {
		m.logger.Info().
			Str("event", "api.server.listening").
			Str("addr", m.opts.Listen).
			Msg("API server listening")

		if err := m.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).
				Str("event", "api.server.failed").
				Msg("API server failed")
			errChan <- fmt.Errorf("api server: %w", err)
		}
	}()
}

func (m *manager) startMetricsServer(errChan chan<- error) {
	m.metricsServer = &http.Server{
		Addr:              m.opts.MetricsListen,
		Handler:           m.deps.MetricsHandler,
		ReadHeaderTimeout: m.opts.ReadTimeout / 2,
	}

	go func() {
		m.logger.Info().
			Str("event", "metrics.server.listening").
			Str("addr", m.opts.MetricsListen).
			Msg("metrics server listening")

		if err := m.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error().Err(err).
				Str("event", "metrics.server.failed").
				Msg("metrics server failed")
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()
}

// Shutdown stops the servers and runs the hooks in LIFO order. Hook
// failures are collected, not short-circuited.
func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("shutdown context is nil")
	}

	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		return nil
	}
	if !m.started {
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	m.mu.Unlock()

	m.logger.Info().
		Str("event", "daemon.stopping").
		Msg("shutting down daemon")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.ShutdownTimeout)
	defer cancel()

	var errs []error

	if m.apiServer != nil {
		if err := m.apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("api server shutdown: %w", err))
		}
	}
	if m.metricsServer != nil {
		if err := m.metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	m.mu.Lock()
	hooks := make([]namedHook, len(m.shutdownHooks))
	copy(hooks, m.shutdownHooks)
	m.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		start := time.Now()
		if err := hook.hook(shutdownCtx); err != nil {
			m.logger.Error().Err(err).
				Str("event", "daemon.hook_failed").
				Str("hook", hook.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
			continue
		}
		m.logger.Debug().
			Str("hook", hook.name).
			Dur("duration", time.Since(start)).
			Msg("shutdown hook completed")
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	m.logger.Info().
		Str("event", "daemon.stopped").
		Msg("daemon stopped cleanly")
	return nil
}

// RegisterShutdownHook registers a cleanup function. Hooks run in
// reverse registration order, so register in dependency order: stores
// before the caches that feed them.
func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shutdownHooks = append(m.shutdownHooks, namedHook{name: name, hook: hook})
	m.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}

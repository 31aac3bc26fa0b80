package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/zeecm/parking/internal/api"
	"github.com/zeecm/parking/internal/config"
	"github.com/zeecm/parking/internal/jobs"
)

// App owns the long-lived runtime: the config watcher, reload wiring,
// the refresh scheduler, and the server lifecycle via Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	apiServer    *api.Server
	scheduler    *jobs.Scheduler
	reloadSignal os.Signal
}

// NewApp creates the daemon orchestrator. Holder, API server and
// scheduler are optional; nil disables the corresponding subsystem.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder, apiServer *api.Server, scheduler *jobs.Scheduler) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		apiServer:    apiServer,
		scheduler:    scheduler,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run starts all owned subsystems and blocks until ctx is cancelled or
// a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: a watch failure must not stop
	// startup.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).
				Str("event", "config.watcher_start_failed").
				Msg("failed to start config watcher")
		}
	}

	// Apply every config swap to the API server so auth and rate-limit
	// changes take effect without a restart.
	if a.cfgHolder != nil && a.apiServer != nil {
		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.apiServer.ApplyConfig(cfg)
				}
			}
		})
	}

	// SIGHUP triggers a manual reload.
	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str("event", "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(context.Background()); err != nil {
						a.logger.Warn().Err(err).
							Str("event", "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	// Refresh scheduler; stops via ctx.
	if a.scheduler != nil {
		g.Go(func() error {
			return a.scheduler.Start(ctx)
		})
	}

	// Server lifecycle.
	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

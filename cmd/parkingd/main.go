// Command parkingd is the carpark availability daemon: it polls the
// URA Data Service and LTA DataMall on a schedule, merges and caches
// the result, and serves it over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeecm/parking/internal/api"
	"github.com/zeecm/parking/internal/cache"
	"github.com/zeecm/parking/internal/config"
	"github.com/zeecm/parking/internal/daemon"
	"github.com/zeecm/parking/internal/datamall"
	"github.com/zeecm/parking/internal/export"
	"github.com/zeecm/parking/internal/feed"
	"github.com/zeecm/parking/internal/health"
	"github.com/zeecm/parking/internal/jobs"
	"github.com/zeecm/parking/internal/log"
	"github.com/zeecm/parking/internal/resilience"
	"github.com/zeecm/parking/internal/state"
	"github.com/zeecm/parking/internal/store"
	"github.com/zeecm/parking/internal/telemetry"
	"github.com/zeecm/parking/internal/ura"
	"github.com/zeecm/parking/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("parkingd %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// Safe defaults until the real config is loaded.
	log.Configure(log.Config{
		Level:   "info",
		Service: "parkingd",
		Version: version.Version,
	})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path: explicit flag, else ${PARKING_DATA}/config.yaml when
	// it exists.
	effectivePath := strings.TrimSpace(*configPath)
	if effectivePath == "" {
		dataDir := strings.TrimSpace(config.ParseString("PARKING_DATA", ""))
		if dataDir != "" {
			autoPath := filepath.Join(dataDir, "config.yaml")
			if _, err := os.Stat(autoPath); err == nil {
				effectivePath = autoPath
			}
		}
	}

	loader := config.NewLoader(effectivePath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectivePath).
			Msg("failed to load configuration")
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: "parkingd",
		Version: cfg.Version,
	})

	if effectivePath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", effectivePath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().Err(err).
			Str("event", "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.Listen).
		Msg("starting parkingd")

	logger.Info().Msgf("→ URA source: %v", cfg.URA.Enabled())
	logger.Info().Msgf("→ DataMall source: %v", cfg.DataMall.Enabled())
	logger.Info().Msgf("→ Refresh: every %s (jitter %s)", cfg.RefreshInterval, cfg.RefreshJitter)
	logger.Info().Msgf("→ Data dir: %s", cfg.DataDir)
	if cfg.APIToken != "" {
		logger.Info().Msg("→ API token: configured")
	} else if cfg.AuthAnonymous {
		logger.Warn().Msg("→ API token: NOT configured, anonymous access explicitly enabled")
	} else {
		logger.Warn().Msg("→ API token: NOT configured, refresh endpoint fails closed")
	}

	// Tracing.
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "parkingd",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Fatal().Err(err).
			Str("event", "telemetry.init_failed").
			Msg("failed to initialize tracing")
	}

	// Upstream sources, in order of authority.
	var sources []jobs.Source
	var uraClient *ura.Client
	if cfg.URA.Enabled() {
		uraClient = ura.New(cfg.URA.BaseURL, cfg.URA.AccessKey, ura.Options{
			Timeout:    cfg.URA.Timeout,
			MaxRetries: cfg.URA.Retries,
			Backoff:    cfg.URA.Backoff,
			Breaker:    resilience.NewCircuitBreaker("ura", 5, 60*time.Second),
		})
		sources = append(sources, uraClient)
	}
	if cfg.DataMall.Enabled() {
		sources = append(sources, datamall.New(cfg.DataMall.BaseURL, cfg.DataMall.AccountKey, datamall.Options{
			Timeout:    cfg.DataMall.Timeout,
			MaxRetries: cfg.DataMall.Retries,
			Backoff:    cfg.DataMall.Backoff,
			Agency:     cfg.DataMall.Agency,
			Breaker:    resilience.NewCircuitBreaker("datamall", 5, 60*time.Second),
		}))
	}
	if len(sources) == 0 {
		logger.Fatal().
			Str("event", "startup.no_sources").
			Msg("no upstream source configured, set PARKING_URA_ACCESS_KEY or PARKING_DATAMALL_ACCOUNT_KEY")
	}

	// Snapshot cache: Redis when configured, in-process otherwise.
	var snapCache cache.Cache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log.WithComponent("cache"))
		if err != nil {
			logger.Fatal().Err(err).
				Str("event", "cache.init_failed").
				Msg("failed to connect to redis")
		}
		snapCache = rc
	} else {
		snapCache = cache.NewMemoryCache(time.Minute)
	}

	// Details store and checkpoint state.
	histStore, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		logger.Fatal().Err(err).
			Str("event", "store.init_failed").
			Str("path", cfg.Store.Path).
			Msg("failed to open details store")
	}

	stateStore, err := state.Open(cfg.State.Dir, cfg.State.InMemory)
	if err != nil {
		logger.Fatal().Err(err).
			Str("event", "state.init_failed").
			Str("dir", cfg.State.Dir).
			Msg("failed to open state store")
	}

	// Export artifacts and feed publishing are optional.
	var exporter jobs.Exporter
	if cfg.Export.Dir != "" {
		w, err := export.NewWriter(cfg.Export.Dir)
		if err != nil {
			logger.Fatal().Err(err).
				Str("event", "export.init_failed").
				Str("dir", cfg.Export.Dir).
				Msg("failed to create export writer")
		}
		exporter = w
	} else {
		exporter = export.NewNoop()
	}

	var publisher feed.Publisher
	if len(cfg.Feed.Brokers) > 0 {
		kp, err := feed.NewKafkaPublisher(feed.KafkaConfig{
			Brokers: cfg.Feed.Brokers,
			Topic:   cfg.Feed.Topic,
		})
		if err != nil {
			logger.Fatal().Err(err).
				Str("event", "feed.init_failed").
				Msg("failed to create kafka publisher")
		}
		publisher = kp
	} else {
		publisher = feed.NewNoop()
	}

	refresher, err := jobs.NewRefresher(jobs.Deps{
		Sources:  sources,
		Cache:    snapCache,
		Store:    histStore,
		State:    stateStore,
		Exporter: exporter,
		Feed:     publisher,
	}, jobs.Config{
		CacheTTL:        cfg.Redis.TTL,
		Retention:       cfg.Store.Retention,
		DetailsInterval: cfg.DetailsInterval,
	})
	if err != nil {
		logger.Fatal().Err(err).
			Str("event", "jobs.init_failed").
			Msg("failed to create refresher")
	}

	// Hot reload: file watcher plus SIGHUP.
	cfgHolder := config.NewHolder(cfg, config.NewLoader(effectivePath, version.Version), effectivePath)

	// Readiness: cache, store and refresh-age checks.
	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewPingChecker("cache", snapCache.HealthCheck))
	hm.RegisterChecker(health.NewPingChecker("store", histStore.HealthCheck))
	hm.RegisterChecker(health.NewRefreshChecker(refresher.LastRun, 3*cfg.RefreshInterval))
	if cfg.Export.Dir != "" {
		hm.RegisterChecker(health.NewArtifactChecker("export", filepath.Join(cfg.Export.Dir, "availability.json")))
	}

	apiServer := api.New(cfg, api.Deps{
		Cache:        snapCache,
		Store:        histStore,
		Refresher:    refresher,
		Health:       hm,
		Tracing:      cfg.Telemetry.Enabled,
		ServeMetrics: cfg.MetricsListen == "",
	})

	mgr, err := daemon.NewManager(daemon.ServerOptions{
		Listen:        cfg.Listen,
		MetricsListen: cfg.MetricsListen,
	}, daemon.Deps{
		Logger:         logger,
		APIHandler:     apiServer.Handler(),
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		logger.Fatal().Err(err).
			Str("event", "daemon.init_failed").
			Msg("failed to create daemon manager")
	}

	// Cleanup runs LIFO: the feed and cache go before the stores they
	// may still be flushing into.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("state", func(context.Context) error { return stateStore.Close() })
	mgr.RegisterShutdownHook("store", func(context.Context) error { return histStore.Close() })
	mgr.RegisterShutdownHook("cache", func(context.Context) error { return snapCache.Close() })
	mgr.RegisterShutdownHook("feed", func(context.Context) error { return publisher.Close() })
	mgr.RegisterShutdownHook("config-watcher", func(context.Context) error {
		cfgHolder.Stop()
		return nil
	})

	scheduler := jobs.NewScheduler(refresher, cfg.RefreshInterval, cfg.RefreshJitter, cfg.RefreshTimeout)

	app := daemon.NewApp(logger, mgr, cfgHolder, apiServer, scheduler)
	if err := app.Run(ctx); err != nil {
		logger.Fatal().Err(err).
			Str("event", "daemon.failed").
			Msg("daemon failed")
	}

	logger.Info().Msg("server exiting")
}

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Built-in defaults, overridable by file and environment.
const (
	defaultListen          = ":8080"
	defaultDataDir         = "./data"
	defaultRefreshInterval = 5 * time.Minute
	defaultRefreshJitter   = 30 * time.Second
	defaultRefreshTimeout  = 2 * time.Minute
	defaultDetailsInterval = 12 * time.Hour

	defaultURABaseURL      = "https://www.ura.gov.sg"
	defaultDataMallBaseURL = "https://datamall2.mytransport.sg"
	defaultClientTimeout   = 15 * time.Second
	defaultClientRetries   = 3
	defaultClientBackoff   = 500 * time.Millisecond

	defaultCacheTTL       = 5 * time.Minute
	defaultStorePath      = "parking.db"
	defaultStoreRetention = 7 * 24 * time.Hour
	defaultStateDir       = "state"
	defaultExportDir      = "exports"
	defaultFeedTopic      = "parking.refresh"

	defaultRateLimitRPS   = 10
	defaultRateLimitBurst = 20
)

// Loader loads configuration with the precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a configuration loader. configPath may be empty for
// ENV-only operation.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load resolves the configuration: defaults first, then the strict YAML
// file when provided, then environment overrides, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)

	cfg.Version = l.version

	// DataDir must be absolute before dependent paths resolve against it.
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Store.Path = resolveUnder(cfg.DataDir, cfg.Store.Path)
	cfg.State.Dir = resolveUnder(cfg.DataDir, cfg.State.Dir)
	cfg.Export.Dir = resolveUnder(cfg.DataDir, cfg.Export.Dir)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func defaults() AppConfig {
	return AppConfig{
		DataDir:         defaultDataDir,
		Listen:          defaultListen,
		RefreshInterval: defaultRefreshInterval,
		RefreshJitter:   defaultRefreshJitter,
		RefreshTimeout:  defaultRefreshTimeout,
		DetailsInterval: defaultDetailsInterval,
		RateLimitRPS:    defaultRateLimitRPS,
		RateLimitBurst:  defaultRateLimitBurst,
		URA: URAConfig{
			BaseURL: defaultURABaseURL,
			Timeout: defaultClientTimeout,
			Retries: defaultClientRetries,
			Backoff: defaultClientBackoff,
		},
		DataMall: DataMallConfig{
			BaseURL: defaultDataMallBaseURL,
			Timeout: defaultClientTimeout,
			Retries: defaultClientRetries,
			Backoff: defaultClientBackoff,
		},
		Redis: RedisConfig{
			TTL: defaultCacheTTL,
		},
		Store: StoreConfig{
			Path:      defaultStorePath,
			Retention: defaultStoreRetention,
		},
		State: StateConfig{
			Dir: defaultStateDir,
		},
		Feed: FeedConfig{
			Topic: defaultFeedTopic,
		},
		Export: ExportConfig{
			Dir: defaultExportDir,
		},
		Telemetry: TelemetryConfig{
			Environment:  "development",
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// loadFile parses a YAML config file in strict mode: unknown fields and
// trailing documents are fatal to surface misconfiguration early.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

// mergeFileConfig applies file values over the defaults. Invalid
// duration strings are errors rather than silent fallbacks.
func mergeFileConfig(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.DataDir, f.DataDir)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.Listen, f.Listen)

	setString(&cfg.APIToken, f.API.Token)
	setBool(&cfg.AuthAnonymous, f.API.Anonymous)
	if rl := f.API.RateLimit; rl != nil {
		setBool(&cfg.RateLimitEnabled, rl.Enabled)
		setInt(&cfg.RateLimitRPS, rl.RPS)
		setInt(&cfg.RateLimitBurst, rl.Burst)
	}

	setString(&cfg.MetricsListen, f.Metrics.Listen)

	if err := setDuration(&cfg.RefreshInterval, f.Refresh.Interval, "refresh.interval"); err != nil {
		return err
	}
	if err := setDuration(&cfg.RefreshJitter, f.Refresh.Jitter, "refresh.jitter"); err != nil {
		return err
	}
	if err := setDuration(&cfg.RefreshTimeout, f.Refresh.Timeout, "refresh.timeout"); err != nil {
		return err
	}
	if err := setDuration(&cfg.DetailsInterval, f.Refresh.DetailsInterval, "refresh.detailsInterval"); err != nil {
		return err
	}

	setString(&cfg.URA.AccessKey, f.URA.AccessKey)
	setString(&cfg.URA.BaseURL, f.URA.BaseURL)
	setInt(&cfg.URA.Retries, f.URA.Retries)
	if err := setDuration(&cfg.URA.Timeout, f.URA.Timeout, "ura.timeout"); err != nil {
		return err
	}
	if err := setDuration(&cfg.URA.Backoff, f.URA.Backoff, "ura.backoff"); err != nil {
		return err
	}

	setString(&cfg.DataMall.AccountKey, f.DataMall.AccountKey)
	setString(&cfg.DataMall.BaseURL, f.DataMall.BaseURL)
	setString(&cfg.DataMall.Agency, f.DataMall.Agency)
	setInt(&cfg.DataMall.Retries, f.DataMall.Retries)
	if err := setDuration(&cfg.DataMall.Timeout, f.DataMall.Timeout, "datamall.timeout"); err != nil {
		return err
	}
	if err := setDuration(&cfg.DataMall.Backoff, f.DataMall.Backoff, "datamall.backoff"); err != nil {
		return err
	}

	setString(&cfg.Redis.Addr, f.Redis.Addr)
	setString(&cfg.Redis.Password, f.Redis.Password)
	setInt(&cfg.Redis.DB, f.Redis.DB)
	if err := setDuration(&cfg.Redis.TTL, f.Redis.TTL, "redis.ttl"); err != nil {
		return err
	}

	setString(&cfg.Store.Path, f.Store.Path)
	if err := setDuration(&cfg.Store.Retention, f.Store.Retention, "store.retention"); err != nil {
		return err
	}

	setString(&cfg.State.Dir, f.State.Dir)
	setBool(&cfg.State.InMemory, f.State.InMemory)

	if len(f.Feed.Brokers) > 0 {
		cfg.Feed.Brokers = f.Feed.Brokers
	}
	setString(&cfg.Feed.Topic, f.Feed.Topic)

	setString(&cfg.Export.Dir, f.Export.Dir)

	setBool(&cfg.Telemetry.Enabled, f.Telemetry.Enabled)
	setString(&cfg.Telemetry.Environment, f.Telemetry.Environment)
	setString(&cfg.Telemetry.Exporter, f.Telemetry.Exporter)
	setString(&cfg.Telemetry.Endpoint, f.Telemetry.Endpoint)
	if f.Telemetry.SamplingRate != nil {
		cfg.Telemetry.SamplingRate = *f.Telemetry.SamplingRate
	}

	return nil
}

// mergeEnvConfig applies environment overrides, the highest precedence.
func mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = ParseString("PARKING_DATA_DIR", cfg.DataDir)
	cfg.LogLevel = ParseString("PARKING_LOG_LEVEL", cfg.LogLevel)
	cfg.Listen = ParseString("PARKING_LISTEN", cfg.Listen)
	cfg.MetricsListen = ParseString("PARKING_METRICS_LISTEN", cfg.MetricsListen)

	cfg.APIToken = ParseString("PARKING_API_TOKEN", cfg.APIToken)
	cfg.AuthAnonymous = ParseBool("PARKING_AUTH_ANONYMOUS", cfg.AuthAnonymous)

	cfg.RateLimitEnabled = ParseBool("PARKING_RATE_LIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitRPS = ParseInt("PARKING_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = ParseInt("PARKING_RATE_LIMIT_BURST", cfg.RateLimitBurst)

	cfg.RefreshInterval = ParseDuration("PARKING_REFRESH_INTERVAL", cfg.RefreshInterval)
	cfg.RefreshJitter = ParseDuration("PARKING_REFRESH_JITTER", cfg.RefreshJitter)
	cfg.RefreshTimeout = ParseDuration("PARKING_REFRESH_TIMEOUT", cfg.RefreshTimeout)
	cfg.DetailsInterval = ParseDuration("PARKING_DETAILS_INTERVAL", cfg.DetailsInterval)

	cfg.URA.AccessKey = ParseString("PARKING_URA_ACCESS_KEY", cfg.URA.AccessKey)
	cfg.URA.BaseURL = ParseString("PARKING_URA_BASE_URL", cfg.URA.BaseURL)
	cfg.URA.Timeout = ParseDuration("PARKING_URA_TIMEOUT", cfg.URA.Timeout)
	cfg.URA.Retries = ParseInt("PARKING_URA_RETRIES", cfg.URA.Retries)
	cfg.URA.Backoff = ParseDuration("PARKING_URA_BACKOFF", cfg.URA.Backoff)

	cfg.DataMall.AccountKey = ParseString("PARKING_DATAMALL_ACCOUNT_KEY", cfg.DataMall.AccountKey)
	cfg.DataMall.BaseURL = ParseString("PARKING_DATAMALL_BASE_URL", cfg.DataMall.BaseURL)
	cfg.DataMall.Timeout = ParseDuration("PARKING_DATAMALL_TIMEOUT", cfg.DataMall.Timeout)
	cfg.DataMall.Retries = ParseInt("PARKING_DATAMALL_RETRIES", cfg.DataMall.Retries)
	cfg.DataMall.Backoff = ParseDuration("PARKING_DATAMALL_BACKOFF", cfg.DataMall.Backoff)
	cfg.DataMall.Agency = ParseString("PARKING_DATAMALL_AGENCY", cfg.DataMall.Agency)

	cfg.Redis.Addr = ParseString("PARKING_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = ParseString("PARKING_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = ParseInt("PARKING_REDIS_DB", cfg.Redis.DB)
	cfg.Redis.TTL = ParseDuration("PARKING_CACHE_TTL", cfg.Redis.TTL)

	cfg.Store.Path = ParseString("PARKING_DB_PATH", cfg.Store.Path)
	cfg.Store.Retention = ParseDuration("PARKING_DB_RETENTION", cfg.Store.Retention)

	cfg.State.Dir = ParseString("PARKING_STATE_DIR", cfg.State.Dir)
	cfg.State.InMemory = ParseBool("PARKING_STATE_IN_MEMORY", cfg.State.InMemory)

	cfg.Feed.Brokers = ParseStringSlice("PARKING_KAFKA_BROKERS", cfg.Feed.Brokers)
	cfg.Feed.Topic = ParseString("PARKING_KAFKA_TOPIC", cfg.Feed.Topic)

	cfg.Export.Dir = ParseString("PARKING_EXPORT_DIR", cfg.Export.Dir)

	cfg.Telemetry.Enabled = ParseBool("PARKING_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Environment = ParseString("PARKING_OTEL_ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.Exporter = ParseString("PARKING_OTEL_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString("PARKING_OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat("PARKING_OTEL_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v, field string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %q", field, v)
	}
	*dst = d
	return nil
}

// resolveUnder joins a relative path under base; absolute paths and
// empty strings pass through.
func resolveUnder(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

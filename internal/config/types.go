// Package config loads service configuration with the precedence
// defaults -> YAML file -> environment, validates the result and
// supports atomic hot reloading.
package config

import "time"

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version  string
	DataDir  string
	LogLevel string

	// API server
	Listen        string // API listen address, e.g. ":8080"
	MetricsListen string // metrics listen address ("" = metrics served on API listener)
	APIToken      string // optional: required for mutating endpoints when set
	AuthAnonymous bool   // explicitly allow unauthenticated access when no token is set

	// Rate limiting
	RateLimitEnabled bool
	RateLimitRPS     int
	RateLimitBurst   int

	// Refresh pipeline
	RefreshInterval time.Duration // scheduler period
	RefreshJitter   time.Duration // random delay added per cycle
	RefreshTimeout  time.Duration // per-cycle deadline
	DetailsInterval time.Duration // how often carpark details are re-fetched

	URA       URAConfig
	DataMall  DataMallConfig
	Redis     RedisConfig
	Store     StoreConfig
	State     StateConfig
	Feed      FeedConfig
	Export    ExportConfig
	Telemetry TelemetryConfig
}

// TelemetryConfig holds OpenTelemetry tracing configuration. Tracing is
// disabled unless Enabled is set.
type TelemetryConfig struct {
	Enabled      bool
	Environment  string
	Exporter     string // "grpc" or "http"
	Endpoint     string
	SamplingRate float64
}

// URAConfig holds URA Data Service client configuration. The source is
// enabled when AccessKey is set.
type URAConfig struct {
	AccessKey string
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
}

// Enabled reports whether the URA source is configured.
func (c URAConfig) Enabled() bool { return c.AccessKey != "" }

// DataMallConfig holds LTA DataMall client configuration. The source is
// enabled when AccountKey is set.
type DataMallConfig struct {
	AccountKey string
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	Backoff    time.Duration
	Agency     string // optional: keep only rows from this agency
}

// Enabled reports whether the DataMall source is configured.
func (c DataMallConfig) Enabled() bool { return c.AccountKey != "" }

// RedisConfig holds the availability cache configuration. The cache is
// disabled when Addr is empty.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// StoreConfig holds the SQLite details-store configuration.
type StoreConfig struct {
	Path      string        // database file; resolved under DataDir when relative
	Retention time.Duration // availability history retention window
}

// StateConfig holds the Badger checkpoint-store configuration.
type StateConfig struct {
	Dir      string // state directory; resolved under DataDir when relative
	InMemory bool   // keep state in memory only (tests, one-shot runs)
}

// FeedConfig holds the Kafka refresh-event publisher configuration.
// Publishing is disabled when Brokers is empty.
type FeedConfig struct {
	Brokers []string
	Topic   string
}

// ExportConfig holds the snapshot/CSV artifact writer configuration.
type ExportConfig struct {
	Dir string // artifact directory; resolved under DataDir when relative
}

// FileConfig mirrors AppConfig for strict YAML parsing. Pointer fields
// distinguish "not set" from explicit zero values; durations are Go
// duration strings.
type FileConfig struct {
	DataDir  string `yaml:"dataDir,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`
	Listen   string `yaml:"listen,omitempty"`

	API     APIFileConfig     `yaml:"api,omitempty"`
	Metrics MetricsFileConfig `yaml:"metrics,omitempty"`
	Refresh RefreshFileConfig `yaml:"refresh,omitempty"`

	URA       URAFileConfig       `yaml:"ura,omitempty"`
	DataMall  DataMallFileConfig  `yaml:"datamall,omitempty"`
	Redis     RedisFileConfig     `yaml:"redis,omitempty"`
	Store     StoreFileConfig     `yaml:"store,omitempty"`
	State     StateFileConfig     `yaml:"state,omitempty"`
	Feed      FeedFileConfig      `yaml:"feed,omitempty"`
	Export    ExportFileConfig    `yaml:"export,omitempty"`
	Telemetry TelemetryFileConfig `yaml:"telemetry,omitempty"`
}

// TelemetryFileConfig holds tracing settings.
type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Environment  string   `yaml:"environment,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"` // "grpc" or "http"
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}

// APIFileConfig holds API server settings.
type APIFileConfig struct {
	Token     string               `yaml:"token,omitempty"`
	Anonymous *bool                `yaml:"anonymous,omitempty"`
	RateLimit *RateLimitFileConfig `yaml:"rateLimit,omitempty"`
}

// RateLimitFileConfig holds rate limiter settings.
type RateLimitFileConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	RPS     *int  `yaml:"rps,omitempty"`
	Burst   *int  `yaml:"burst,omitempty"`
}

// MetricsFileConfig holds the metrics listener settings.
type MetricsFileConfig struct {
	Listen string `yaml:"listen,omitempty"`
}

// RefreshFileConfig holds scheduler settings.
type RefreshFileConfig struct {
	Interval        string `yaml:"interval,omitempty"`        // e.g. "5m"
	Jitter          string `yaml:"jitter,omitempty"`          // e.g. "30s"
	Timeout         string `yaml:"timeout,omitempty"`         // e.g. "2m"
	DetailsInterval string `yaml:"detailsInterval,omitempty"` // e.g. "12h"
}

// URAFileConfig holds URA client settings.
type URAFileConfig struct {
	AccessKey string `yaml:"accessKey,omitempty"`
	BaseURL   string `yaml:"baseUrl,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"` // e.g. "15s"
	Retries   *int   `yaml:"retries,omitempty"`
	Backoff   string `yaml:"backoff,omitempty"` // e.g. "500ms"
}

// DataMallFileConfig holds DataMall client settings.
type DataMallFileConfig struct {
	AccountKey string `yaml:"accountKey,omitempty"`
	BaseURL    string `yaml:"baseUrl,omitempty"`
	Timeout    string `yaml:"timeout,omitempty"`
	Retries    *int   `yaml:"retries,omitempty"`
	Backoff    string `yaml:"backoff,omitempty"`
	Agency     string `yaml:"agency,omitempty"`
}

// RedisFileConfig holds cache settings.
type RedisFileConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       *int   `yaml:"db,omitempty"`
	TTL      string `yaml:"ttl,omitempty"` // e.g. "5m"
}

// StoreFileConfig holds SQLite settings.
type StoreFileConfig struct {
	Path      string `yaml:"path,omitempty"`
	Retention string `yaml:"retention,omitempty"` // e.g. "168h"
}

// StateFileConfig holds Badger settings.
type StateFileConfig struct {
	Dir      string `yaml:"dir,omitempty"`
	InMemory *bool  `yaml:"inMemory,omitempty"`
}

// FeedFileConfig holds Kafka publisher settings.
type FeedFileConfig struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty"`
}

// ExportFileConfig holds artifact writer settings.
type ExportFileConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

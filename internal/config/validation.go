package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Validate checks a resolved configuration for internal consistency.
// It returns the first problem found; a nil error means the config is
// safe to run with.
func Validate(cfg AppConfig) error {
	if err := validateListen(cfg.Listen, "listen"); err != nil {
		return err
	}
	if cfg.MetricsListen != "" {
		if err := validateListen(cfg.MetricsListen, "metrics listen"); err != nil {
			return err
		}
		if cfg.MetricsListen == cfg.Listen {
			return fmt.Errorf("metrics listen address %q collides with API listen address", cfg.MetricsListen)
		}
	}

	if !cfg.URA.Enabled() && !cfg.DataMall.Enabled() {
		return fmt.Errorf("no upstream source configured: set PARKING_URA_ACCESS_KEY and/or PARKING_DATAMALL_ACCOUNT_KEY")
	}
	if cfg.URA.Enabled() {
		if err := validateBaseURL(cfg.URA.BaseURL, "ura.baseUrl"); err != nil {
			return err
		}
		if err := validateClient(cfg.URA.Timeout, cfg.URA.Retries, cfg.URA.Backoff, "ura"); err != nil {
			return err
		}
	}
	if cfg.DataMall.Enabled() {
		if err := validateBaseURL(cfg.DataMall.BaseURL, "datamall.baseUrl"); err != nil {
			return err
		}
		if err := validateClient(cfg.DataMall.Timeout, cfg.DataMall.Retries, cfg.DataMall.Backoff, "datamall"); err != nil {
			return err
		}
	}

	if cfg.RefreshInterval < 30*time.Second {
		return fmt.Errorf("refresh interval %s is below the 30s minimum", cfg.RefreshInterval)
	}
	if cfg.RefreshJitter < 0 || cfg.RefreshJitter >= cfg.RefreshInterval {
		return fmt.Errorf("refresh jitter %s must be in [0, interval)", cfg.RefreshJitter)
	}
	if cfg.RefreshTimeout <= 0 {
		return fmt.Errorf("refresh timeout must be positive, got %s", cfg.RefreshTimeout)
	}
	if cfg.DetailsInterval < cfg.RefreshInterval {
		return fmt.Errorf("details interval %s must be at least the refresh interval %s", cfg.DetailsInterval, cfg.RefreshInterval)
	}

	if cfg.Redis.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Redis.Addr); err != nil {
			return fmt.Errorf("invalid redis address %q: %w", cfg.Redis.Addr, err)
		}
		if cfg.Redis.DB < 0 || cfg.Redis.DB > 15 {
			return fmt.Errorf("redis db %d out of range [0,15]", cfg.Redis.DB)
		}
		if cfg.Redis.TTL <= 0 {
			return fmt.Errorf("cache ttl must be positive, got %s", cfg.Redis.TTL)
		}
	}

	if cfg.Store.Retention <= 0 {
		return fmt.Errorf("store retention must be positive, got %s", cfg.Store.Retention)
	}

	if len(cfg.Feed.Brokers) > 0 {
		if strings.TrimSpace(cfg.Feed.Topic) == "" {
			return fmt.Errorf("feed topic required when brokers are configured")
		}
		for _, b := range cfg.Feed.Brokers {
			if _, _, err := net.SplitHostPort(b); err != nil {
				return fmt.Errorf("invalid kafka broker %q: %w", b, err)
			}
		}
	}

	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Exporter != "grpc" && cfg.Telemetry.Exporter != "http" {
			return fmt.Errorf("telemetry exporter must be grpc or http, got %q", cfg.Telemetry.Exporter)
		}
		if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
			return fmt.Errorf("telemetry endpoint required when tracing is enabled")
		}
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			return fmt.Errorf("telemetry sampling rate %v out of range [0,1]", cfg.Telemetry.SamplingRate)
		}
	}

	if cfg.RateLimitEnabled {
		if cfg.RateLimitRPS <= 0 {
			return fmt.Errorf("rate limit rps must be positive, got %d", cfg.RateLimitRPS)
		}
		if cfg.RateLimitBurst < cfg.RateLimitRPS {
			return fmt.Errorf("rate limit burst %d must be >= rps %d", cfg.RateLimitBurst, cfg.RateLimitRPS)
		}
	}

	return nil
}

func validateListen(addr, what string) error {
	if addr == "" {
		return fmt.Errorf("%s address must not be empty", what)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid %s address %q: %w", what, addr, err)
	}
	return nil
}

func validateBaseURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q: scheme must be http or https", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s %q: missing host", field, raw)
	}
	return nil
}

func validateClient(timeout time.Duration, retries int, backoff time.Duration, which string) error {
	if timeout <= 0 {
		return fmt.Errorf("%s timeout must be positive, got %s", which, timeout)
	}
	if retries < 0 || retries > 10 {
		return fmt.Errorf("%s retries %d out of range [0,10]", which, retries)
	}
	if backoff < 0 {
		return fmt.Errorf("%s backoff must not be negative, got %s", which, backoff)
	}
	return nil
}

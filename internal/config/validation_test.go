package config

import (
	"strings"
	"testing"
	"time"
)

// validConfig returns a config that passes validation; tests mutate
// single fields to probe individual rules.
func validConfig() AppConfig {
	cfg := defaults()
	cfg.URA.AccessKey = "key"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *AppConfig) {},
		},
		{
			name:    "empty listen",
			mutate:  func(c *AppConfig) { c.Listen = "" },
			wantErr: "listen address",
		},
		{
			name:    "listen without port",
			mutate:  func(c *AppConfig) { c.Listen = "localhost" },
			wantErr: "invalid listen address",
		},
		{
			name: "metrics collides with api",
			mutate: func(c *AppConfig) {
				c.MetricsListen = c.Listen
			},
			wantErr: "collides",
		},
		{
			name:    "no source",
			mutate:  func(c *AppConfig) { c.URA.AccessKey = "" },
			wantErr: "no upstream source",
		},
		{
			name:    "bad ura url",
			mutate:  func(c *AppConfig) { c.URA.BaseURL = "ftp://ura.gov.sg" },
			wantErr: "scheme must be http or https",
		},
		{
			name: "bad datamall url",
			mutate: func(c *AppConfig) {
				c.DataMall.AccountKey = "k"
				c.DataMall.BaseURL = "://bad"
			},
			wantErr: "datamall.baseUrl",
		},
		{
			name:    "interval too small",
			mutate:  func(c *AppConfig) { c.RefreshInterval = 5 * time.Second },
			wantErr: "below the 30s minimum",
		},
		{
			name:    "jitter exceeds interval",
			mutate:  func(c *AppConfig) { c.RefreshJitter = c.RefreshInterval },
			wantErr: "jitter",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *AppConfig) { c.RefreshTimeout = 0 },
			wantErr: "refresh timeout",
		},
		{
			name:    "details interval below refresh interval",
			mutate:  func(c *AppConfig) { c.DetailsInterval = time.Minute },
			wantErr: "details interval",
		},
		{
			name:    "redis addr without port",
			mutate:  func(c *AppConfig) { c.Redis.Addr = "localhost" },
			wantErr: "invalid redis address",
		},
		{
			name: "redis db out of range",
			mutate: func(c *AppConfig) {
				c.Redis.Addr = "localhost:6379"
				c.Redis.DB = 16
			},
			wantErr: "redis db",
		},
		{
			name:    "negative retries",
			mutate:  func(c *AppConfig) { c.URA.Retries = -1 },
			wantErr: "retries",
		},
		{
			name:    "zero retention",
			mutate:  func(c *AppConfig) { c.Store.Retention = 0 },
			wantErr: "retention",
		},
		{
			name: "brokers without topic",
			mutate: func(c *AppConfig) {
				c.Feed.Brokers = []string{"localhost:9092"}
				c.Feed.Topic = " "
			},
			wantErr: "feed topic required",
		},
		{
			name: "bad broker address",
			mutate: func(c *AppConfig) {
				c.Feed.Brokers = []string{"localhost"}
			},
			wantErr: "invalid kafka broker",
		},
		{
			name: "rate limit burst below rps",
			mutate: func(c *AppConfig) {
				c.RateLimitEnabled = true
				c.RateLimitRPS = 50
				c.RateLimitBurst = 10
			},
			wantErr: "burst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

// Package ura fetches carpark availability and detail records from the
// URA Data Service. Requests authenticate with a long-lived access key
// plus a daily token the client obtains lazily and caches until the
// Singapore calendar day rolls over.
package ura

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/log"
	"github.com/zeecm/parking/internal/metrics"
	"github.com/zeecm/parking/internal/resilience"
)

const (
	tokenPath  = "/uraDataService/insertNewToken.action"
	invokePath = "/uraDataService/invokeUraDS"

	serviceAvailability = "Car_Park_Availability"
	serviceDetails      = "Car_Park_Details"

	statusSuccess = "Success"

	// URA rejects requests that do not look like a browser.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/106.0.0.0 Safari/537.36"
)

// Tokens are issued per calendar day, Singapore time.
var sgt = time.FixedZone("SGT", 8*60*60)

// Options configures the URA client behavior.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	Backoff        time.Duration
	MaxBackoff     time.Duration
	RateLimit      rate.Limit
	RateLimitBurst int
	Breaker        *resilience.CircuitBreaker
}

const (
	defaultTimeout        = 15 * time.Second
	defaultRetries        = 3
	defaultBackoff        = 500 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultRateLimit      = 5
	defaultRateLimitBurst = 5
)

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	return opts
}

// Client calls the URA Data Service.
type Client struct {
	base       string
	accessKey  string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	breaker    *resilience.CircuitBreaker
	rnd        *rand.Rand
	rndMu      sync.Mutex
	now        func() time.Time

	mu       sync.Mutex
	token    string
	tokenDay string
}

// New creates a URA Data Service client for the given base URL and
// access key.
func New(baseURL, accessKey string, opts Options) *Client {
	opts = normalizeOptions(opts)
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		base:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		accessKey: accessKey,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		limiter:    rate.NewLimiter(opts.RateLimit, opts.RateLimitBurst),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		maxBackoff: opts.MaxBackoff,
		breaker:    opts.Breaker,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
		now:        time.Now,
	}
}

// Name identifies this source in logs, metrics and merge precedence.
func (c *Client) Name() string { return "ura" }

// Fetch retrieves the current availability snapshot and converts it to
// the domain model.
func (c *Client) Fetch(ctx context.Context) (carpark.Availability, error) {
	fetchedAt := c.now().UTC()
	rows, err := c.CarParkAvailability(ctx)
	if err != nil {
		return carpark.Availability{}, err
	}
	lots := make([]carpark.Lot, 0, len(rows))
	for _, r := range rows {
		lots = append(lots, r.Lots()...)
	}
	metrics.SetRecordsFetched("ura", len(rows))
	return carpark.Availability{Source: "ura", FetchedAt: fetchedAt, Lots: lots}, nil
}

// Token returns a token valid for the current Singapore day,
// requesting a fresh one when needed.
func (c *Client) Token(ctx context.Context) (string, error) {
	return c.ensureToken(ctx)
}

// CarParkAvailability returns the raw Car_Park_Availability rows.
func (c *Client) CarParkAvailability(ctx context.Context) ([]AvailabilityRow, error) {
	var rows []AvailabilityRow
	if err := c.invoke(ctx, serviceAvailability, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CarParkDetails returns the raw Car_Park_Details rows.
func (c *Client) CarParkDetails(ctx context.Context) ([]DetailRow, error) {
	var rows []DetailRow
	if err := c.invoke(ctx, serviceDetails, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Details retrieves carpark detail records converted to the domain
// model.
func (c *Client) Details(ctx context.Context) ([]carpark.Detail, error) {
	rows, err := c.CarParkDetails(ctx)
	if err != nil {
		return nil, err
	}
	details := make([]carpark.Detail, 0, len(rows))
	for _, r := range rows {
		details = append(details, r.Detail())
	}
	return details, nil
}

func (c *Client) invoke(ctx context.Context, service string, v any) error {
	op := "invokeUraDS/" + service

	refreshed := false
	for {
		token, err := c.ensureToken(ctx)
		if err != nil {
			return err
		}

		env, err := c.getEnvelope(ctx, c.base+invokePath+"?service="+url.QueryEscape(service), token, op)
		if err != nil {
			return err
		}

		if env.Status != statusSuccess {
			// A stale daily token comes back as a failed envelope, not
			// an HTTP error. Refresh once before giving up.
			if !refreshed && strings.Contains(strings.ToLower(env.Message), "token") {
				c.invalidateToken()
				refreshed = true
				continue
			}
			return &APIError{Sentinel: ErrRequestRejected, Operation: op, Message: env.Message}
		}

		if len(env.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Result, v); err != nil {
			return &APIError{Sentinel: ErrBadResponse, Operation: op, Err: err}
		}
		return nil
	}
}

// ensureToken returns a token valid for the current Singapore day,
// requesting a fresh one when the cached token has rolled over.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	day := c.now().In(sgt).Format("2006-01-02")
	if c.token != "" && c.tokenDay == day {
		return c.token, nil
	}

	token, err := c.fetchToken(ctx)
	metrics.RecordTokenRefresh(err)
	if err != nil {
		return "", err
	}

	c.token = token
	c.tokenDay = day
	logger := log.WithComponent("ura")
	logger.Info().
		Str(log.FieldEvent, "ura.token.refreshed").
		Msg("daily token obtained")
	return token, nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	const op = "insertNewToken"

	env, err := c.getEnvelope(ctx, c.base+tokenPath, "", op)
	if err != nil {
		return "", err
	}
	if env.Status != statusSuccess {
		return "", &APIError{Sentinel: ErrAuthFailed, Operation: op, Message: env.Message}
	}

	var token string
	if err := json.Unmarshal(env.Result, &token); err != nil {
		return "", &APIError{Sentinel: ErrBadResponse, Operation: op, Err: err}
	}
	if token == "" {
		return "", &APIError{Sentinel: ErrAuthFailed, Operation: op, Message: "empty token in response"}
	}
	return token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.tokenDay = ""
}

// getEnvelope performs a GET with retries and decodes the response
// envelope. The circuit breaker, when configured, sees one failure per
// exhausted call rather than one per attempt.
func (c *Client) getEnvelope(ctx context.Context, rawURL, token, op string) (*envelope, error) {
	if c.breaker == nil {
		return c.fetchEnvelope(ctx, rawURL, token, op)
	}
	var env *envelope
	err := c.breaker.Execute(func() error {
		var ferr error
		env, ferr = c.fetchEnvelope(ctx, rawURL, token, op)
		return ferr
	})
	return env, err
}

func (c *Client) fetchEnvelope(ctx context.Context, rawURL, token, op string) (*envelope, error) {
	maxAttempts := c.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.RecordUpstreamRetry("ura", op)
			if err := sleepWithContext(ctx, c.backoffFor(attempt-2)); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		c.applyHeaders(req, token)

		start := time.Now()
		resp, err := c.http.Do(req)
		duration := time.Since(start)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		metrics.ObserveUpstreamRequest("ura", op, status, duration)

		if err != nil {
			sentinel := ErrUpstreamUnavailable
			if errors.Is(err, context.DeadlineExceeded) {
				sentinel = ErrTimeout
			}
			lastErr = &APIError{Sentinel: sentinel, Operation: op, Err: err}
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		env, retry, derr := decodeEnvelope(resp, op)
		if derr == nil {
			return env, nil
		}
		lastErr = derr
		if !retry {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// decodeEnvelope consumes and closes the body. retry reports whether
// the failure class is worth another attempt.
func decodeEnvelope(resp *http.Response, op string) (env *envelope, retry bool, err error) {
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		var e envelope
		if derr := json.NewDecoder(resp.Body).Decode(&e); derr != nil {
			return nil, false, &APIError{Sentinel: ErrBadResponse, Operation: op, Status: resp.StatusCode, Err: derr}
		}
		return &e, false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, &APIError{Sentinel: ErrAuthFailed, Operation: op, Status: resp.StatusCode}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, &APIError{Sentinel: ErrUpstreamError, Operation: op, Status: resp.StatusCode}
	default:
		return nil, false, &APIError{Sentinel: ErrRequestRejected, Operation: op, Status: resp.StatusCode}
	}
}

func (c *Client) applyHeaders(req *http.Request, token string) {
	req.Header.Set("AccessKey", c.accessKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Token", token)
	}
}

func (c *Client) backoffFor(attempt int) time.Duration {
	wait := c.backoff * time.Duration(1<<attempt)
	if wait > c.maxBackoff {
		wait = c.maxBackoff
	}
	jitter := time.Duration(c.randInt63n(int64(wait/5 + 1)))
	return wait + jitter
}

func (c *Client) randInt63n(n int64) int64 {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.rnd.Int63n(n)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

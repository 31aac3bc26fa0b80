// Package datamall fetches carpark availability from the LTA DataMall
// OData service. DataMall aggregates LTA, HDB and URA counts; the
// client can keep all agencies or filter to one.
package datamall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/metrics"
	"github.com/zeecm/parking/internal/resilience"
)

const (
	availabilityPath = "/ltaodataservice/CarParkAvailabilityv2"

	// DataMall returns at most 500 rows per call; the rest is paged
	// with $skip.
	pageSize = 500
)

var (
	ErrAuthFailed          = errors.New("datamall: account key rejected")
	ErrUpstreamUnavailable = errors.New("datamall: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("datamall: internal error (5xx)")
	ErrBadResponse         = errors.New("datamall: invalid response format")
)

// Options configures the DataMall client behavior.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	Backoff        time.Duration
	MaxBackoff     time.Duration
	RateLimit      rate.Limit
	RateLimitBurst int
	Agency         string // keep only rows from this agency, empty keeps all
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

// Client calls the LTA DataMall OData service.
type Client struct {
	base       string
	accountKey string
	agency     string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	breaker    *resilience.CircuitBreaker
	rnd        *rand.Rand
	rndMu      sync.Mutex
	now        func() time.Time
}

// New creates a DataMall client for the given base URL and account key.
func New(baseURL, accountKey string, opts Options) *Client {
	opts = normalizeOptions(opts)
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		base:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		accountKey: accountKey,
		agency:     strings.ToUpper(strings.TrimSpace(opts.Agency)),
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
func (c *Client) Name() string { return "datamall" }

// Fetch retrieves all availability pages and converts them to the
// domain model, applying the agency filter when one is configured.
func (c *Client) Fetch(ctx context.Context) (carpark.Availability, error) {
	fetchedAt := c.now().UTC()
	rows, err := c.CarParkAvailability(ctx)
	if err != nil {
		return carpark.Availability{}, err
	}

	lots := make([]carpark.Lot, 0, len(rows))
	for _, r := range rows {
		if c.agency != "" && !strings.EqualFold(r.Agency, c.agency) {
			continue
		}
		lots = append(lots, r.Lot())
	}
	metrics.SetRecordsFetched("datamall", len(rows))
	return carpark.Availability{Source: "datamall", FetchedAt: fetchedAt, Lots: lots}, nil
}

// CarParkAvailability returns all raw rows across every page.
func (c *Client) CarParkAvailability(ctx context.Context) ([]CarParkRow, error) {
	var all []CarParkRow
	for skip := 0; ; skip += pageSize {
		page, err := c.page(ctx, skip)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func (c *Client) page(ctx context.Context, skip int) ([]CarParkRow, error) {
	rawURL := c.base + availabilityPath
	if skip > 0 {
		rawURL += "?$skip=" + strconv.Itoa(skip)
	}

	if c.breaker == nil {
		return c.fetchPage(ctx, rawURL)
	}
	var rows []CarParkRow
	err := c.breaker.Execute(func() error {
		var ferr error
		rows, ferr = c.fetchPage(ctx, rawURL)
		return ferr
	})
	return rows, err
}

func (c *Client) fetchPage(ctx context.Context, rawURL string) ([]CarParkRow, error) {
	const op = "CarParkAvailabilityv2"
	maxAttempts := c.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.RecordUpstreamRetry("datamall", op)
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
		req.Header.Set("AccountKey", c.accountKey)
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.http.Do(req)
		duration := time.Since(start)

		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		metrics.ObserveUpstreamRequest("datamall", op, status, duration)

		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		rows, retry, derr := decodePage(resp)
		if derr == nil {
			return rows, nil
		}
		lastErr = derr
		if !retry {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

func decodePage(resp *http.Response) (rows []CarParkRow, retry bool, err error) {
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		var payload availabilityResponse
		if derr := json.NewDecoder(resp.Body).Decode(&payload); derr != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrBadResponse, derr)
		}
		return payload.Value, false, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("%w (HTTP %d)", ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("%w (HTTP %d)", ErrUpstreamError, resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("%w: unexpected status %d", ErrBadResponse, resp.StatusCode)
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

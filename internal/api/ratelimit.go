package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// rateLimit returns an httprate sliding-window limiter keyed by client
// IP, answering 429 JSON with a Retry-After hint.
func rateLimit(requestLimit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestLimit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded","detail":"Too many requests. Please try again later."}`))
		}),
	)
}

// refreshRateLimit guards the expensive refresh trigger. Refreshes run
// on a schedule anyway, so manual triggers are capped tightly.
func refreshRateLimit() func(http.Handler) http.Handler {
	return rateLimit(10, time.Minute)
}

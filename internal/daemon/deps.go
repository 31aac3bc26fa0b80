package daemon

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Deps contains the collaborators the daemon Manager serves.
type Deps struct {
	// Logger is the structured logger for the daemon.
	Logger zerolog.Logger

	// APIHandler is the HTTP handler for the API server.
	APIHandler http.Handler

	// MetricsHandler serves Prometheus metrics on the dedicated
	// metrics listener. Nil when metrics are served on the API
	// listener (or disabled).
	MetricsHandler http.Handler
}

// Validate checks that the required dependencies are present.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zeecm/parking/internal/log"
)

// Sentinel errors surfaced as HTTP problem responses.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrSnapshotUnavailable = errors.New("no availability snapshot yet")
	ErrRefreshBusy         = errors.New("refresh already in progress")
	ErrStoreUnavailable    = errors.New("detail store not configured")
)

// problem is the JSON error payload shared by every error response.
type problem struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponent("api")
		logger.Error().Err(err).
			Str("event", "api.encode_failed").
			Msg("failed to encode response")
	}
}

// respondError writes the error as a problem JSON payload, carrying the
// request ID for correlation.
func respondError(w http.ResponseWriter, r *http.Request, code int, err error) {
	p := problem{
		Error:     http.StatusText(code),
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	if err != nil {
		p.Detail = err.Error()
	}
	writeJSON(w, code, p)
}

package ura

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrAuthFailed          = errors.New("ura: authentication rejected")
	ErrUpstreamUnavailable = errors.New("ura: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("ura: internal error (5xx)")
	ErrBadResponse         = errors.New("ura: invalid response format or malformed data")
	ErrRequestRejected     = errors.New("ura: request rejected by data service")
	ErrTimeout             = errors.New("ura: request timed out")
)

// APIError wraps a sentinel with the call context needed to debug a
// failed data service request.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Message   string
	Err       error // nested lower-level error (e.g. net.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the service.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Upstream fetch attributes
	FetchSourceKey   = "fetch.source"
	FetchEndpointKey = "fetch.endpoint"
	FetchRecordsKey  = "fetch.records"
	FetchAttemptKey  = "fetch.attempt"

	// Refresh cycle attributes
	RefreshIDKey      = "refresh.id"
	RefreshOutcomeKey = "refresh.outcome"
	RefreshLotsKey    = "refresh.lots"
	RefreshSourcesKey = "refresh.sources"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// FetchAttributes creates upstream-fetch span attributes.
func FetchAttributes(source, endpoint string, records, attempt int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(FetchSourceKey, source),
		attribute.String(FetchEndpointKey, endpoint),
	}
	if records >= 0 {
		attrs = append(attrs, attribute.Int(FetchRecordsKey, records))
	}
	if attempt > 0 {
		attrs = append(attrs, attribute.Int(FetchAttemptKey, attempt))
	}
	return attrs
}

// RefreshAttributes creates refresh-cycle span attributes.
func RefreshAttributes(refreshID, outcome string, lots, sources int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RefreshIDKey, refreshID),
		attribute.String(RefreshOutcomeKey, outcome),
		attribute.Int(RefreshLotsKey, lots),
		attribute.Int(RefreshSourcesKey, sources),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

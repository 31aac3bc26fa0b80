package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/config"
	"github.com/zeecm/parking/internal/jobs"
)

func TestRequestID_Generated(t *testing.T) {
	s := newTestServer(t, Deps{})

	rec := doRequest(t, s, http.MethodGet, "/api/v1/status")
	id := rec.Header().Get(headerRequestID)
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestRequestID_CallerIDPreserved(t *testing.T) {
	s := newTestServer(t, Deps{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set(headerRequestID, "caller-1")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "caller-1", rec.Header().Get(headerRequestID))
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, Deps{})

	rec := doRequest(t, s, http.MethodGet, "/api/v1/status")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestCORS_Preflight(t *testing.T) {
	s := newTestServer(t, Deps{})

	rec := doRequest(t, s, http.MethodOptions, "/api/v1/availability")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

type panickingCache struct{}

func (panickingCache) GetSnapshot(string) (*carpark.Snapshot, bool) { panic("boom") }
func (panickingCache) GetDetails(string) ([]carpark.Detail, bool)  { panic("boom") }

func TestRecoverer(t *testing.T) {
	s := newTestServer(t, Deps{Cache: panickingCache{}})

	rec := doRequest(t, s, http.MethodGet, "/api/v1/availability")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestRefreshRateLimit(t *testing.T) {
	s := newTestServer(t, Deps{Refresher: &fakeRefresher{result: &jobs.Result{}}}, func(cfg *config.AppConfig) {
		cfg.AuthAnonymous = true
	})
	h := s.Handler()

	var last *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", nil)
		req.RemoteAddr = "198.51.100.7:4242"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
	}

	require.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "rate_limit_exceeded")
}

func TestGlobalRateLimit_Disabled(t *testing.T) {
	s := newTestServer(t, Deps{Cache: &fakeCache{snapshot: testSnapshot()}})
	h := s.Handler()

	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

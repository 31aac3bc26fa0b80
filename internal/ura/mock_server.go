package ura

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockServer provides a configurable URA Data Service mock for
// testing: token issue and rollover, both invokeUraDS services, and
// injectable upstream failures.
type MockServer struct {
	*httptest.Server
	mu           sync.Mutex
	accessKey    string
	token        string
	tokenIssues  int
	availability []AvailabilityRow
	details      []DetailRow
	failures     map[string]int // queued 5xx responses per path
}

// NewMockServer starts a mock with a small realistic dataset.
func NewMockServer() *MockServer {
	m := &MockServer{
		accessKey: "test-access-key",
		failures:  make(map[string]int),
	}
	m.setDefaultData()

	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, m.handleToken)
	mux.HandleFunc(invokePath, m.handleInvoke)
	m.Server = httptest.NewServer(mux)
	return m
}

func (m *MockServer) setDefaultData() {
	m.availability = []AvailabilityRow{
		{
			CarparkNo:     "A0004",
			LotsAvailable: "103",
			LotType:       "C",
			Geometries:    []Geometry{{Coordinates: "28956.4609,29088.2522"}},
		},
		{
			CarparkNo:     "N0006",
			LotsAvailable: "2",
			LotType:       "Y",
			Geometries:    []Geometry{{Coordinates: "29930.895,33994.5587"}},
		},
	}
	m.details = []DetailRow{
		{
			PPCode:        "A0004",
			PPName:        "ALIWAL STREET",
			VehCat:        "Car",
			WeekdayMin:    "30 mins",
			WeekdayRate:   "$0.50",
			SatdayMin:     "30 mins",
			SatdayRate:    "$0.50",
			SunPHMin:      "30 mins",
			SunPHRate:     "$0.50",
			StartTime:     "08.30 AM",
			EndTime:       "05.00 PM",
			ParkingSystem: "B",
			ParkCapacity:  69,
			Geometries:    []Geometry{{Coordinates: "31045.6165,31694.0055"}},
		},
	}
}

// AccessKey returns the key the mock accepts.
func (m *MockServer) AccessKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessKey
}

// SetAvailability replaces the availability dataset.
func (m *MockServer) SetAvailability(rows []AvailabilityRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.availability = rows
}

// SetDetails replaces the detail dataset.
func (m *MockServer) SetDetails(rows []DetailRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.details = rows
}

// SetFailures queues count 5xx responses for a path before requests
// succeed again.
func (m *MockServer) SetFailures(path string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = count
}

// RotateToken invalidates the token currently held by clients, the way
// the real service does at the Singapore day boundary.
func (m *MockServer) RotateToken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token += "-rotated"
}

// TokenIssues reports how many tokens the mock has handed out.
func (m *MockServer) TokenIssues() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenIssues
}

func (m *MockServer) handleToken(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.serveQueuedFailure(tokenPath, w) {
		return
	}
	if r.Header.Get("AccessKey") != m.accessKey {
		writeEnvelope(w, envelope{Status: "Fail", Message: "Invalid access key"})
		return
	}

	m.tokenIssues++
	m.token = fmt.Sprintf("mock-token-%d", m.tokenIssues)
	writeEnvelope(w, successEnvelope(m.token))
}

func (m *MockServer) handleInvoke(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.serveQueuedFailure(invokePath, w) {
		return
	}
	if r.Header.Get("AccessKey") != m.accessKey {
		writeEnvelope(w, envelope{Status: "Fail", Message: "Invalid access key"})
		return
	}
	if m.token == "" || r.Header.Get("Token") != m.token {
		writeEnvelope(w, envelope{Status: "Fail", Message: "Invalid Token"})
		return
	}

	switch r.URL.Query().Get("service") {
	case serviceAvailability:
		writeEnvelope(w, successEnvelope(m.availability))
	case serviceDetails:
		writeEnvelope(w, successEnvelope(m.details))
	default:
		writeEnvelope(w, envelope{Status: "Fail", Message: "Unknown service"})
	}
}

func (m *MockServer) serveQueuedFailure(path string, w http.ResponseWriter) bool {
	if m.failures[path] > 0 {
		m.failures[path]--
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return true
	}
	return false
}

func successEnvelope(result any) envelope {
	raw, _ := json.Marshal(result)
	return envelope{Status: statusSuccess, Result: raw}
}

func writeEnvelope(w http.ResponseWriter, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(env)
}

package datamall

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockServer provides a configurable DataMall mock for testing,
// including $skip pagination and injectable upstream failures.
type MockServer struct {
	*httptest.Server
	mu         sync.Mutex
	accountKey string
	rows       []CarParkRow
	failures   int // queued 5xx responses
	requests   int
}

// NewMockServer starts a mock with a small realistic dataset.
func NewMockServer() *MockServer {
	m := &MockServer{
		accountKey: "test-account-key",
		rows: []CarParkRow{
			{
				CarParkID:     "1",
				Area:          "Marina",
				Development:   "Suntec City",
				Location:      "1.29375 103.85718",
				AvailableLots: 352,
				LotType:       "C",
				Agency:        "LTA",
			},
			{
				CarParkID:     "3",
				Area:          "Orchard",
				Development:   "Orchard Rd",
				Location:      "1.30314 103.83576",
				AvailableLots: 21,
				LotType:       "C",
				Agency:        "LTA",
			},
			{
				CarParkID:     "A11",
				Area:          "",
				Development:   "BLK 101 JALAN DUSUN",
				Location:      "1.32567 103.84100",
				AvailableLots: 82,
				LotType:       "C",
				Agency:        "HDB",
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(availabilityPath, m.handleAvailability)
	m.Server = httptest.NewServer(mux)
	return m
}

// AccountKey returns the key the mock accepts.
func (m *MockServer) AccountKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accountKey
}

// SetRows replaces the dataset.
func (m *MockServer) SetRows(rows []CarParkRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
}

// SetFailures queues count 5xx responses before requests succeed
// again.
func (m *MockServer) SetFailures(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = count
}

// Requests reports how many availability calls the mock served,
// including injected failures.
func (m *MockServer) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests
}

func (m *MockServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++

	if m.failures > 0 {
		m.failures--
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if r.Header.Get("AccountKey") != m.accountKey {
		http.Error(w, `{"fault":{"faultstring":"Invalid Account Key"}}`, http.StatusUnauthorized)
		return
	}

	skip := 0
	if s := r.URL.Query().Get("$skip"); s != "" {
		skip, _ = strconv.Atoi(s)
	}

	page := []CarParkRow{}
	if skip < len(m.rows) {
		end := skip + pageSize
		if end > len(m.rows) {
			end = len(m.rows)
		}
		page = m.rows[skip:end]
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(availabilityResponse{Value: page})
}

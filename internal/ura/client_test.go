package ura

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/resilience"
	"github.com/zeecm/parking/internal/svy21"
)

func newTestClient(mock *MockServer, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.RateLimit == 0 {
		// Keep tests fast; throttling is not under test here.
		opts.RateLimit = 1000
		opts.RateLimitBurst = 1000
	}
	if opts.Backoff == 0 {
		opts.Backoff = time.Millisecond
		opts.MaxBackoff = 2 * time.Millisecond
	}
	return New(mock.URL, mock.AccessKey(), opts)
}

func TestClient_FetchConvertsRows(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	c := newTestClient(mock, Options{})
	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ura", snap.Source)
	assert.False(t, snap.FetchedAt.IsZero())
	require.Len(t, snap.Lots, 2)

	first := snap.Lots[0]
	assert.Equal(t, "A0004", first.CarparkID)
	assert.Equal(t, carpark.AgencyURA, first.Agency)
	assert.Equal(t, carpark.LotTypeCar, first.LotType)
	assert.Equal(t, 103, first.Available)
	require.NotNil(t, first.Position)
	wantLat, wantLon := svy21.ToLatLon(29088.2522, 28956.4609)
	assert.InDelta(t, wantLat, first.Position.Lat, 1e-9)
	assert.InDelta(t, wantLon, first.Position.Lon, 1e-9)

	second := snap.Lots[1]
	assert.Equal(t, "N0006", second.CarparkID)
	assert.Equal(t, carpark.LotTypeMotorcycle, second.LotType)
	assert.Equal(t, 2, second.Available)
}

func TestClient_TokenReusedAcrossCalls(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	c := newTestClient(mock, Options{})
	_, err := c.Fetch(context.Background())
	require.NoError(t, err)
	_, err = c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, mock.TokenIssues())
}

func TestClient_TokenRefreshAfterRollover(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	c := newTestClient(mock, Options{})
	_, err := c.Fetch(context.Background())
	require.NoError(t, err)

	// The service rejects the cached token; the client must obtain a
	// fresh one and replay the call without surfacing an error.
	mock.RotateToken()
	_, err = c.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, mock.TokenIssues())
}

func TestClient_TokenRefreshAtDayBoundary(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	c := newTestClient(mock, Options{})
	day1 := time.Date(2026, 3, 1, 23, 0, 0, 0, sgt)
	c.now = func() time.Time { return day1 }

	_, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, mock.TokenIssues())

	// Crossing midnight in Singapore invalidates the cached token even
	// before the service rejects it.
	c.now = func() time.Time { return day1.Add(2 * time.Hour) }
	_, err = c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, mock.TokenIssues())
}

func TestClient_RetriesUpstreamErrors(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	mock.SetFailures(invokePath, 2)
	c := newTestClient(mock, Options{MaxRetries: 3})

	snap, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Lots, 2)
}

func TestClient_RetriesExhausted(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	mock.SetFailures(invokePath, 10)
	c := newTestClient(mock, Options{MaxRetries: 1})

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamError)
}

func TestClient_AuthFailure(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	c := New(mock.URL, "wrong-key", Options{Timeout: 5 * time.Second, RateLimit: 1000, RateLimitBurst: 1000})
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "insertNewToken", apiErr.Operation)
}

func TestClient_Details(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	c := newTestClient(mock, Options{})
	details, err := c.Details(context.Background())
	require.NoError(t, err)
	require.Len(t, details, 1)

	d := details[0]
	assert.Equal(t, "A0004", d.CarparkID)
	assert.Equal(t, "Aliwal Street", d.Name)
	assert.Equal(t, "Car", d.VehicleCategory)
	assert.Equal(t, "$0.50", d.WeekdayRate)
	assert.Equal(t, "$0.50", d.SaturdayRate)
	assert.Equal(t, "$0.50", d.SundayPHRate)
	assert.Equal(t, 69, d.Capacity)
	require.NotNil(t, d.Position)
	assert.InDelta(t, 1.3, d.Position.Lat, 0.1)
	assert.InDelta(t, 103.85, d.Position.Lon, 0.1)
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	mock := NewMockServer()
	defer mock.Close()

	mock.SetFailures(tokenPath, 10)
	breaker := resilience.NewCircuitBreaker("ura-test", 1, time.Minute)
	c := newTestClient(mock, Options{MaxRetries: 1, Breaker: breaker})

	_, err := c.Fetch(context.Background())
	require.ErrorIs(t, err, ErrUpstreamError)

	// The breaker saw one exhausted call and must now fail fast.
	_, err = c.Fetch(context.Background())
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestAvailabilityRow_Lots(t *testing.T) {
	t.Run("one lot per geometry", func(t *testing.T) {
		row := AvailabilityRow{
			CarparkNo:     "K0022",
			LotsAvailable: "17",
			LotType:       "C",
			Geometries: []Geometry{
				{Coordinates: "28956.4609,29088.2522"},
				{Coordinates: "29930.895,33994.5587"},
			},
		}
		lots := row.Lots()
		require.Len(t, lots, 2)
		assert.Equal(t, lots[0].CarparkID, lots[1].CarparkID)
		assert.Equal(t, 17, lots[0].Available)
		require.NotNil(t, lots[0].Position)
		require.NotNil(t, lots[1].Position)
		assert.NotEqual(t, *lots[0].Position, *lots[1].Position)
	})

	t.Run("no geometry keeps the record without position", func(t *testing.T) {
		row := AvailabilityRow{CarparkNo: "B0001", LotsAvailable: "5", LotType: "H"}
		lots := row.Lots()
		require.Len(t, lots, 1)
		assert.Equal(t, carpark.LotTypeHeavyVehicle, lots[0].LotType)
		assert.Nil(t, lots[0].Position)
	})

	t.Run("unknown lot code passes through", func(t *testing.T) {
		row := AvailabilityRow{CarparkNo: "B0002", LotsAvailable: "1", LotType: "L"}
		lots := row.Lots()
		require.Len(t, lots, 1)
		assert.Equal(t, carpark.LotType("L"), lots[0].LotType)
	})
}

func TestGeometry_Position(t *testing.T) {
	tests := []struct {
		name        string
		coordinates string
		wantNil     bool
	}{
		{name: "valid pair", coordinates: "28956.4609,29088.2522"},
		{name: "valid pair with spaces", coordinates: "28956.4609, 29088.2522"},
		{name: "empty", coordinates: "", wantNil: true},
		{name: "single value", coordinates: "28956.4609", wantNil: true},
		{name: "non numeric", coordinates: "x,y", wantNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := Geometry{Coordinates: tt.coordinates}.Position()
			if tt.wantNil {
				assert.Nil(t, pos)
				return
			}
			require.NotNil(t, pos)
			// Anything we feed the projection here sits inside Singapore.
			assert.InDelta(t, 1.3, pos.Lat, 0.2)
			assert.InDelta(t, 103.8, pos.Lon, 0.3)
		})
	}
}

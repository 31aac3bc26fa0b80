package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeecm/parking/internal/carpark"
)

func sampleSnapshot() *carpark.Snapshot {
	return &carpark.Snapshot{
		RefreshID: "r-1",
		FetchedAt: time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC),
		Sources:   []string{"ura", "datamall"},
		Lots: []carpark.Lot{
			{
				CarparkID: "A0004",
				Agency:    carpark.AgencyURA,
				LotType:   carpark.LotTypeCar,
				Available: 103,
				Position:  &carpark.Position{Lat: 1.3012, Lon: 103.8601},
			},
			{
				CarparkID:   "SUNTEC",
				Development: "Suntec City",
				Area:        "Marina",
				Agency:      carpark.AgencyLTA,
				LotType:     carpark.LotTypeCar,
				Available:   420,
			},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriter_WriteSnapshot(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	snap := sampleSnapshot()
	require.NoError(t, w.WriteSnapshot(context.Background(), snap))

	records := readCSV(t, filepath.Join(dir, "availability.csv"))
	require.Len(t, records, 3)
	assert.Equal(t, []string{"carpark_id", "development", "area", "agency", "lot_type", "available_lots", "lat", "lon"}, records[0])
	assert.Equal(t, []string{"A0004", "", "", "URA", "Car", "103", "1.3012", "103.8601"}, records[1])
	assert.Equal(t, []string{"SUNTEC", "Suntec City", "Marina", "LTA", "Car", "420", "", ""}, records[2])

	data, err := os.ReadFile(filepath.Join(dir, "availability.json"))
	require.NoError(t, err)
	var got carpark.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, snap.RefreshID, got.RefreshID)
	assert.Equal(t, snap.Sources, got.Sources)
	require.Len(t, got.Lots, 2)
	assert.Equal(t, snap.Lots[0], got.Lots[0])
}

func TestWriter_WriteDetails(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	details := []carpark.Detail{
		{
			CarparkID:       "A0004",
			Name:            "Aliwal Street",
			VehicleCategory: "Car",
			WeekdayRate:     "$0.50",
			SaturdayRate:    "$0.50",
			SundayPHRate:    "Free",
			StartTime:       "08.30 AM",
			EndTime:         "05.00 PM",
			Capacity:        69,
			Position:        &carpark.Position{Lat: 1.3025, Lon: 103.8587},
		},
	}
	require.NoError(t, w.WriteDetails(context.Background(), details))

	records := readCSV(t, filepath.Join(dir, "carparks.csv"))
	require.Len(t, records, 2)
	assert.Equal(t, []string{
		"A0004", "Aliwal Street", "Car",
		"$0.50", "0.50",
		"$0.50", "0.50",
		"Free", "",
		"08.30 AM", "05.00 PM", "69", "1.3025", "103.8587",
	}, records[1])
}

func TestWriter_NoPartialFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteSnapshot(context.Background(), sampleSnapshot()))
	require.NoError(t, w.WriteDetails(context.Background(), nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"availability.csv", "availability.json", "carparks.csv"}, names)
}

func TestWriter_OverwritesPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.WriteSnapshot(context.Background(), sampleSnapshot()))

	second := sampleSnapshot()
	second.RefreshID = "r-2"
	second.Lots = second.Lots[:1]
	require.NoError(t, w.WriteSnapshot(context.Background(), second))

	records := readCSV(t, filepath.Join(dir, "availability.csv"))
	assert.Len(t, records, 2)

	data, err := os.ReadFile(filepath.Join(dir, "availability.json"))
	require.NoError(t, err)
	var got carpark.Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "r-2", got.RefreshID)
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		name string
		rate string
		want string
		ok   bool
	}{
		{name: "dollar amount", rate: "$0.50", want: "0.50", ok: true},
		{name: "whole dollars with unit", rate: "$2 per entry", want: "2.00", ok: true},
		{name: "bare number", rate: "1.20", want: "1.20", ok: true},
		{name: "free", rate: "Free", ok: false},
		{name: "empty", rate: "", ok: false},
		{name: "dollar sign only", rate: "$", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := parseRate(tt.rate)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, d.StringFixed(2))
			}
		})
	}
}

func TestNoop(t *testing.T) {
	n := NewNoop()
	assert.NoError(t, n.WriteSnapshot(context.Background(), sampleSnapshot()))
	assert.NoError(t, n.WriteDetails(context.Background(), nil))
}

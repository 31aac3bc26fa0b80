package svy21

import (
	"math"
	"testing"
)

func TestToSVY21_Origin(t *testing.T) {
	n, e := ToSVY21(originLat, originLon)
	if math.Abs(n-falseNorthing) > 1e-6 {
		t.Errorf("northing at origin = %.6f, want %.6f", n, falseNorthing)
	}
	if math.Abs(e-falseEasting) > 1e-6 {
		t.Errorf("easting at origin = %.6f, want %.6f", e, falseEasting)
	}
}

func TestToLatLon_Origin(t *testing.T) {
	lat, lon := ToLatLon(falseNorthing, falseEasting)
	if math.Abs(lat-originLat) > 1e-9 {
		t.Errorf("lat at false origin = %.9f, want %.9f", lat, originLat)
	}
	if math.Abs(lon-originLon) > 1e-9 {
		t.Errorf("lon at false origin = %.9f, want %.9f", lon, originLon)
	}
}

func TestRoundTrip(t *testing.T) {
	// Coordinates spread across the island.
	tests := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{"city hall", 1.2930, 103.8520},
		{"jurong", 1.3330, 103.7430},
		{"changi", 1.3644, 103.9915},
		{"woodlands", 1.4360, 103.7860},
		{"sentosa", 1.2494, 103.8303},
	}

	const tol = 1e-7 // degrees, ~1cm
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, e := ToSVY21(tt.lat, tt.lon)
			lat, lon := ToLatLon(n, e)
			if math.Abs(lat-tt.lat) > tol {
				t.Errorf("lat roundtrip = %.9f, want %.9f", lat, tt.lat)
			}
			if math.Abs(lon-tt.lon) > tol {
				t.Errorf("lon roundtrip = %.9f, want %.9f", lon, tt.lon)
			}
		})
	}
}

func TestRoundTrip_FromGrid(t *testing.T) {
	tests := []struct {
		name     string
		northing float64
		easting  float64
	}{
		{"south west", 30000, 20000},
		{"north east", 45000, 38000},
		{"origin offset", 38744.572, 29000},
	}

	const tol = 1e-4 // metres
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon := ToLatLon(tt.northing, tt.easting)
			n, e := ToSVY21(lat, lon)
			if math.Abs(n-tt.northing) > tol {
				t.Errorf("northing roundtrip = %.6f, want %.6f", n, tt.northing)
			}
			if math.Abs(e-tt.easting) > tol {
				t.Errorf("easting roundtrip = %.6f, want %.6f", e, tt.easting)
			}
		})
	}
}

func TestDirections(t *testing.T) {
	// North of the origin means a larger northing, east a larger easting.
	n, _ := ToSVY21(originLat+0.05, originLon)
	if n <= falseNorthing {
		t.Errorf("northing %.3f should exceed false northing %.3f", n, falseNorthing)
	}
	_, e := ToSVY21(originLat, originLon+0.05)
	if e <= falseEasting {
		t.Errorf("easting %.3f should exceed false easting %.3f", e, falseEasting)
	}
}

func TestMeridianScale(t *testing.T) {
	// One hundredth of a degree of latitude is roughly 1.1km near the equator.
	n1, _ := ToSVY21(1.30, 103.85)
	n2, _ := ToSVY21(1.31, 103.85)
	d := n2 - n1
	if d < 1090 || d > 1120 {
		t.Errorf("0.01 degree of latitude spans %.1f m, want ~1105 m", d)
	}
}

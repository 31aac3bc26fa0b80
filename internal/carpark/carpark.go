// Package carpark defines the domain model shared by the upstream
// clients, the refresh pipeline and the HTTP API: per-lot-type
// availability records and URA carpark detail records.
package carpark

import (
	"strings"
	"time"
)

// Agency identifies the authority a carpark record belongs to.
type Agency string

const (
	AgencyURA Agency = "URA"
	AgencyLTA Agency = "LTA"
	AgencyHDB Agency = "HDB"
)

// LotType is a vehicle category for which lots are counted.
type LotType string

const (
	LotTypeCar          LotType = "Car"
	LotTypeMotorcycle   LotType = "Motorcycle"
	LotTypeHeavyVehicle LotType = "Heavy Vehicle"
)

// ParseLotType maps an upstream single-letter lot code or a full
// vehicle category name to its LotType. Unknown codes pass through
// verbatim so new upstream codes surface in the data instead of being
// silently dropped.
func ParseLotType(code string) LotType {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "C", "CAR":
		return LotTypeCar
	case "Y", "M", "MOTORCYCLE":
		return LotTypeMotorcycle
	case "H", "HEAVY VEHICLE":
		return LotTypeHeavyVehicle
	default:
		return LotType(code)
	}
}

// Position is a WGS84 coordinate.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Lot is one availability record: how many lots of one vehicle type a
// carpark currently has free. Records with multiple upstream geometries
// are exploded into one Lot per position.
type Lot struct {
	CarparkID   string    `json:"carpark_id"`
	Development string    `json:"development,omitempty"`
	Area        string    `json:"area,omitempty"`
	Agency      Agency    `json:"agency"`
	LotType     LotType   `json:"lot_type"`
	Available   int       `json:"available_lots"`
	Position    *Position `json:"position,omitempty"`
}

// Availability is one fetched snapshot from a single upstream source.
type Availability struct {
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Lots      []Lot     `json:"lots"`
}

// Detail is a URA carpark detail record: tariffs, capacity and location
// for one carpark and vehicle category.
type Detail struct {
	CarparkID       string    `json:"carpark_id"`
	Name            string    `json:"name"`
	VehicleCategory string    `json:"vehicle_category"`
	WeekdayRate     string    `json:"weekday_rate,omitempty"`
	SaturdayRate    string    `json:"saturday_rate,omitempty"`
	SundayPHRate    string    `json:"sunday_ph_rate,omitempty"`
	StartTime       string    `json:"start_time,omitempty"`
	EndTime         string    `json:"end_time,omitempty"`
	Capacity        int       `json:"capacity,omitempty"`
	Remarks         string    `json:"remarks,omitempty"`
	Position        *Position `json:"position,omitempty"`
}

// Snapshot is the merged result of one refresh cycle, the unit served
// by the API and cached between refreshes.
type Snapshot struct {
	RefreshID string    `json:"refresh_id"`
	FetchedAt time.Time `json:"fetched_at"`
	Sources   []string  `json:"sources"`
	Lots      []Lot     `json:"lots"`
}

// Merge combines snapshots from several sources into a single lot list.
// When the same carpark and lot type appears in more than one snapshot,
// the earliest snapshot in the argument order wins; pass the
// authoritative source first.
func Merge(snapshots ...Availability) []Lot {
	type key struct {
		id  string
		lot LotType
	}
	seen := make(map[key]struct{})
	var merged []Lot
	for _, snap := range snapshots {
		for _, l := range snap.Lots {
			k := key{id: Token(l.CarparkID), lot: l.LotType}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, l)
		}
	}
	return merged
}

// Filter returns the lots matching the given agency and lot type.
// Empty arguments match everything.
func Filter(lots []Lot, agency Agency, lotType LotType) []Lot {
	if agency == "" && lotType == "" {
		return lots
	}
	out := make([]Lot, 0, len(lots))
	for _, l := range lots {
		if agency != "" && l.Agency != agency {
			continue
		}
		if lotType != "" && l.LotType != lotType {
			continue
		}
		out = append(out, l)
	}
	return out
}

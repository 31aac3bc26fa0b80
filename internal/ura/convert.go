package ura

import (
	"strconv"
	"strings"

	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/svy21"
)

// Lots converts one availability row to domain records, one per
// geometry so every carpark entrance keeps its own position. Rows
// without geometry yield a single record with no position.
func (r AvailabilityRow) Lots() []carpark.Lot {
	available, _ := strconv.Atoi(strings.TrimSpace(r.LotsAvailable))
	base := carpark.Lot{
		CarparkID: carpark.Token(r.CarparkNo),
		Agency:    carpark.AgencyURA,
		LotType:   carpark.ParseLotType(r.LotType),
		Available: available,
	}

	if len(r.Geometries) == 0 {
		return []carpark.Lot{base}
	}

	lots := make([]carpark.Lot, 0, len(r.Geometries))
	for _, g := range r.Geometries {
		l := base
		l.Position = g.Position()
		lots = append(lots, l)
	}
	return lots
}

// Detail converts one detail row to the domain model. The first
// geometry wins; URA lists additional entrances we do not need for
// tariff lookups.
func (r DetailRow) Detail() carpark.Detail {
	d := carpark.Detail{
		CarparkID:       carpark.Token(r.PPCode),
		Name:            carpark.DisplayName(r.PPName),
		VehicleCategory: r.VehCat,
		WeekdayRate:     r.WeekdayRate,
		SaturdayRate:    r.SatdayRate,
		SundayPHRate:    r.SunPHRate,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Capacity:        r.ParkCapacity,
		Remarks:         r.Remarks,
	}
	if len(r.Geometries) > 0 {
		d.Position = r.Geometries[0].Position()
	}
	return d
}

// Position parses the packed "easting,northing" SVY21 pair and
// projects it to WGS84. Malformed pairs yield nil rather than a bogus
// position.
func (g Geometry) Position() *carpark.Position {
	parts := strings.SplitN(g.Coordinates, ",", 2)
	if len(parts) != 2 {
		return nil
	}
	easting, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil
	}
	northing, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil
	}
	lat, lon := svy21.ToLatLon(northing, easting)
	return &carpark.Position{Lat: lat, Lon: lon}
}

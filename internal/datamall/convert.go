package datamall

import (
	"strconv"
	"strings"

	"github.com/zeecm/parking/internal/carpark"
)

// Lot converts one row to the domain model.
func (r CarParkRow) Lot() carpark.Lot {
	return carpark.Lot{
		CarparkID:   carpark.Token(r.CarParkID),
		Development: carpark.DisplayName(r.Development),
		Area:        r.Area,
		Agency:      carpark.Agency(strings.ToUpper(strings.TrimSpace(r.Agency))),
		LotType:     carpark.ParseLotType(r.LotType),
		Available:   r.AvailableLots,
		Position:    parseLocation(r.Location),
	}
}

// parseLocation splits the "lat lon" pair DataMall packs into
// Location. Rows without a usable position ("0 0" or malformed) yield
// nil.
func parseLocation(s string) *carpark.Position {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return nil
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil
	}
	if lat == 0 && lon == 0 {
		return nil
	}
	return &carpark.Position{Lat: lat, Lon: lon}
}

package ura

import "encoding/json"

// envelope wraps every URA Data Service response. Result is decoded
// per endpoint: a bare token string for insertNewToken.action, a row
// array for invokeUraDS.
type envelope struct {
	Status  string          `json:"Status"`
	Message string          `json:"Message"`
	Result  json.RawMessage `json:"Result"`
}

// Geometry is one carpark location. Coordinates holds an SVY21 pair
// packed as "easting,northing".
type Geometry struct {
	Coordinates string `json:"coordinates"`
}

// AvailabilityRow is one Car_Park_Availability record as URA sends it:
// counts arrive as strings and lot types as single-letter codes.
type AvailabilityRow struct {
	CarparkNo     string     `json:"carparkNo"`
	LotsAvailable string     `json:"lotsAvailable"`
	LotType       string     `json:"lotType"`
	Geometries    []Geometry `json:"geometries"`
}

// DetailRow is one Car_Park_Details record: tariff, opening hours and
// capacity for a carpark and vehicle category.
type DetailRow struct {
	PPCode        string     `json:"ppCode"`
	PPName        string     `json:"ppName"`
	VehCat        string     `json:"vehCat"`
	WeekdayMin    string     `json:"weekdayMin"`
	WeekdayRate   string     `json:"weekdayRate"`
	SatdayMin     string     `json:"satdayMin"`
	SatdayRate    string     `json:"satdayRate"`
	SunPHMin      string     `json:"sunPHMin"`
	SunPHRate     string     `json:"sunPHRate"`
	StartTime     string     `json:"startTime"`
	EndTime       string     `json:"endTime"`
	ParkingSystem string     `json:"parkingSystem"`
	ParkCapacity  int        `json:"parkCapacity"`
	Remarks       string     `json:"remarks"`
	Geometries    []Geometry `json:"geometries"`
}

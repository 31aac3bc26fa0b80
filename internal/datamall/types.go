package datamall

// CarParkRow is one CarParkAvailabilityv2 record. Location packs the
// WGS84 position as "lat lon"; Agency is LTA, HDB or URA.
type CarParkRow struct {
	CarParkID     string `json:"CarParkID"`
	Area          string `json:"Area"`
	Development   string `json:"Development"`
	Location      string `json:"Location"`
	AvailableLots int    `json:"AvailableLots"`
	LotType       string `json:"LotType"`
	Agency        string `json:"Agency"`
}

type availabilityResponse struct {
	Value []CarParkRow `json:"value"`
}

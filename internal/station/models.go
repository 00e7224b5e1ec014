// Package station provides the AEMET station inventory.
package station

// Station is one weather station of the AEMET network. The inventory is
// fetched once per session and used as a lookup dimension for the
// observation, normals and extremes tables, joined by ID.
type Station struct {
	// ID is the short alphanumeric station code (indicativo).
	ID string `json:"id"`

	Name     string `json:"name"`
	Province string `json:"province"`

	// Decimal degrees, south and west negative.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Altitude in meters.
	Altitude float64 `json:"altitude"`
}

package models

import "fmt"

// Coordinates represents a geographical point defined by its longitude and latitude.
type Coordinates struct {
	Longitude float64 // Longitude of the geographical point.
	Latitude  float64 // Latitude of the geographical point.
}

// String renders the point as "lon,lat", the order the bulk geocoder uses.
func (c Coordinates) String() string {
	return fmt.Sprintf("%g,%g", c.Longitude, c.Latitude)
}

// README: Geographic point shared by routing and location tracking.
package types

import "strconv"

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// String renders "lat,lng", the form maps lookups accept as a place.
func (p Point) String() string {
	return strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
}

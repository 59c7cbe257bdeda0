package domain

import "math"

// earthRadiusMiles is the single haversine constant used service-wide.
const earthRadiusMiles = 3958.8

// DistanceMiles returns the great-circle distance between two WGS-84 points
// using the haversine formula. Inputs are degree values assumed valid.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}

func toRadians(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}

// Bounds is a viewport bounding box in degrees.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether a point lies inside the box. Edges are inclusive,
// so a degenerate zero-area box still matches points exactly on it.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.South && lat <= b.North && lng >= b.West && lng <= b.East
}

// Valid reports whether the box is well-formed (north at or above south,
// east at or above west). Antimeridian-crossing boxes are not supported.
func (b Bounds) Valid() bool {
	return b.North >= b.South && b.East >= b.West
}

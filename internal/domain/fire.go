package domain

import (
	"encoding/json"
	"math"
	"time"
)

// Severity is the four-level classification assigned to a fire.
type Severity string

const (
	SeverityHigh      Severity = "high"
	SeverityMedium    Severity = "medium"
	SeverityLow       Severity = "low"
	SeverityContained Severity = "contained"
)

// Valid reports whether s is one of the four known severity tiers.
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow, SeverityContained:
		return true
	}
	return false
}

// Color returns the marker hex color for the tier. Unknown tiers fall back
// to a neutral gray.
func (s Severity) Color() string {
	switch s {
	case SeverityHigh:
		return "#D32F2F"
	case SeverityMedium:
		return "#FFA000"
	case SeverityLow:
		return "#689F38"
	case SeverityContained:
		return "#2E7D32"
	}
	return "#757575"
}

// Fire is a point-in-time snapshot of a wildfire.
type Fire struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Location             string    `json:"location"`
	Latitude             float64   `json:"latitude"`
	Longitude            float64   `json:"longitude"`
	Acres                int       `json:"acres"`
	Containment          int       `json:"containment"`
	StartDate            string    `json:"startDate"`
	Severity             Severity  `json:"severity"`
	Cause                string    `json:"cause,omitempty"`
	PerimeterCoordinates string    `json:"perimeterCoordinates,omitempty"`
	NewsURL              string    `json:"newsUrl,omitempty"`
	Updated              time.Time `json:"updated"`
}

// Active reports whether the fire is still burning. A fire is active iff its
// severity is not contained and its containment is below 100%. Both
// conditions matter: source data carries fires at 100% containment that have
// not yet been reclassified, and contained fires whose containment field
// lags behind.
func (f Fire) Active() bool {
	return f.Severity != SeverityContained && f.Containment < 100
}

// HasCoordinates reports whether the fire carries a usable lat/lng pair.
// Records that fail this check are skipped by rendering, not errors.
func (f Fire) HasCoordinates() bool {
	if math.IsNaN(f.Latitude) || math.IsNaN(f.Longitude) {
		return false
	}
	return f.Latitude >= -90 && f.Latitude <= 90 && f.Longitude >= -180 && f.Longitude <= 180
}

// Perimeter returns the parsed perimeter ring, or nil when the fire has no
// usable perimeter.
func (f Fire) Perimeter() []Coordinate {
	return ParsePerimeter(f.PerimeterCoordinates)
}

// Coordinate is one vertex of a perimeter ring.
type Coordinate struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// ParsePerimeter decodes a perimeterCoordinates column value. The column is
// a string containing JSON, an artifact of the upstream schema, so the text
// must be unmarshalled here, and any failure means "no perimeter", never a
// propagated error. The returned ring is closed: the first vertex is appended
// at the end if the source ring was left open.
func ParsePerimeter(raw string) []Coordinate {
	if raw == "" {
		return nil
	}
	var ring []Coordinate
	if err := json.Unmarshal([]byte(raw), &ring); err != nil {
		return nil
	}
	if len(ring) < 3 {
		return nil
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

// RingBounds returns the bounding box enclosing a perimeter ring.
func RingBounds(ring []Coordinate) Bounds {
	b := Bounds{North: -90, South: 90, East: -180, West: 180}
	for _, c := range ring {
		b.North = math.Max(b.North, c.Lat)
		b.South = math.Min(b.South, c.Lat)
		b.East = math.Max(b.East, c.Lng)
		b.West = math.Min(b.West, c.Lng)
	}
	return b
}

// CirclePerimeter generates a closed ring of the given number of vertices
// approximating a circle around a center point. Used for fires whose real
// perimeter geometry is not yet available: the seeded incidents and the
// FIRMS-derived fires both synthesize one from acreage.
func CirclePerimeter(centerLat, centerLng, radiusKm float64, points int) []Coordinate {
	if points <= 0 {
		points = 30
	}
	ring := make([]Coordinate, 0, points+1)
	step := 2 * math.Pi / float64(points)
	for i := 0; i < points; i++ {
		angle := float64(i) * step
		// One degree of latitude is ~111.32 km; longitude shrinks by cos(lat).
		latOffset := (radiusKm / 111.32) * math.Cos(angle)
		lngFactor := math.Cos(centerLat * math.Pi / 180)
		lngOffset := (radiusKm / (111.32 * lngFactor)) * math.Sin(angle)
		ring = append(ring, Coordinate{Lng: centerLng + lngOffset, Lat: centerLat + latOffset})
	}
	return append(ring, ring[0])
}

// AcresToRadiusKm converts a burned area to the radius of the equivalent
// circle. 1 acre ≈ 0.00404686 km².
func AcresToRadiusKm(acres int) float64 {
	areaKm2 := float64(acres) * 0.00404686
	return math.Sqrt(areaKm2 / math.Pi)
}

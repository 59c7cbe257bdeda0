package view

import (
	"fmt"
	"math"
	"strconv"

	"github.com/emberline/wildfire-map-service/internal/cluster"
	"github.com/emberline/wildfire-map-service/internal/domain"
)

// MarkerKind distinguishes single-fire markers from aggregate markers.
type MarkerKind string

const (
	MarkerFire    MarkerKind = "fire"
	MarkerCluster MarkerKind = "cluster"
)

const (
	clusterColor   = "#E64A19"
	minClusterSize = 35.0
	maxClusterSize = 55.0
)

// Marker is the full desired state of one map marker. The reconciler diffs
// these by value, so every field that affects rendering lives here.
type Marker struct {
	ID     string     `json:"id"`
	Kind   MarkerKind `json:"kind"`
	Lat    float64    `json:"lat"`
	Lng    float64    `json:"lng"`
	SizePx float64    `json:"sizePx"`
	Color  string     `json:"color"`
	Label  string     `json:"label,omitempty"`
	Pulse  bool       `json:"pulse,omitempty"`
	Badge  string     `json:"badge,omitempty"`
}

// ClusterSizePx scales an aggregate marker by the log of its member count,
// clamped to the 35..55 px range so a thousand-fire cluster stays tappable
// without swallowing the map.
func ClusterSizePx(count int) float64 {
	if count < 1 {
		count = 1
	}
	size := minClusterSize + math.Log10(float64(count))*10
	return math.Min(maxClusterSize, math.Max(minClusterSize, size))
}

// MarkerForNode builds the desired marker for a cluster query result. The
// second return is false when the node cannot be rendered, which happens for
// leaves whose fire record is missing or carries unusable coordinates.
func MarkerForNode(n cluster.Node, fires map[string]domain.Fire) (Marker, bool) {
	if !n.Leaf() {
		return Marker{
			ID:     n.ID,
			Kind:   MarkerCluster,
			Lat:    n.Lat,
			Lng:    n.Lng,
			SizePx: ClusterSizePx(n.Count),
			Color:  clusterColor,
			Label:  strconv.Itoa(n.Count),
		}, true
	}

	fire, ok := fires[n.FireID()]
	if !ok || !fire.HasCoordinates() {
		return Marker{}, false
	}

	m := Marker{
		ID:     fire.ID,
		Kind:   MarkerFire,
		Lat:    fire.Latitude,
		Lng:    fire.Longitude,
		SizePx: minClusterSize,
		Color:  fire.Severity.Color(),
		Pulse:  fire.Active(),
	}
	if fire.Containment > 0 {
		m.Badge = fmt.Sprintf("%d%%", fire.Containment)
	}
	return m, true
}

// Package cluster implements the zoom-dependent spatial clustering index
// behind the map's marker layer. Points are projected into web-mercator tile
// space and greedily merged within a pixel radius, the same scheme the
// supercluster family of libraries uses.
package cluster

// Point is one clusterable fire location.
type Point struct {
	FireID string
	Lat    float64
	Lng    float64
}

// Index is the clustering engine contract. Rebuild replaces the entire point
// set; there is no incremental update, so any add, remove, or coordinate
// change upstream must rebuild. Query answers "which clusters are visible in
// this box at this zoom" against the last rebuilt set.
type Index interface {
	Rebuild(points []Point)
	Query(b Bounds, zoom float64) []Node
}

// Bounds mirrors the viewport box in degrees. A degenerate (zero-area) box is
// legal and matches points exactly on it.
type Bounds struct {
	North, South, East, West float64
}

// Node is either a leaf wrapping exactly one point or an aggregate of
// minPoints or more nearby points. Aggregates carry a weighted centroid and
// the exact member count; their IDs are deterministic for a fixed index and
// query.
type Node struct {
	ID    string
	Lat   float64
	Lng   float64
	Count int

	members []Point
}

// Leaf reports whether the node wraps a single point.
func (n Node) Leaf() bool { return n.Count == 1 }

// FireID returns the wrapped fire's ID for a leaf, or "" for an aggregate.
func (n Node) FireID() string {
	if !n.Leaf() || len(n.members) == 0 {
		return ""
	}
	return n.members[0].FireID
}

// Members returns the points rolled up into this node.
func (n Node) Members() []Point { return n.members }

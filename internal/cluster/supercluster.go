package cluster

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Options configure a Supercluster. Zero values are replaced with the
// defaults the map client was tuned against.
type Options struct {
	Radius    float64 // merge distance in screen pixels at the query zoom
	Extent    int     // tile extent in pixels
	MinZoom   int
	MaxZoom   int // at or beyond this zoom, never cluster
	MinPoints int // smallest group that forms an aggregate
}

// DefaultOptions returns the production clustering configuration.
func DefaultOptions() Options {
	return Options{Radius: 60, Extent: 512, MinZoom: 0, MaxZoom: 16, MinPoints: 3}
}

func (o Options) normalized() Options {
	if o.Radius <= 0 {
		o.Radius = 60
	}
	if o.Extent <= 0 {
		o.Extent = 512
	}
	if o.MaxZoom <= 0 || o.MaxZoom > 16 {
		o.MaxZoom = 16
	}
	if o.MinZoom < 0 {
		o.MinZoom = 0
	}
	if o.MinZoom > o.MaxZoom {
		o.MinZoom = o.MaxZoom
	}
	if o.MinPoints <= 0 {
		o.MinPoints = 3
	}
	return o
}

// Supercluster is the in-memory Index implementation. The point set is
// replaced wholesale on Rebuild; queries against a set that no longer
// reflects the store are the caller's rebuild-discipline problem, not a
// failure mode here.
type Supercluster struct {
	mu     sync.RWMutex
	opts   Options
	points []Point
}

// New creates an empty index with normalized options.
func New(opts Options) *Supercluster {
	return &Supercluster{opts: opts.normalized()}
}

// Rebuild replaces the indexed point set. Points with unusable coordinates
// are dropped. The set is kept sorted by fire ID so queries are
// deterministic regardless of input order.
func (sc *Supercluster) Rebuild(points []Point) {
	kept := make([]Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
			continue
		}
		if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
			continue
		}
		kept = append(kept, p)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].FireID < kept[j].FireID })

	sc.mu.Lock()
	sc.points = kept
	sc.mu.Unlock()
}

// Len returns the number of indexed points.
func (sc *Supercluster) Len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.points)
}

// Query returns the clusters visible in the box at the given zoom. An empty
// index yields an empty result. At zoom levels at or beyond MaxZoom every
// visible point is returned as a leaf.
func (sc *Supercluster) Query(b Bounds, zoom float64) []Node {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	var visible []Point
	for _, p := range sc.points {
		if p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East {
			visible = append(visible, p)
		}
	}
	if len(visible) == 0 {
		return nil
	}

	if zoom >= float64(sc.opts.MaxZoom) {
		nodes := make([]Node, len(visible))
		for i, p := range visible {
			nodes[i] = leafNode(p)
		}
		return nodes
	}
	if zoom < float64(sc.opts.MinZoom) {
		zoom = float64(sc.opts.MinZoom)
	}
	return sc.clusterAt(visible, zoom)
}

// ExpansionZoom returns the lowest zoom above fromZoom at which the given
// aggregate splits into more than one node, capped at MaxZoom. For leaves it
// returns MaxZoom.
func (sc *Supercluster) ExpansionZoom(n Node, fromZoom float64) float64 {
	if n.Leaf() || len(n.members) < 2 {
		return float64(sc.opts.MaxZoom)
	}
	for z := math.Floor(fromZoom) + 1; z < float64(sc.opts.MaxZoom); z++ {
		if len(sc.clusterAt(n.members, z)) > 1 {
			return z
		}
	}
	return float64(sc.opts.MaxZoom)
}

// clusterAt greedily merges points within the pixel radius at the given
// zoom. Points are scanned in fire-ID order, so the result is deterministic
// for a fixed point set and query.
func (sc *Supercluster) clusterAt(points []Point, zoom float64) []Node {
	radius2 := sc.opts.Radius * sc.opts.Radius
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = sc.project(p.Lng, p.Lat, zoom)
	}

	var nodes []Node
	processed := make([]bool, len(points))
	for i := range points {
		if processed[i] {
			continue
		}
		var group []int
		for j := range points {
			if j == i || processed[j] {
				continue
			}
			dx := xs[j] - xs[i]
			dy := ys[j] - ys[i]
			if dx*dx+dy*dy <= radius2 {
				group = append(group, j)
			}
		}

		if len(group) > 0 && len(group)+1 >= sc.opts.MinPoints {
			group = append([]int{i}, group...)
			var sumX, sumY float64
			members := make([]Point, len(group))
			for k, idx := range group {
				sumX += xs[idx]
				sumY += ys[idx]
				members[k] = points[idx]
				processed[idx] = true
			}
			lng, lat := sc.unproject(sumX/float64(len(group)), sumY/float64(len(group)), zoom)
			nodes = append(nodes, Node{
				ID:      aggregateID(members),
				Lat:     lat,
				Lng:     lng,
				Count:   len(members),
				members: members,
			})
			continue
		}

		processed[i] = true
		nodes = append(nodes, leafNode(points[i]))
	}
	return nodes
}

// project converts lng/lat to web-mercator pixel coordinates at a zoom.
func (sc *Supercluster) project(lng, lat, zoom float64) (float64, float64) {
	sin := math.Sin(lat * math.Pi / 180)
	x := (lng + 180) / 360
	y := 0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi
	scale := math.Pow(2, zoom) * float64(sc.opts.Extent)
	return x * scale, y * scale
}

// unproject converts pixel coordinates at a zoom back to lng/lat.
func (sc *Supercluster) unproject(x, y, zoom float64) (float64, float64) {
	scale := math.Pow(2, zoom) * float64(sc.opts.Extent)
	x /= scale
	y /= scale
	lng := x*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
	return lng, lat
}

func leafNode(p Point) Node {
	return Node{ID: p.FireID, Lat: p.Lat, Lng: p.Lng, Count: 1, members: []Point{p}}
}

// aggregateID derives a stable cluster identifier from the member fire IDs,
// so the same grouping always renders as the same marker.
func aggregateID(members []Point) string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.FireID
	}
	sort.Strings(ids)
	hash := sha256.Sum256([]byte(strings.Join(ids, "|")))
	return fmt.Sprintf("cluster-%s", hex.EncodeToString(hash[:8]))
}

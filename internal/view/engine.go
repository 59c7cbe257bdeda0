package view

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/emberline/wildfire-map-service/internal/cluster"
	"github.com/emberline/wildfire-map-service/internal/domain"
	"github.com/emberline/wildfire-map-service/internal/observability"
)

// detailZoom is where the camera lands when selecting a fire that has no
// perimeter ring to fit to.
const detailZoom = 10

// ClusterIndex is the engine's view of the spatial index.
type ClusterIndex interface {
	Rebuild(points []cluster.Point)
	Query(b cluster.Bounds, zoom float64) []cluster.Node
	ExpansionZoom(n cluster.Node, fromZoom float64) float64
}

// MapHandle is the camera surface of the mapping client. The engine holds an
// explicit handle rather than reaching for any ambient map object.
type MapHandle interface {
	ZoomIn()
	ZoomOut()
	FlyTo(lat, lng, zoom float64)
	GetBounds() domain.Bounds
}

// RenderSink receives marker op batches from the reconciler.
type RenderSink interface {
	Apply(ops []Op)
}

// Theme selects the map style.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Engine wires the cluster index, viewport tracker, marker reconciler,
// perimeter manager, and selection machine together. All methods are safe
// for concurrent use.
type Engine struct {
	index      ClusterIndex
	mapHandle  MapHandle
	sink       RenderSink
	markers    *Reconciler
	perimeters *PerimeterManager
	selection  *Selection
	tracker    *Tracker
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu        sync.Mutex
	fires     map[string]domain.Fire
	lastNodes map[string]cluster.Node
	theme     Theme
	onSelect  func(domain.Fire)
	onTheme   func(Theme)
}

// NewEngine builds an engine around the given index and client surfaces.
func NewEngine(
	index ClusterIndex,
	mapHandle MapHandle,
	markerSink RenderSink,
	layerSink LayerSink,
	clock clockwork.Clock,
	throttle time.Duration,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Engine {
	e := &Engine{
		index:      index,
		mapHandle:  mapHandle,
		sink:       markerSink,
		markers:    NewReconciler(),
		perimeters: NewPerimeterManager(layerSink, logger),
		selection:  &Selection{},
		logger:     logger,
		metrics:    metrics,
		fires:      make(map[string]domain.Fire),
		lastNodes:  make(map[string]cluster.Node),
		theme:      ThemeLight,
	}
	e.tracker = NewTracker(clock, throttle, e.refresh)
	return e
}

// SetFires replaces the engine's fire set, rebuilds the cluster index, and
// re-renders the current viewport. Only active fires join the index; inactive
// fires and fires with unusable coordinates are kept for lookups but never
// cluster or render.
func (e *Engine) SetFires(fires []domain.Fire) {
	byID := make(map[string]domain.Fire, len(fires))
	points := make([]cluster.Point, 0, len(fires))
	for _, f := range fires {
		byID[f.ID] = f
		if !f.Active() {
			continue
		}
		if !f.HasCoordinates() {
			e.logger.Debug("fire excluded from cluster index", "fire_id", f.ID)
			continue
		}
		points = append(points, cluster.Point{FireID: f.ID, Lat: f.Latitude, Lng: f.Longitude})
	}

	e.mu.Lock()
	e.fires = byID
	e.mu.Unlock()

	e.index.Rebuild(points)
	e.metrics.ClusterRebuilds.Inc()
	e.refresh(e.tracker.Current())
}

// ObserveViewport feeds a raw map move event into the throttled tracker.
func (e *Engine) ObserveViewport(v Viewport) {
	e.tracker.Observe(v)
}

// Viewport returns the latest observed viewport.
func (e *Engine) Viewport() Viewport {
	return e.tracker.Current()
}

// Click handles a tap on a rendered marker. A leaf selects its fire; an
// aggregate flies the camera to the zoom at which it splits. Unknown ids are
// ignored, since the client may race a tap against a reconcile.
func (e *Engine) Click(markerID string) {
	e.mu.Lock()
	node, ok := e.lastNodes[markerID]
	e.mu.Unlock()
	if !ok {
		e.logger.Debug("click on unknown marker", "marker_id", markerID)
		return
	}

	if node.Leaf() {
		e.SelectFire(node.FireID())
		return
	}
	zoom := e.index.ExpansionZoom(node, e.tracker.Current().Zoom)
	e.mapHandle.FlyTo(node.Lat, node.Lng, zoom)
}

// SelectFire moves the selection to the given fire, hides all point and
// cluster markers, and shows the fire's perimeter. Selecting while another
// fire is selected swaps directly, leaving only the new perimeter visible.
func (e *Engine) SelectFire(fireID string) {
	e.mu.Lock()
	fire, ok := e.fires[fireID]
	e.mu.Unlock()
	if !ok {
		e.logger.Warn("select of unknown fire", "fire_id", fireID)
		return
	}

	if _, changed := e.selection.Select(fireID); !changed {
		return
	}

	e.apply(e.markers.SetVisible(false))
	e.perimeters.Show(fire)
	if len(fire.Perimeter()) == 0 && fire.HasCoordinates() {
		e.mapHandle.FlyTo(fire.Latitude, fire.Longitude, detailZoom)
	}

	e.mu.Lock()
	cb := e.onSelect
	e.mu.Unlock()
	if cb != nil {
		cb(fire)
	}
}

// Deselect clears the selection, hides the perimeter, and restores the
// marker layer for the current viewport.
func (e *Engine) Deselect() {
	if _, changed := e.selection.Deselect(); !changed {
		return
	}
	e.perimeters.Hide()
	e.apply(e.markers.SetVisible(true))
	e.refresh(e.tracker.Current())
}

// Selected returns the selected fire id, if any.
func (e *Engine) Selected() (string, bool) {
	return e.selection.Selected()
}

// ZoomIn steps the camera in one level.
func (e *Engine) ZoomIn() { e.mapHandle.ZoomIn() }

// ZoomOut steps the camera out one level.
func (e *Engine) ZoomOut() { e.mapHandle.ZoomOut() }

// OnSelect registers a callback invoked after each successful selection.
func (e *Engine) OnSelect(fn func(domain.Fire)) {
	e.mu.Lock()
	e.onSelect = fn
	e.mu.Unlock()
}

// OnThemeChange registers a callback invoked whenever the theme changes.
func (e *Engine) OnThemeChange(fn func(Theme)) {
	e.mu.Lock()
	e.onTheme = fn
	e.mu.Unlock()
}

// SetTheme switches the map theme and notifies the registered callback.
// Setting the current theme again is a no-op.
func (e *Engine) SetTheme(t Theme) {
	e.mu.Lock()
	if e.theme == t {
		e.mu.Unlock()
		return
	}
	e.theme = t
	cb := e.onTheme
	e.mu.Unlock()
	if cb != nil {
		cb(t)
	}
}

// Theme returns the current map theme.
func (e *Engine) Theme() Theme {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.theme
}

// refresh queries the index for the viewport and reconciles markers. While a
// fire is selected the marker layer is hidden, so refreshes are deferred
// until deselect re-renders.
func (e *Engine) refresh(v Viewport) {
	if _, selected := e.selection.Selected(); selected {
		return
	}
	if !v.Bounds.Valid() {
		return
	}

	nodes := e.index.Query(cluster.Bounds{
		North: v.Bounds.North,
		South: v.Bounds.South,
		East:  v.Bounds.East,
		West:  v.Bounds.West,
	}, v.Zoom)

	byID := make(map[string]cluster.Node, len(nodes))
	markers := make([]Marker, 0, len(nodes))

	e.mu.Lock()
	fires := e.fires
	e.mu.Unlock()

	for _, n := range nodes {
		m, ok := MarkerForNode(n, fires)
		if !ok {
			e.logger.Debug("node skipped during render", "node_id", n.ID)
			continue
		}
		byID[n.ID] = n
		markers = append(markers, m)
	}

	e.mu.Lock()
	e.lastNodes = byID
	e.mu.Unlock()

	ops := e.markers.Apply(markers)
	e.apply(ops)
	e.metrics.ViewportUpdates.Inc()
}

func (e *Engine) apply(ops []Op) {
	if len(ops) == 0 {
		return
	}
	e.sink.Apply(ops)
	e.metrics.MarkerOpsEmitted.Add(float64(len(ops)))
}

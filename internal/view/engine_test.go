package view

import (
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/wildfire-map-service/internal/cluster"
	"github.com/emberline/wildfire-map-service/internal/domain"
	"github.com/emberline/wildfire-map-service/internal/observability"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]Op
}

func (s *fakeSink) Apply(ops []Op) {
	s.mu.Lock()
	s.batches = append(s.batches, ops)
	s.mu.Unlock()
}

func (s *fakeSink) reset() {
	s.mu.Lock()
	s.batches = nil
	s.mu.Unlock()
}

func (s *fakeSink) allOps() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Op
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

type flight struct{ lat, lng, zoom float64 }

type fakeMap struct {
	mu       sync.Mutex
	flights  []flight
	zoomIns  int
	zoomOuts int
	bounds   domain.Bounds
}

func (m *fakeMap) ZoomIn()  { m.mu.Lock(); m.zoomIns++; m.mu.Unlock() }
func (m *fakeMap) ZoomOut() { m.mu.Lock(); m.zoomOuts++; m.mu.Unlock() }

func (m *fakeMap) FlyTo(lat, lng, zoom float64) {
	m.mu.Lock()
	m.flights = append(m.flights, flight{lat, lng, zoom})
	m.mu.Unlock()
}

func (m *fakeMap) GetBounds() domain.Bounds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bounds
}

func (m *fakeMap) lastFlight(t *testing.T) flight {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.flights)
	return m.flights[len(m.flights)-1]
}

type engineFixture struct {
	engine *Engine
	clock  *clockwork.FakeClock
	sink   *fakeSink
	layers *fakeLayers
	maph   *fakeMap
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		clock:  clockwork.NewFakeClock(),
		sink:   &fakeSink{},
		layers: &fakeLayers{},
		maph:   &fakeMap{},
	}
	f.engine = NewEngine(
		cluster.New(cluster.DefaultOptions()),
		f.maph,
		f.sink,
		f.layers,
		f.clock,
		DefaultThrottle,
		discardLogger(),
		observability.NewMetricsForTesting(),
	)
	return f
}

// sampleFires returns three clustered Yosemite-area fires and one distant
// Colorado fire.
func sampleFires() []domain.Fire {
	return []domain.Fire{
		fireWithPerimeter("crf-001", 37.8651, -119.5383),
		fireWithPerimeter("pkf-006", 37.8702, -119.5441),
		fireWithPerimeter("tmf-007", 37.8598, -119.5310),
		fireWithPerimeter("emf-002", 39.6553, -106.8287),
	}
}

func westUS(zoom float64) Viewport {
	return Viewport{
		Bounds: domain.Bounds{North: 45, South: 32, East: -100, West: -125},
		Zoom:   zoom,
	}
}

func (f *engineFixture) renderAt(t *testing.T, v Viewport) {
	t.Helper()
	target := f.engine.tracker.completedFlushes() + 1
	f.engine.ObserveViewport(v)
	f.clock.Advance(DefaultThrottle)
	waitFlushes(t, f.engine.tracker, target)
}

func findOp(ops []Op, kind OpKind, pred func(Op) bool) (Op, bool) {
	for _, op := range ops {
		if op.Kind == kind && (pred == nil || pred(op)) {
			return op, true
		}
	}
	return Op{}, false
}

func TestEngineRendersClustersAndLeaves(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.ObserveViewport(westUS(4))
	f.engine.SetFires(sampleFires())

	ops := f.sink.allOps()
	clusterAdd, ok := findOp(ops, OpAdd, func(op Op) bool { return op.Marker.Kind == MarkerCluster })
	require.True(t, ok, "three close fires render as one aggregate")
	assert.Equal(t, "3", clusterAdd.Marker.Label)
	assert.Equal(t, ClusterSizePx(3), clusterAdd.Marker.SizePx)

	leafAdd, ok := findOp(ops, OpAdd, func(op Op) bool { return op.ID == "emf-002" })
	require.True(t, ok, "the distant fire stays a leaf")
	assert.Equal(t, MarkerFire, leafAdd.Marker.Kind)
	assert.True(t, leafAdd.Marker.Pulse)
}

func TestEngineMaxZoomShowsEveryFire(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.ObserveViewport(westUS(16))
	f.engine.SetFires(sampleFires())

	ops := f.sink.allOps()
	adds := 0
	for _, op := range ops {
		if op.Kind == OpAdd {
			adds++
			assert.Equal(t, MarkerFire, op.Marker.Kind)
		}
	}
	assert.Equal(t, 4, adds)
}

func TestEngineClusterClickFliesToExpansionZoom(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.ObserveViewport(westUS(4))
	f.engine.SetFires(sampleFires())

	ops := f.sink.allOps()
	clusterAdd, ok := findOp(ops, OpAdd, func(op Op) bool { return op.Marker.Kind == MarkerCluster })
	require.True(t, ok)

	f.engine.Click(clusterAdd.ID)

	fl := f.maph.lastFlight(t)
	assert.Greater(t, fl.zoom, 4.0, "camera flies past the current zoom")
	assert.LessOrEqual(t, fl.zoom, 16.0)
	assert.InDelta(t, 37.86, fl.lat, 0.1)

	_, selected := f.engine.Selected()
	assert.False(t, selected, "cluster clicks never select")
}

func TestEngineLeafClickSelects(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.ObserveViewport(westUS(4))
	f.engine.SetFires(sampleFires())

	var selectedFires []domain.Fire
	f.engine.OnSelect(func(fire domain.Fire) { selectedFires = append(selectedFires, fire) })

	f.sink.reset()
	f.engine.Click("emf-002")

	id, selected := f.engine.Selected()
	require.True(t, selected)
	assert.Equal(t, "emf-002", id)

	// All markers hidden, selected perimeter visible.
	hideOps := 0
	for _, op := range f.sink.allOps() {
		if op.Kind == OpSetVisibility {
			assert.False(t, op.Visible)
			hideOps++
		}
	}
	assert.Equal(t, 2, hideOps, "both rendered markers get hidden")

	visible, ok := f.layers.lastVisibility("emf-002")
	require.True(t, ok)
	assert.True(t, visible)

	require.Len(t, selectedFires, 1)
	assert.Equal(t, "emf-002", selectedFires[0].ID)
}

func TestEngineSelectSwapLeavesOnlyNewPerimeter(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.ObserveViewport(westUS(16))
	f.engine.SetFires(sampleFires())

	f.engine.SelectFire("crf-001")
	f.engine.SelectFire("emf-002")

	va, _ := f.layers.lastVisibility("crf-001")
	vb, _ := f.layers.lastVisibility("emf-002")
	assert.False(t, va)
	assert.True(t, vb)

	id, _ := f.engine.Selected()
	assert.Equal(t, "emf-002", id)
	assert.Equal(t, "emf-002", f.layers.shownID())
}

func TestEngineDeselectRestoresMarkers(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.ObserveViewport(westUS(16))
	f.engine.SetFires(sampleFires())

	f.engine.SelectFire("crf-001")
	f.sink.reset()
	f.engine.Deselect()

	_, selected := f.engine.Selected()
	assert.False(t, selected)

	visible, ok := f.layers.lastVisibility("crf-001")
	require.True(t, ok)
	assert.False(t, visible)

	showOp, ok := findOp(f.sink.allOps(), OpSetVisibility, func(op Op) bool { return op.Visible })
	require.True(t, ok, "markers become visible again")
	assert.NotEmpty(t, showOp.ID)
}

func TestEngineSkipsRefreshWhileSelected(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.ObserveViewport(westUS(16))
	f.engine.SetFires(sampleFires())
	f.engine.SelectFire("crf-001")

	f.sink.reset()
	f.renderAt(t, westUS(5))

	assert.Empty(t, f.sink.allOps(), "viewport moves are ignored while a fire is selected")
}

func TestEngineContainedFiresStayOutOfClusters(t *testing.T) {
	f := newEngineFixture(t)
	fires := sampleFires()
	contained := fireWithPerimeter("old-099", 37.8660, -119.5400)
	contained.Severity = domain.SeverityContained
	contained.Containment = 100
	fires = append(fires, contained)

	f.engine.ObserveViewport(westUS(4))
	f.engine.SetFires(fires)

	ops := f.sink.allOps()
	clusterAdd, ok := findOp(ops, OpAdd, func(op Op) bool { return op.Marker.Kind == MarkerCluster })
	require.True(t, ok)
	assert.Equal(t, "3", clusterAdd.Marker.Label, "contained fire does not inflate the aggregate count")

	_, rendered := findOp(ops, OpAdd, func(op Op) bool { return op.ID == "old-099" })
	assert.False(t, rendered, "contained fire never renders as a leaf")

	// Still present for lookups: selecting it works.
	f.engine.SelectFire("old-099")
	id, selected := f.engine.Selected()
	require.True(t, selected)
	assert.Equal(t, "old-099", id)
}

func TestEngineSelectWithoutPerimeterFliesToFire(t *testing.T) {
	f := newEngineFixture(t)
	bare := domain.Fire{ID: "bare", Latitude: 40.0, Longitude: -120.0, Severity: domain.SeverityMedium}
	f.engine.ObserveViewport(westUS(16))
	f.engine.SetFires([]domain.Fire{bare})

	f.engine.SelectFire("bare")

	fl := f.maph.lastFlight(t)
	assert.Equal(t, 40.0, fl.lat)
	assert.Equal(t, -120.0, fl.lng)
	assert.Equal(t, float64(detailZoom), fl.zoom)
	assert.Empty(t, f.layers.shownID())
}

func TestEngineSelectUnknownFireIsIgnored(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.SetFires(sampleFires())

	f.engine.SelectFire("nope")

	_, selected := f.engine.Selected()
	assert.False(t, selected)
}

func TestEngineTheme(t *testing.T) {
	f := newEngineFixture(t)
	var changes []Theme
	f.engine.OnThemeChange(func(th Theme) { changes = append(changes, th) })

	assert.Equal(t, ThemeLight, f.engine.Theme())

	f.engine.SetTheme(ThemeDark)
	f.engine.SetTheme(ThemeDark)
	f.engine.SetTheme(ThemeLight)

	assert.Equal(t, []Theme{ThemeDark, ThemeLight}, changes)
}

func TestEngineZoomControlsDelegate(t *testing.T) {
	f := newEngineFixture(t)
	f.engine.ZoomIn()
	f.engine.ZoomIn()
	f.engine.ZoomOut()

	assert.Equal(t, 2, f.maph.zoomIns)
	assert.Equal(t, 1, f.maph.zoomOuts)
}

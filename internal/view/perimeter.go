package view

import (
	"log/slog"
	"sync"

	"github.com/emberline/wildfire-map-service/internal/domain"
)

// fitBoundsPaddingPx keeps the perimeter ring clear of sidebars and controls
// when the viewport flies to it.
const fitBoundsPaddingPx = 48

// LayerSink is the mapping-client surface for polygon layers. AddLayer is
// called at most once per layer id; afterwards the layer is driven purely
// through SetLayerVisible. FitBounds pans and zooms the viewport to the box.
type LayerSink interface {
	AddLayer(id string, ring []domain.Coordinate)
	SetLayerVisible(id string, visible bool)
	FitBounds(b domain.Bounds, paddingPx int)
}

// PerimeterManager shows at most one fire perimeter at a time. Layers are
// uploaded to the client once and then toggled, so re-selecting a fire never
// re-sends its ring.
type PerimeterManager struct {
	mu     sync.Mutex
	sink   LayerSink
	logger *slog.Logger
	added  map[string]bool
	shown  string
}

// NewPerimeterManager creates a manager with no layers shown.
func NewPerimeterManager(sink LayerSink, logger *slog.Logger) *PerimeterManager {
	return &PerimeterManager{sink: sink, logger: logger, added: make(map[string]bool)}
}

// Show displays the fire's perimeter and fits the viewport to it, hiding any
// previously shown perimeter first. A fire without a usable perimeter hides
// the current one and logs; it is not an error.
func (m *PerimeterManager) Show(fire domain.Fire) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ring := fire.Perimeter()
	if len(ring) == 0 {
		m.logger.Debug("fire has no usable perimeter", "fire_id", fire.ID)
		m.hideLocked()
		return
	}

	if m.shown == fire.ID {
		return
	}
	m.hideLocked()

	if !m.added[fire.ID] {
		m.sink.AddLayer(fire.ID, ring)
		m.added[fire.ID] = true
	}
	m.sink.SetLayerVisible(fire.ID, true)
	m.shown = fire.ID

	m.sink.FitBounds(domain.RingBounds(ring), fitBoundsPaddingPx)
}

// Hide hides the currently shown perimeter, if any. The layer stays on the
// client for cheap re-show.
func (m *PerimeterManager) Hide() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hideLocked()
}

// Shown returns the fire id whose perimeter is visible, or "".
func (m *PerimeterManager) Shown() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shown
}

func (m *PerimeterManager) hideLocked() {
	if m.shown == "" {
		return
	}
	m.sink.SetLayerVisible(m.shown, false)
	m.shown = ""
}

package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/wildfire-map-service/internal/cluster"
	"github.com/emberline/wildfire-map-service/internal/domain"
)

func TestClusterSizePx(t *testing.T) {
	assert.Equal(t, 35.0, ClusterSizePx(1))
	assert.InDelta(t, 45.0, ClusterSizePx(10), 0.001)
	assert.InDelta(t, 55.0, ClusterSizePx(100), 0.001)
	assert.Equal(t, 55.0, ClusterSizePx(100000), "size is capped, not unbounded")
	assert.Equal(t, 35.0, ClusterSizePx(0))
}

func TestMarkerForAggregate(t *testing.T) {
	sc := cluster.New(cluster.Options{MinPoints: 2})
	sc.Rebuild([]cluster.Point{
		{FireID: "f1", Lat: 37.0, Lng: -119.0},
		{FireID: "f2", Lat: 37.0001, Lng: -119.0001},
	})
	nodes := sc.Query(cluster.Bounds{North: 38, South: 36, East: -118, West: -120}, 2)
	require.Len(t, nodes, 1)

	m, ok := MarkerForNode(nodes[0], nil)
	require.True(t, ok)
	assert.Equal(t, MarkerCluster, m.Kind)
	assert.Equal(t, "2", m.Label)
	assert.Equal(t, ClusterSizePx(2), m.SizePx)
	assert.False(t, m.Pulse)
	assert.Empty(t, m.Badge)
}

func TestMarkerForFire(t *testing.T) {
	fire := domain.Fire{
		ID:          "crf-001",
		Latitude:    37.8651,
		Longitude:   -119.5383,
		Severity:    domain.SeverityHigh,
		Containment: 45,
	}
	fires := map[string]domain.Fire{fire.ID: fire}

	sc := cluster.New(cluster.DefaultOptions())
	sc.Rebuild([]cluster.Point{{FireID: fire.ID, Lat: fire.Latitude, Lng: fire.Longitude}})
	nodes := sc.Query(cluster.Bounds{North: 38, South: 37, East: -119, West: -120}, 16)
	require.Len(t, nodes, 1)

	m, ok := MarkerForNode(nodes[0], fires)
	require.True(t, ok)
	assert.Equal(t, MarkerFire, m.Kind)
	assert.Equal(t, "#D32F2F", m.Color)
	assert.True(t, m.Pulse, "active fires pulse")
	assert.Equal(t, "45%", m.Badge)
}

func TestMarkerForFireEdgeStates(t *testing.T) {
	t.Run("contained fire does not pulse", func(t *testing.T) {
		fire := domain.Fire{ID: "f", Latitude: 37, Longitude: -119, Severity: domain.SeverityContained, Containment: 100}
		m, ok := MarkerForNode(leafFor(fire), map[string]domain.Fire{"f": fire})
		require.True(t, ok)
		assert.False(t, m.Pulse)
		assert.Equal(t, "100%", m.Badge)
	})

	t.Run("zero containment has no badge", func(t *testing.T) {
		fire := domain.Fire{ID: "f", Latitude: 37, Longitude: -119, Severity: domain.SeverityLow}
		m, ok := MarkerForNode(leafFor(fire), map[string]domain.Fire{"f": fire})
		require.True(t, ok)
		assert.Empty(t, m.Badge)
	})

	t.Run("unknown severity gets the fallback color", func(t *testing.T) {
		fire := domain.Fire{ID: "f", Latitude: 37, Longitude: -119, Severity: "extreme"}
		m, ok := MarkerForNode(leafFor(fire), map[string]domain.Fire{"f": fire})
		require.True(t, ok)
		assert.Equal(t, "#757575", m.Color)
	})

	t.Run("missing fire record is skipped", func(t *testing.T) {
		fire := domain.Fire{ID: "f", Latitude: 37, Longitude: -119}
		_, ok := MarkerForNode(leafFor(fire), map[string]domain.Fire{})
		assert.False(t, ok)
	})
}

func leafFor(f domain.Fire) cluster.Node {
	sc := cluster.New(cluster.DefaultOptions())
	sc.Rebuild([]cluster.Point{{FireID: f.ID, Lat: f.Latitude, Lng: f.Longitude}})
	nodes := sc.Query(cluster.Bounds{North: 90, South: -90, East: 180, West: -180}, 16)
	return nodes[0]
}

package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFireActive(t *testing.T) {
	t.Run("burning fire is active", func(t *testing.T) {
		f := Fire{Severity: SeverityHigh, Containment: 15}
		assert.True(t, f.Active())
	})

	t.Run("fully contained percentage is not active even without contained tier", func(t *testing.T) {
		f := Fire{Severity: SeverityMedium, Containment: 100}
		assert.False(t, f.Active())
	})

	t.Run("contained tier is terminal regardless of containment", func(t *testing.T) {
		f := Fire{Severity: SeverityContained, Containment: 10}
		assert.False(t, f.Active())
	})
}

func TestSeverityColor(t *testing.T) {
	assert.Equal(t, "#D32F2F", SeverityHigh.Color())
	assert.Equal(t, "#FFA000", SeverityMedium.Color())
	assert.Equal(t, "#689F38", SeverityLow.Color())
	assert.Equal(t, "#2E7D32", SeverityContained.Color())
	assert.Equal(t, "#757575", Severity("bogus").Color())
}

func TestParsePerimeter(t *testing.T) {
	t.Run("valid closed ring", func(t *testing.T) {
		raw := `[{"lng":-119.0,"lat":37.0},{"lng":-119.1,"lat":37.0},{"lng":-119.1,"lat":37.1},{"lng":-119.0,"lat":37.0}]`
		ring := ParsePerimeter(raw)
		require.Len(t, ring, 4)
		assert.Equal(t, ring[0], ring[len(ring)-1])
	})

	t.Run("open ring is closed", func(t *testing.T) {
		raw := `[{"lng":-119.0,"lat":37.0},{"lng":-119.1,"lat":37.0},{"lng":-119.1,"lat":37.1}]`
		ring := ParsePerimeter(raw)
		require.Len(t, ring, 4)
		assert.Equal(t, ring[0], ring[3])
	})

	t.Run("malformed JSON means no perimeter", func(t *testing.T) {
		assert.Nil(t, ParsePerimeter("not valid json"))
	})

	t.Run("empty string means no perimeter", func(t *testing.T) {
		assert.Nil(t, ParsePerimeter(""))
	})

	t.Run("too few vertices means no perimeter", func(t *testing.T) {
		assert.Nil(t, ParsePerimeter(`[{"lng":1,"lat":2}]`))
	})
}

func TestCirclePerimeter(t *testing.T) {
	ring := CirclePerimeter(37.8651, -119.5383, AcresToRadiusKm(1243), 30)
	require.Len(t, ring, 31)
	assert.Equal(t, ring[0], ring[30], "ring must be closed")

	// The generated ring must survive the storage round-trip: serialized as a
	// JSON string column and parsed back by ParsePerimeter.
	raw, err := json.Marshal(ring)
	require.NoError(t, err)
	parsed := ParsePerimeter(string(raw))
	require.Len(t, parsed, 31)

	b := RingBounds(parsed)
	assert.True(t, b.Contains(37.8651, -119.5383), "center inside ring bounds")
	assert.True(t, b.Valid())
}

func TestHasCoordinates(t *testing.T) {
	assert.True(t, Fire{Latitude: 37.0, Longitude: -119.0}.HasCoordinates())
	assert.False(t, Fire{Latitude: 91.0, Longitude: 0}.HasCoordinates())
	assert.False(t, Fire{Latitude: 0, Longitude: 181.0}.HasCoordinates())
}

package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/wildfire-map-service/internal/domain"
)

func TestSerializeFire(t *testing.T) {
	now := time.Date(2023, 9, 15, 10, 30, 0, 0, time.UTC)
	fire := domain.Fire{
		ID:        "crf-001",
		Name:      "California Ridge Fire",
		Latitude:  37.8651,
		Longitude: -119.5383,
		Acres:     1243,
		Severity:  domain.SeverityHigh,
		Updated:   now,
	}

	msg, err := serializeFire(fire)
	require.NoError(t, err)

	assert.Equal(t, []byte("crf-001"), msg.Key)
	assert.Contains(t, string(msg.Value), `"severity":"high"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "severity", msg.Headers[0].Key)
	assert.Equal(t, []byte("high"), msg.Headers[0].Value)
	assert.Equal(t, "updated", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestDeserializeFire(t *testing.T) {
	msg := kafkago.Message{
		Key:   []byte("crf-001"),
		Value: []byte(`{"id":"crf-001","name":"California Ridge Fire","latitude":37.8651,"longitude":-119.5383,"acres":1243,"containment":15,"startDate":"Sep 12, 2023","severity":"high","updated":"2023-09-15T10:30:00Z"}`),
	}

	fire, err := deserializeFire(msg)
	require.NoError(t, err)
	assert.Equal(t, "crf-001", fire.ID)
	assert.Equal(t, 1243, fire.Acres)
	assert.Equal(t, domain.SeverityHigh, fire.Severity)
	assert.True(t, fire.Active())
}

func TestDeserializeFireRejectsBadMessages(t *testing.T) {
	_, err := deserializeFire(kafkago.Message{Value: []byte(`{"name":"no id"}`)})
	assert.Error(t, err)

	_, err = deserializeFire(kafkago.Message{Value: []byte(`not json`)})
	assert.Error(t, err)
}

func TestSerializeRoundTripKeepsPerimeter(t *testing.T) {
	fire := domain.Fire{
		ID:                   "f1",
		Severity:             domain.SeverityLow,
		PerimeterCoordinates: `[{"lng":-119.5,"lat":37.8},{"lng":-119.4,"lat":37.9},{"lng":-119.6,"lat":37.85},{"lng":-119.5,"lat":37.8}]`,
	}

	msg, err := serializeFire(fire)
	require.NoError(t, err)

	got, err := deserializeFire(msg)
	require.NoError(t, err)
	assert.Len(t, got.Perimeter(), 4, "perimeter survives the wire as a JSON string field")
}

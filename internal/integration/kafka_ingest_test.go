//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkaadapter "github.com/emberline/wildfire-map-service/internal/adapter/kafka"
	"github.com/emberline/wildfire-map-service/internal/config"
	"github.com/emberline/wildfire-map-service/internal/domain"
	"github.com/emberline/wildfire-map-service/internal/ingest"
	"github.com/emberline/wildfire-map-service/internal/observability"
	"github.com/emberline/wildfire-map-service/internal/store"
)

// broker returns the Kafka bootstrap address for integration runs, skipping
// the test when none is configured.
func broker(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("TEST_KAFKA_BROKER")
	if addr == "" {
		t.Skip("TEST_KAFKA_BROKER not set")
	}
	return addr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTopic(t *testing.T, addr, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	err = conn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	require.NoError(t, err)
}

func sampleFires(now time.Time) []domain.Fire {
	return []domain.Fire{
		{
			ID: "fire-int01", Name: "Fire near 37.87, -119.54", Location: "Lat 37.87, Lng -119.54",
			Latitude: 37.87, Longitude: -119.54, Acres: 250, Containment: 0,
			StartDate: "Sep 15, 2023", Severity: domain.SeverityHigh,
			Cause: "Under investigation", Updated: now,
		},
		{
			ID: "fire-int02", Name: "Fire near 39.66, -106.83", Location: "Lat 39.66, Lng -106.83",
			Latitude: 39.66, Longitude: -106.83, Acres: 40, Containment: 0,
			StartDate: "Sep 15, 2023", Severity: domain.SeverityLow,
			Cause: "Under investigation", Updated: now,
		},
	}
}

// TestKafkaRoundTrip verifies the adapter layer: Writer publishes fire
// records that Reader fetches back with key and headers intact.
func TestKafkaRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	addr := broker(t)
	topic := fmt.Sprintf("test-detections-%d", time.Now().UnixNano())
	createTopic(t, addr, topic)

	cfg := &config.Config{
		KafkaBrokers: []string{addr},
		KafkaTopic:   topic,
		KafkaGroupID: fmt.Sprintf("test-reader-%d", time.Now().UnixNano()),
	}

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	now := time.Now().UTC().Truncate(time.Second)
	fires := sampleFires(now)
	require.NoError(t, writer.PublishFires(ctx, fires))

	reader := kafkaadapter.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	// The consumer group may need time to rebalance before partitions are
	// assigned, so poll until the batch arrives.
	var got []domain.Fire
	for len(got) < len(fires) {
		batch, err := reader.FetchBatch(ctx, len(fires))
		require.NoError(t, err)
		got = append(got, batch...)
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for fire records")
		}
	}
	require.NoError(t, reader.Commit(ctx))

	require.Len(t, got, 2)
	ids := []string{got[0].ID, got[1].ID}
	assert.ElementsMatch(t, []string{"fire-int01", "fire-int02"}, ids)
	for _, f := range got {
		assert.NotEmpty(t, f.Name)
		assert.True(t, f.Updated.Equal(now), "updated timestamp should survive the round trip")
	}
}

// TestConsumerEndToEnd runs the full consume path against a real broker:
// published candidates land in the store with the merge applied.
func TestConsumerEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	addr := broker(t)
	topic := fmt.Sprintf("test-detections-%d", time.Now().UnixNano())
	createTopic(t, addr, topic)

	cfg := &config.Config{
		KafkaBrokers: []string{addr},
		KafkaTopic:   topic,
		KafkaGroupID: fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
	}

	// Pre-load a known fire close to the first candidate so the consumer
	// merges instead of inserting.
	mem := store.NewMemory()
	require.NoError(t, mem.UpsertFires(ctx, []domain.Fire{{
		ID: "crf-001", Name: "California Ridge Fire", Location: "Yosemite National Park, CA",
		Latitude: 37.8651, Longitude: -119.5383, Acres: 1243, Containment: 15,
		StartDate: "Sep 12, 2023", Severity: domain.SeverityHigh, Updated: time.Now(),
	}}))

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.PublishFires(ctx, sampleFires(time.Now().UTC())))

	reader := kafkaadapter.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	rebuilt := make(chan []domain.Fire, 4)
	consumer := ingest.NewConsumer(reader, mem, func(fires []domain.Fire) {
		rebuilt <- fires
	}, discardLogger(), observability.NewMetricsForTesting(), 10)

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- consumer.Run(runCtx) }()

	var fires []domain.Fire
	select {
	case fires = <-rebuilt:
	case <-ctx.Done():
		t.Fatal("timed out waiting for the consumer to process the batch")
	}
	stop()
	require.NoError(t, <-errCh)

	// The Yosemite candidate merged into crf-001; the Colorado one is new.
	require.Len(t, fires, 2)
	byID := map[string]domain.Fire{}
	for _, f := range fires {
		byID[f.ID] = f
	}
	merged, ok := byID["crf-001"]
	require.True(t, ok, "nearby candidate should merge into the existing fire")
	assert.Equal(t, "California Ridge Fire", merged.Name)
	assert.Equal(t, 250, merged.Acres)
	_, ok = byID["fire-int02"]
	assert.True(t, ok, "distant candidate should be stored as a new fire")

	require.NoError(t, consumer.CheckReadiness(ctx))
}

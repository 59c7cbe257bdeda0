// Package kafka carries fire records between the collector and the server
// over the detections topic. Messages are keyed by fire id so updates to the
// same fire stay ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/emberline/wildfire-map-service/internal/config"
	"github.com/emberline/wildfire-map-service/internal/domain"
)

// Writer publishes fire records to the detections topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured detections topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishFires serializes and publishes a batch of fire records in a single
// WriteMessages call.
func (w *Writer) PublishFires(ctx context.Context, fires []domain.Fire) error {
	if len(fires) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(fires))
	for i := range fires {
		msg, err := serializeFire(fires[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish fires: %w", err)
	}
	w.logger.Debug("published fire batch", "count", len(fires))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeFire marshals a fire record into a Kafka message.
func serializeFire(fire domain.Fire) (kafkago.Message, error) {
	data, err := json.Marshal(fire)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize fire %s: %w", fire.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(fire.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "severity", Value: []byte(fire.Severity)},
			{Key: "updated", Value: []byte(fire.Updated.Format(time.RFC3339))},
		},
	}, nil
}

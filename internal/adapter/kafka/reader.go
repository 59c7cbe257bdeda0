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

// batchLinger bounds how long FetchBatch waits for followers once the first
// message of a batch has arrived.
const batchLinger = 2 * time.Second

// Reader consumes fire records from the detections topic as part of a
// consumer group. Offsets are committed only through Commit, after the batch
// has been stored, so a crash between fetch and store re-delivers.
type Reader struct {
	reader      *kafkago.Reader
	logger      *slog.Logger
	uncommitted []kafkago.Message
}

// NewReader creates a group consumer for the configured detections topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		GroupID: cfg.KafkaGroupID,
	})
	return &Reader{reader: r, logger: logger}
}

// FetchBatch blocks for the first message, then drains up to batchSize
// messages arriving within the linger window. Messages that fail to
// deserialize are logged and dropped; their offsets still commit with the
// batch.
func (r *Reader) FetchBatch(ctx context.Context, batchSize int) ([]domain.Fire, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}

	msgs := []kafkago.Message{first}
	lingerCtx, cancel := context.WithTimeout(ctx, batchLinger)
	defer cancel()
	for len(msgs) < batchSize {
		msg, err := r.reader.FetchMessage(lingerCtx)
		if err != nil {
			break
		}
		msgs = append(msgs, msg)
	}
	r.uncommitted = msgs

	fires := make([]domain.Fire, 0, len(msgs))
	for _, msg := range msgs {
		fire, err := deserializeFire(msg)
		if err != nil {
			r.logger.Warn("dropping undecodable message",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
			continue
		}
		fires = append(fires, fire)
	}
	return fires, nil
}

// Commit marks the last fetched batch as processed.
func (r *Reader) Commit(ctx context.Context) error {
	if len(r.uncommitted) == 0 {
		return nil
	}
	if err := r.reader.CommitMessages(ctx, r.uncommitted...); err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}
	r.uncommitted = nil
	return nil
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// deserializeFire unmarshals a Kafka message into a fire record. An empty id
// is rejected since every downstream index keys on it.
func deserializeFire(msg kafkago.Message) (domain.Fire, error) {
	var fire domain.Fire
	if err := json.Unmarshal(msg.Value, &fire); err != nil {
		return domain.Fire{}, fmt.Errorf("deserialize fire: %w", err)
	}
	if fire.ID == "" {
		return domain.Fire{}, fmt.Errorf("fire message has no id")
	}
	return fire, nil
}

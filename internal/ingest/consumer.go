package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/emberline/wildfire-map-service/internal/domain"
	"github.com/emberline/wildfire-map-service/internal/observability"
	"github.com/emberline/wildfire-map-service/internal/store"
)

// BatchFetcher reads batches of candidate fires from the detections topic.
// Commit acknowledges the last fetched batch.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, batchSize int) ([]domain.Fire, error)
	Commit(ctx context.Context) error
}

// Consumer drains the detections topic into the store. After each stored
// batch it hands the full fire set to onFires, which the server uses to
// rebuild the cluster index.
type Consumer struct {
	fetcher   BatchFetcher
	store     store.Store
	onFires   func([]domain.Fire)
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// NewConsumer creates a Consumer. onFires may be nil.
func NewConsumer(fetcher BatchFetcher, st store.Store, onFires func([]domain.Fire), logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Consumer {
	return &Consumer{
		fetcher:   fetcher,
		store:     st,
		onFires:   onFires,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once at least one batch has been stored.
func (c *Consumer) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("consumer has not stored any batches yet")
	}
	return nil
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started", "batch_size", c.batchSize)
	c.metrics.ConsumerRunning.Set(1)
	defer c.metrics.ConsumerRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !c.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one fetch-merge-store cycle. Returns false if the
// consumer should stop.
func (c *Consumer) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	candidates, err := c.fetcher.FetchBatch(ctx, c.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.logger.Error("fetch batch failed", "error", err)
		return c.backoffOrStop(ctx, backoff, maxBackoff)
	}
	if len(candidates) == 0 {
		// Every message in the batch was undecodable; ack and move on.
		c.commit(ctx)
		return ctx.Err() == nil
	}
	c.metrics.FiresConsumed.Add(float64(len(candidates)))
	*backoff = 200 * time.Millisecond

	existing, err := c.store.ListFires(ctx)
	if err != nil {
		c.logger.Error("list fires failed", "error", err)
		return c.backoffOrStop(ctx, backoff, maxBackoff)
	}

	merged := MergeExisting(candidates, existing)
	if err := c.store.UpsertFires(ctx, merged); err != nil {
		c.logger.Error("upsert fires failed", "error", err, "batch_size", len(merged))
		return c.backoffOrStop(ctx, backoff, maxBackoff)
	}
	c.commit(ctx)
	c.ready.Store(true)

	if c.onFires != nil {
		all, err := c.store.ListFires(ctx)
		if err != nil {
			c.logger.Warn("list fires for rebuild failed", "error", err)
		} else {
			c.onFires(all)
		}
	}

	c.logger.Info("stored fire batch", "candidates", len(candidates))
	return true
}

func (c *Consumer) commit(ctx context.Context) {
	if err := c.fetcher.Commit(ctx); err != nil {
		c.logger.Warn("commit offsets failed", "error", err)
	}
}

// backoffOrStop sleeps with the current backoff and doubles it. Returns
// false if the consumer should stop.
func (c *Consumer) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	next := *backoff * 2
	if next > maxBackoff {
		next = maxBackoff
	}
	*backoff = next
	return true
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

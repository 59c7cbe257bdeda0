package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/emberline/wildfire-map-service/internal/domain"
	"github.com/emberline/wildfire-map-service/internal/observability"
)

// DetectionFetcher is the FIRMS feed surface the collector polls.
type DetectionFetcher interface {
	Fetch(ctx context.Context) ([]Detection, error)
}

// Publisher puts candidate fire batches on the detections topic.
type Publisher interface {
	PublishFires(ctx context.Context, fires []domain.Fire) error
}

// Collector runs one fetch-transform-publish cycle per poll.
type Collector struct {
	fetcher   DetectionFetcher
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewCollector wires a FIRMS fetcher to a publisher.
func NewCollector(fetcher DetectionFetcher, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Collector {
	return &Collector{fetcher: fetcher, publisher: publisher, logger: logger, metrics: metrics}
}

// RunOnce polls the feed once and publishes the resulting candidate fires.
// An empty feed is a normal outcome, not an error.
func (c *Collector) RunOnce(ctx context.Context) error {
	start := time.Now()
	c.metrics.IngestRuns.Inc()

	detections, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch detections: %w", err)
	}
	c.metrics.DetectionsFetched.Add(float64(len(detections)))
	if len(detections) == 0 {
		c.logger.Info("no detections in window")
		return nil
	}

	fires := FromDetections(detections)
	if err := c.publisher.PublishFires(ctx, fires); err != nil {
		return fmt.Errorf("publish candidate fires: %w", err)
	}
	c.metrics.FiresPublished.Add(float64(len(fires)))
	c.metrics.IngestDuration.Observe(time.Since(start).Seconds())

	c.logger.Info("ingest cycle complete",
		"detections", len(detections), "fires", len(fires),
		"duration", time.Since(start))
	return nil
}

// Scheduler runs the collector on a cron spec.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// pollTimeout caps a single scheduled poll so a hung feed fetch cannot
// overlap the next cron firing indefinitely.
const pollTimeout = 5 * time.Minute

// NewScheduler registers the collector under the given cron spec, for
// example "*/10 * * * *" for every ten minutes.
func NewScheduler(spec string, collector *Collector, logger *slog.Logger) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
		defer cancel()
		if err := collector.RunOnce(ctx); err != nil {
			logger.Error("scheduled ingest failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule ingest %q: %w", spec, err)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins firing scheduled polls.
func (s *Scheduler) Start() {
	s.logger.Info("ingest scheduler started")
	s.cron.Start()
}

// Stop halts scheduling and waits for a running poll to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("ingest scheduler stopped")
}

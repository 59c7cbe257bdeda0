package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emberline/wildfire-map-service/internal/domain"
	"github.com/emberline/wildfire-map-service/internal/observability"
)

// DefaultCacheTTL matches the freshness window of the upstream data: fires
// only change when a FIRMS poll lands, so five minutes of staleness is
// acceptable.
const DefaultCacheTTL = 5 * time.Minute

// Cached is a redis read-through decorator over another Store. List-shaped
// reads are cached for the TTL; point lookups and all writes pass through,
// and writes drop the cached listings. Cache failures degrade to the inner
// store with a log line.
type Cached struct {
	inner   Store
	rdb     *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCached wraps inner with a redis cache.
func NewCached(inner Store, rdb *redis.Client, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{inner: inner, rdb: rdb, ttl: ttl, logger: logger, metrics: metrics}
}

const (
	keyAllFires     = "wildfire:fires:all"
	keyStats        = "wildfire:stats"
	keyActiveAlerts = "wildfire:alerts:active"
)

func (c *Cached) ListFires(ctx context.Context) ([]domain.Fire, error) {
	var fires []domain.Fire
	err := c.through(ctx, "list_fires", keyAllFires, &fires, func() (any, error) {
		return c.inner.ListFires(ctx)
	})
	return fires, err
}

func (c *Cached) GetFire(ctx context.Context, id string) (domain.Fire, error) {
	return c.inner.GetFire(ctx, id)
}

func (c *Cached) FiresInBounds(ctx context.Context, b domain.Bounds) ([]domain.Fire, error) {
	key := fmt.Sprintf("wildfire:fires:bounds:%g:%g:%g:%g", b.North, b.South, b.East, b.West)
	var fires []domain.Fire
	err := c.through(ctx, "fires_in_bounds", key, &fires, func() (any, error) {
		return c.inner.FiresInBounds(ctx, b)
	})
	return fires, err
}

func (c *Cached) NearbyFires(ctx context.Context, lat, lng, radiusMiles float64) ([]domain.Fire, error) {
	key := fmt.Sprintf("wildfire:fires:nearby:%g:%g:%g", lat, lng, radiusMiles)
	var fires []domain.Fire
	err := c.through(ctx, "nearby_fires", key, &fires, func() (any, error) {
		return c.inner.NearbyFires(ctx, lat, lng, radiusMiles)
	})
	return fires, err
}

func (c *Cached) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := c.through(ctx, "stats", keyStats, &stats, func() (any, error) {
		return c.inner.Stats(ctx)
	})
	return stats, err
}

func (c *Cached) UpsertFires(ctx context.Context, fires []domain.Fire) error {
	if err := c.inner.UpsertFires(ctx, fires); err != nil {
		return err
	}
	c.invalidate(ctx, "wildfire:fires:*", keyStats)
	return nil
}

func (c *Cached) ActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	var alerts []domain.Alert
	err := c.through(ctx, "active_alerts", keyActiveAlerts, &alerts, func() (any, error) {
		return c.inner.ActiveAlerts(ctx)
	})
	return alerts, err
}

func (c *Cached) AlertsByFire(ctx context.Context, fireID string) ([]domain.Alert, error) {
	return c.inner.AlertsByFire(ctx, fireID)
}

func (c *Cached) InsertAlert(ctx context.Context, alert domain.Alert) error {
	if err := c.inner.InsertAlert(ctx, alert); err != nil {
		return err
	}
	c.invalidate(ctx, "", keyActiveAlerts)
	return nil
}

func (c *Cached) Subscribe(ctx context.Context, sub domain.Subscription) error {
	return c.inner.Subscribe(ctx, sub)
}

func (c *Cached) RecentUpdates(ctx context.Context, fireID string) ([]domain.Update, error) {
	return c.inner.RecentUpdates(ctx, fireID)
}

func (c *Cached) InsertUpdate(ctx context.Context, update domain.Update) error {
	return c.inner.InsertUpdate(ctx, update)
}

// through fills out from the cache, falling back to load and writing the
// result back. out must be a pointer to the same type load returns.
func (c *Cached) through(ctx context.Context, query, key string, out any, load func() (any, error)) error {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if uerr := json.Unmarshal(raw, out); uerr == nil {
			c.metrics.CacheLookups.WithLabelValues(query, "hit").Inc()
			return nil
		}
		// Corrupt entry; treat as a miss and overwrite below.
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}
	c.metrics.CacheLookups.WithLabelValues(query, "miss").Inc()

	val, err := load()
	if err != nil {
		return err
	}
	raw, err = json.Marshal(val)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return json.Unmarshal(raw, out)
}

// invalidate drops the named key and every key matching the pattern.
func (c *Cached) invalidate(ctx context.Context, pattern string, keys ...string) {
	if pattern != "" {
		iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			c.logger.Warn("cache scan failed", "pattern", pattern, "error", err)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", "error", err)
	}
}

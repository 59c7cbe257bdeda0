// Package store persists wildfires, alerts, updates, and alert
// subscriptions. Three implementations share the Store interface: Memory for
// tests and local development, Postgres for production, and Cached, a
// redis-backed read-through decorator.
package store

import (
	"context"
	"errors"

	"github.com/emberline/wildfire-map-service/internal/domain"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence surface of the service. List results are ordered
// by acres descending; update and alert feeds are newest first.
type Store interface {
	ListFires(ctx context.Context) ([]domain.Fire, error)
	GetFire(ctx context.Context, id string) (domain.Fire, error)
	FiresInBounds(ctx context.Context, b domain.Bounds) ([]domain.Fire, error)
	// NearbyFires returns fires within radiusMiles of the point, computed by
	// great-circle distance.
	NearbyFires(ctx context.Context, lat, lng, radiusMiles float64) ([]domain.Fire, error)
	// Stats aggregates over fires with containment below 100%.
	Stats(ctx context.Context) (domain.Stats, error)
	UpsertFires(ctx context.Context, fires []domain.Fire) error

	ActiveAlerts(ctx context.Context) ([]domain.Alert, error)
	AlertsByFire(ctx context.Context, fireID string) ([]domain.Alert, error)
	InsertAlert(ctx context.Context, alert domain.Alert) error
	Subscribe(ctx context.Context, sub domain.Subscription) error

	// RecentUpdates returns at most five updates for the fire, newest first.
	RecentUpdates(ctx context.Context, fireID string) ([]domain.Update, error)
	InsertUpdate(ctx context.Context, update domain.Update) error
}

// recentUpdatesLimit caps the update feed per fire.
const recentUpdatesLimit = 5

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/emberline/wildfire-map-service/internal/domain"
)

// Memory is an in-process Store. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	fires   map[string]domain.Fire
	alerts  []domain.Alert
	updates []domain.Update
	subs    []domain.Subscription
	nextID  int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{fires: make(map[string]domain.Fire), nextID: 1}
}

func (m *Memory) ListFires(_ context.Context) ([]domain.Fire, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fires := make([]domain.Fire, 0, len(m.fires))
	for _, f := range m.fires {
		fires = append(fires, f)
	}
	sortFires(fires)
	return fires, nil
}

func (m *Memory) GetFire(_ context.Context, id string) (domain.Fire, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fires[id]
	if !ok {
		return domain.Fire{}, ErrNotFound
	}
	return f, nil
}

func (m *Memory) FiresInBounds(_ context.Context, b domain.Bounds) ([]domain.Fire, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var fires []domain.Fire
	for _, f := range m.fires {
		if b.Contains(f.Latitude, f.Longitude) {
			fires = append(fires, f)
		}
	}
	sortFires(fires)
	return fires, nil
}

func (m *Memory) NearbyFires(_ context.Context, lat, lng, radiusMiles float64) ([]domain.Fire, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var fires []domain.Fire
	for _, f := range m.fires {
		if domain.DistanceMiles(lat, lng, f.Latitude, f.Longitude) <= radiusMiles {
			fires = append(fires, f)
		}
	}
	sortFires(fires)
	return fires, nil
}

func (m *Memory) Stats(_ context.Context) (domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stats domain.Stats
	for _, f := range m.fires {
		if f.Containment < 100 {
			stats.ActiveFiresCount++
			stats.TotalAcresBurning += f.Acres
		}
	}
	return stats, nil
}

func (m *Memory) UpsertFires(_ context.Context, fires []domain.Fire) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fires {
		m.fires[f.ID] = f
	}
	return nil
}

func (m *Memory) ActiveAlerts(_ context.Context) ([]domain.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var alerts []domain.Alert
	for _, a := range m.alerts {
		if a.Active {
			alerts = append(alerts, a)
		}
	}
	sortAlerts(alerts)
	return alerts, nil
}

func (m *Memory) AlertsByFire(_ context.Context, fireID string) ([]domain.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var alerts []domain.Alert
	for _, a := range m.alerts {
		if a.WildfireID == fireID {
			alerts = append(alerts, a)
		}
	}
	sortAlerts(alerts)
	return alerts, nil
}

func (m *Memory) InsertAlert(_ context.Context, alert domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *Memory) Subscribe(_ context.Context, sub domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub.ID = m.nextID
	m.nextID++
	m.subs = append(m.subs, sub)
	return nil
}

// Subscriptions returns all stored subscriptions. Test helper.
func (m *Memory) Subscriptions() []domain.Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Subscription, len(m.subs))
	copy(out, m.subs)
	return out
}

func (m *Memory) RecentUpdates(_ context.Context, fireID string) ([]domain.Update, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var updates []domain.Update
	for _, u := range m.updates {
		if u.WildfireID == fireID {
			updates = append(updates, u)
		}
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].Timestamp.After(updates[j].Timestamp) })
	if len(updates) > recentUpdatesLimit {
		updates = updates[:recentUpdatesLimit]
	}
	return updates, nil
}

func (m *Memory) InsertUpdate(_ context.Context, update domain.Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	update.ID = m.nextID
	m.nextID++
	m.updates = append(m.updates, update)
	return nil
}

// sortFires orders by acres descending, id ascending on ties, so listings
// are stable across calls.
func sortFires(fires []domain.Fire) {
	sort.Slice(fires, func(i, j int) bool {
		if fires[i].Acres != fires[j].Acres {
			return fires[i].Acres > fires[j].Acres
		}
		return fires[i].ID < fires[j].ID
	})
}

func sortAlerts(alerts []domain.Alert) {
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].CreatedAt.After(alerts[j].CreatedAt) })
}

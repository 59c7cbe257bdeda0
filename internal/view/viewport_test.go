package view

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberline/wildfire-map-service/internal/domain"
)

type notifyRecorder struct {
	mu    sync.Mutex
	calls []Viewport
}

func (r *notifyRecorder) record(v Viewport) {
	r.mu.Lock()
	r.calls = append(r.calls, v)
	r.mu.Unlock()
}

func (r *notifyRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *notifyRecorder) last() Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func viewportAt(zoom float64) Viewport {
	return Viewport{
		Bounds: domain.Bounds{North: 40, South: 35, East: -115, West: -122},
		Zoom:   zoom,
	}
}

// waitFlushes blocks until the tracker has completed n notify cycles. The
// fake clock fires timer callbacks asynchronously.
func waitFlushes(t *testing.T, tracker *Tracker, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return tracker.completedFlushes() >= n
	}, time.Second, time.Millisecond)
}

func TestTrackerCollapsesBurstToOneNotification(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &notifyRecorder{}
	tracker := NewTracker(clock, 100*time.Millisecond, rec.record)

	// A drag gesture: five move events inside one throttle window.
	for i := 0; i < 5; i++ {
		tracker.Observe(viewportAt(float64(i)))
		clock.Advance(10 * time.Millisecond)
	}

	assert.Equal(t, 0, rec.count(), "no notification before the window closes")
	assert.Equal(t, 4.0, tracker.Current().Zoom, "Current reflects the latest move immediately")

	clock.Advance(100 * time.Millisecond)
	waitFlushes(t, tracker, 1)
	require.Equal(t, 1, rec.count())
	assert.Equal(t, 4.0, rec.last().Zoom, "notification carries the last observed viewport")
}

func TestTrackerNotifiesOncePerWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &notifyRecorder{}
	tracker := NewTracker(clock, 100*time.Millisecond, rec.record)

	tracker.Observe(viewportAt(3))
	clock.Advance(100 * time.Millisecond)
	waitFlushes(t, tracker, 1)
	require.Equal(t, 1, rec.count())

	// A second gesture after the window opens a new one.
	tracker.Observe(viewportAt(7))
	assert.Equal(t, 1, rec.count())
	clock.Advance(100 * time.Millisecond)
	waitFlushes(t, tracker, 2)
	require.Equal(t, 2, rec.count())
	assert.Equal(t, 7.0, rec.last().Zoom)
}

func TestTrackerDefaultsThrottle(t *testing.T) {
	tracker := NewTracker(clockwork.NewFakeClock(), 0, nil)
	assert.Equal(t, DefaultThrottle, tracker.delay)
}

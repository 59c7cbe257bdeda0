package view

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/emberline/wildfire-map-service/internal/domain"
)

// DefaultThrottle is the minimum interval between downstream viewport
// notifications. Map clients emit move events every animation frame; one
// notification per window is plenty for re-clustering.
const DefaultThrottle = 100 * time.Millisecond

// Viewport is the visible window of the map: its bounding box and zoom.
type Viewport struct {
	Bounds domain.Bounds
	Zoom   float64
}

// Tracker throttles raw viewport move events. Current() always reflects the
// latest observed viewport; the notify callback fires at most once per
// throttle window, trailing edge, with whatever viewport was seen last.
type Tracker struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	delay   time.Duration
	notify  func(Viewport)
	current Viewport
	timer   clockwork.Timer
	flushes int
}

// NewTracker creates a Tracker that invokes notify with the most recent
// viewport, at most once per delay. The clock is injectable for tests.
func NewTracker(clock clockwork.Clock, delay time.Duration, notify func(Viewport)) *Tracker {
	if delay <= 0 {
		delay = DefaultThrottle
	}
	return &Tracker{clock: clock, delay: delay, notify: notify}
}

// Observe records a viewport move. The stored viewport updates immediately;
// the downstream notification is deferred to the end of the throttle window.
func (t *Tracker) Observe(v Viewport) {
	t.mu.Lock()
	t.current = v
	if t.timer == nil {
		t.timer = t.clock.AfterFunc(t.delay, t.flush)
	}
	t.mu.Unlock()
}

// Current returns the latest observed viewport, throttled or not.
func (t *Tracker) Current() Viewport {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Tracker) flush() {
	t.mu.Lock()
	v := t.current
	t.timer = nil
	t.mu.Unlock()

	if t.notify != nil {
		t.notify(v)
	}

	t.mu.Lock()
	t.flushes++
	t.mu.Unlock()
}

// completedFlushes reports how many notify cycles have finished. Timer
// callbacks run on their own goroutine, so tests synchronize on this counter
// rather than asserting immediately after advancing a fake clock.
func (t *Tracker) completedFlushes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushes
}

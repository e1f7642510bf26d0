package risk

import (
	"sync"
	"time"
)

// DefaultVelocityWindow is how far back a join still counts toward a
// community's join velocity.
const DefaultVelocityWindow = 60 * time.Second

// maxTrackedCommunities bounds the window map; past this, communities whose
// windows have gone quiet are evicted on the next observe.
const maxTrackedCommunities = 512

// joinWindows tracks recent join timestamps per community. Process-local on
// purpose: velocity resets on restart and under-counts bursts split across
// instances, which is acceptable for a heuristic signal.
type joinWindows struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	joins  map[string][]time.Time
}

func newJoinWindows(window time.Duration, max int) *joinWindows {
	return &joinWindows{
		window: window,
		max:    max,
		joins:  make(map[string][]time.Time),
	}
}

// observe appends a join at now, prunes entries older than the window, and
// returns the window size including this join.
func (w *joinWindows) observe(communityID string, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.window)

	kept := w.joins[communityID][:0]
	for _, t := range w.joins[communityID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	w.joins[communityID] = kept

	if len(w.joins) > w.max {
		w.evictQuiet(cutoff)
	}
	return len(kept)
}

// evictQuiet drops communities with no join inside the window. Caller holds
// the lock.
func (w *joinWindows) evictQuiet(cutoff time.Time) {
	for id, ts := range w.joins {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(w.joins, id)
		}
	}
}

// tracked reports how many communities currently have a window.
func (w *joinWindows) tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.joins)
}

// Package fetchguard decides whether a fetcher should skip an outbound
// call because a local record is still fresh. It is advisory only:
// correctness is guaranteed by the idempotent savers, not by the guard.
package fetchguard

import "time"

// Guard holds the staleness threshold used by ShouldFetch.
type Guard struct {
	threshold time.Duration
}

// New creates a Guard with the given staleness threshold. A zero
// threshold disables caching: ShouldFetch always returns true.
func New(threshold time.Duration) *Guard {
	return &Guard{threshold: threshold}
}

// ShouldFetch reports whether a fetcher should call upstream, given the
// last-updated time of a local record. present must be false when no
// local record exists.
func (g *Guard) ShouldFetch(present bool, updatedAt time.Time, now time.Time) bool {
	if g.threshold <= 0 {
		return true
	}
	if !present {
		return true
	}
	return updatedAt.Before(now.Add(-g.threshold))
}

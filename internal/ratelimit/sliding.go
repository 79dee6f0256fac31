package ratelimit

import "time"

// SlidingWindow admits at most limit requests per client in any trailing
// window. Memory per active client grows with limit.
type SlidingWindow struct {
	limit  int
	window time.Duration
	table  *table[slidingEntry]
}

type slidingEntry struct {
	times []time.Time
}

// NewSlidingWindow creates a sliding-window limiter
func NewSlidingWindow(limit int, window time.Duration) (*SlidingWindow, error) {
	if err := validate(limit, window); err != nil {
		return nil, err
	}
	return &SlidingWindow{
		limit:  limit,
		window: window,
		table:  newTable[slidingEntry](),
	}, nil
}

// Admit prunes timestamps outside (now-window, now] and admits the request
// if fewer than limit remain
func (l *SlidingWindow) Admit(clientID string, now time.Time) Decision {
	return l.table.with(clientID, func(e *slidingEntry) Decision {
		oldest := e.prune(now, l.window)

		if len(e.times) >= l.limit {
			return Decision{
				Allowed:    false,
				Limit:      l.limit,
				Remaining:  0,
				RetryAfter: oldest.Add(l.window).Sub(now),
			}
		}

		e.times = append(e.times, now)
		return Decision{
			Allowed:   true,
			Limit:     l.limit,
			Remaining: l.limit - len(e.times),
		}
	})
}

// Sweep removes clients whose newest request is at least idle old
func (l *SlidingWindow) Sweep(now time.Time, idle time.Duration) int {
	return l.table.deleteIf(func(e *slidingEntry) bool {
		newest, ok := e.newest()
		return !ok || now.Sub(newest) >= idle
	})
}

func (l *SlidingWindow) Window() time.Duration {
	return l.window
}

// prune keeps only timestamps with now-t < window, reusing the backing
// array, and returns the oldest survivor
func (e *slidingEntry) prune(now time.Time, window time.Duration) time.Time {
	var oldest time.Time
	kept := e.times[:0]
	for _, t := range e.times {
		if now.Sub(t) < window {
			if len(kept) == 0 || t.Before(oldest) {
				oldest = t
			}
			kept = append(kept, t)
		}
	}
	// release the array once a client goes quiet
	if len(kept) == 0 {
		kept = nil
	}
	e.times = kept
	return oldest
}

func (e *slidingEntry) newest() (time.Time, bool) {
	if len(e.times) == 0 {
		return time.Time{}, false
	}
	newest := e.times[0]
	for _, t := range e.times[1:] {
		if t.After(newest) {
			newest = t
		}
	}
	return newest, true
}

package ratelimit

import "time"

// FixedWindow counts requests per client in epoch-aligned buckets of one
// window each. A client may get up to 2*limit requests through around a
// bucket boundary; that is inherent to the algorithm.
type FixedWindow struct {
	limit  int
	window time.Duration
	table  *table[fixedEntry]
}

type fixedEntry struct {
	bucket int64
	count  int
}

// NewFixedWindow creates a fixed-window limiter
func NewFixedWindow(limit int, window time.Duration) (*FixedWindow, error) {
	if err := validate(limit, window); err != nil {
		return nil, err
	}
	return &FixedWindow{
		limit:  limit,
		window: window,
		table:  newTable[fixedEntry](),
	}, nil
}

// Admit resets the client's counter when now falls in a new bucket, then
// admits while the counter is below limit
func (l *FixedWindow) Admit(clientID string, now time.Time) Decision {
	current := l.bucketOf(now)

	return l.table.with(clientID, func(e *fixedEntry) Decision {
		// a zero count means a fresh entry
		if e.count == 0 || e.bucket != current {
			e.bucket = current
			e.count = 1
			return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - 1}
		}

		if e.count >= l.limit {
			return Decision{
				Allowed:    false,
				Limit:      l.limit,
				Remaining:  0,
				RetryAfter: l.bucketEnd(current).Sub(now),
			}
		}

		e.count++
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit - e.count}
	})
}

// Sweep removes clients whose last bucket ended at least idle ago
func (l *FixedWindow) Sweep(now time.Time, idle time.Duration) int {
	return l.table.deleteIf(func(e *fixedEntry) bool {
		return now.Sub(l.bucketEnd(e.bucket)) >= idle
	})
}

func (l *FixedWindow) Window() time.Duration {
	return l.window
}

// bucketOf returns floor(now / window) on the Unix epoch
func (l *FixedWindow) bucketOf(now time.Time) int64 {
	n := now.UnixNano()
	w := int64(l.window)
	b := n / w
	if n%w != 0 && n < 0 {
		b--
	}
	return b
}

func (l *FixedWindow) bucketEnd(bucket int64) time.Time {
	return time.Unix(0, (bucket+1)*int64(l.window))
}

// Package ratelimit implements per-client request admission control.
//
// Two interchangeable window algorithms are provided behind the Limiter
// interface. SlidingWindow keeps the timestamps of admitted requests and is
// exact over any trailing window. FixedWindow keeps one counter per
// epoch-aligned bucket; it is cheaper but admits up to 2x the limit across a
// bucket boundary.
//
// State lives in memory, sharded by client identity, and is safe for
// concurrent use. Rejected requests are never recorded.
package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by constructors given a non-positive limit or
// window, or an unknown strategy
var ErrInvalidConfig = errors.New("invalid rate limit configuration")

const (
	StrategySliding = "sliding"
	StrategyFixed   = "fixed"
)

// Config selects and parameterizes a Limiter
type Config struct {
	Strategy string
	Limit    int
	Window   time.Duration
}

// Decision is the outcome of a single admission check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when Allowed
}

// Limiter admits or rejects requests per client identity
type Limiter interface {
	// Admit records the request at now if it fits within the client's quota
	Admit(clientID string, now time.Time) Decision
	// Sweep drops clients with no activity in the last idle duration and
	// returns how many entries were removed
	Sweep(now time.Time, idle time.Duration) int
	// Window returns the configured window length
	Window() time.Duration
}

// New builds the Limiter named by cfg.Strategy
func New(cfg Config) (Limiter, error) {
	switch cfg.Strategy {
	case StrategySliding:
		return NewSlidingWindow(cfg.Limit, cfg.Window)
	case StrategyFixed:
		return NewFixedWindow(cfg.Limit, cfg.Window)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, cfg.Strategy)
	}
}

func validate(limit int, window time.Duration) error {
	if limit <= 0 {
		return fmt.Errorf("%w: limit must be positive (got %d)", ErrInvalidConfig, limit)
	}
	if window <= 0 {
		return fmt.Errorf("%w: window must be positive (got %s)", ErrInvalidConfig, window)
	}
	return nil
}

package lockout

import (
	"hash/fnv"
	"sync"
	"time"
)

const stripeCount = 128

// Tracker applies a Policy and serializes work on a single account.
// Lockout state itself is owned by the account store; the tracker only
// guarantees that a check-verify-record sequence for one account does not
// interleave with another for the same account. Different accounts hash to
// independent stripes (collisions only cost contention).
type Tracker struct {
	policy  Policy
	stripes [stripeCount]sync.Mutex
}

// NewTracker creates a Tracker for the given policy
func NewTracker(policy Policy) *Tracker {
	return &Tracker{policy: policy}
}

// Policy returns the tracker's policy
func (t *Tracker) Policy() Policy {
	return t.policy
}

// Acquire locks the stripe for accountID and returns the matching release
func (t *Tracker) Acquire(accountID string) (release func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	mu := &t.stripes[h.Sum32()%stripeCount]
	mu.Lock()
	return mu.Unlock
}

func (t *Tracker) IsLocked(s State, now time.Time) bool {
	return t.policy.IsLocked(s, now)
}

func (t *Tracker) RecordFailure(s State, now time.Time) State {
	return t.policy.RecordFailure(s, now)
}

func (t *Tracker) RecordSuccess(s State, now time.Time) State {
	return t.policy.RecordSuccess(s, now)
}

func (t *Tracker) Unlock(s State) State {
	return t.policy.Unlock(s)
}

func (t *Tracker) RetryAfter(s State, now time.Time) time.Duration {
	return t.policy.RetryAfter(s, now)
}

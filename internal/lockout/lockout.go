// Package lockout implements the per-account failed-login state machine.
//
// An account is Unlocked(n) with n failed attempts since its last success,
// or Locked until some instant. The threshold-th consecutive failure locks
// the account for the policy duration. A lock expires lazily: once now
// reaches LockedUntil the account reads as unlocked, and the stale fields are
// cleared by the next write. A success or an explicit unlock returns the
// account to Unlocked(0).
package lockout

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultThreshold = 5
	DefaultDuration  = 30 * time.Minute
)

// ErrInvalidPolicy is returned for a non-positive threshold or duration
var ErrInvalidPolicy = errors.New("invalid lockout policy")

// State is the lockout portion of an account, persisted with the user row
type State struct {
	LoginAttempts int
	LockedUntil   *time.Time
}

// Policy holds the lockout parameters and the state transitions
type Policy struct {
	Threshold int
	Duration  time.Duration
}

// NewPolicy validates and returns a Policy
func NewPolicy(threshold int, duration time.Duration) (Policy, error) {
	if threshold <= 0 {
		return Policy{}, fmt.Errorf("%w: failure threshold must be positive (got %d)", ErrInvalidPolicy, threshold)
	}
	if duration <= 0 {
		return Policy{}, fmt.Errorf("%w: lock duration must be positive (got %s)", ErrInvalidPolicy, duration)
	}
	return Policy{Threshold: threshold, Duration: duration}, nil
}

// DefaultPolicy locks after 5 failures for 30 minutes
func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold, Duration: DefaultDuration}
}

// IsLocked reports whether s holds a lock that has not yet expired at now
func (p Policy) IsLocked(s State, now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

// RetryAfter returns how long the lock in s still has to run, or zero
func (p Policy) RetryAfter(s State, now time.Time) time.Duration {
	if !p.IsLocked(s, now) {
		return 0
	}
	return s.LockedUntil.Sub(now)
}

// Expire clears a lock whose time has passed. An active lock or an
// unlocked state is returned unchanged.
func (p Policy) Expire(s State, now time.Time) State {
	if s.LockedUntil != nil && !now.Before(*s.LockedUntil) {
		return State{}
	}
	return s
}

// RecordFailure counts one failed password check. Reaching the threshold
// sets LockedUntil to now+Duration. A state that is still locked is
// returned unchanged; callers check IsLocked before verifying a password.
func (p Policy) RecordFailure(s State, now time.Time) State {
	if p.IsLocked(s, now) {
		return s
	}

	next := p.Expire(s, now)
	next.LoginAttempts++
	if next.LoginAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		next.LockedUntil = &until
	}
	return next
}

// RecordSuccess resets the counter after a verified password
func (p Policy) RecordSuccess(s State, now time.Time) State {
	return State{}
}

// Unlock clears any lock and the failure counter
func (p Policy) Unlock(s State) State {
	return State{}
}

package lockout_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/bastion/internal/lockout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func TestNewPolicy_Validation(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		duration  time.Duration
		wantErr   bool
	}{
		{"defaults", 5, 30 * time.Minute, false},
		{"zero threshold", 0, 30 * time.Minute, true},
		{"negative threshold", -3, 30 * time.Minute, true},
		{"zero duration", 5, 0, true},
		{"negative duration", 5, -time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := lockout.NewPolicy(tt.threshold, tt.duration)
			if tt.wantErr {
				assert.True(t, errors.Is(err, lockout.ErrInvalidPolicy))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.threshold, p.Threshold)
			assert.Equal(t, tt.duration, p.Duration)
		})
	}
}

func TestPolicy_LocksAtThreshold(t *testing.T) {
	p := lockout.DefaultPolicy()
	var s lockout.State

	for i := 1; i <= 4; i++ {
		s = p.RecordFailure(s, at(0))
		assert.Equal(t, i, s.LoginAttempts)
		assert.False(t, p.IsLocked(s, at(0)), "should not lock after %d failures", i)
		assert.Nil(t, s.LockedUntil)
	}

	s = p.RecordFailure(s, at(0))
	assert.Equal(t, 5, s.LoginAttempts)
	require.NotNil(t, s.LockedUntil)
	assert.Equal(t, at(1800), *s.LockedUntil)
	assert.True(t, p.IsLocked(s, at(0)))
}

func TestPolicy_LazyExpiry(t *testing.T) {
	p := lockout.DefaultPolicy()
	var s lockout.State
	for i := 0; i < 5; i++ {
		s = p.RecordFailure(s, at(0))
	}

	assert.True(t, p.IsLocked(s, at(1799)))
	assert.Equal(t, time.Second, p.RetryAfter(s, at(1799)))

	assert.False(t, p.IsLocked(s, at(1800)))
	assert.Zero(t, p.RetryAfter(s, at(1800)))
}

func TestPolicy_SuccessResets(t *testing.T) {
	p := lockout.DefaultPolicy()
	var s lockout.State
	for i := 0; i < 4; i++ {
		s = p.RecordFailure(s, at(int64(i)))
	}

	s = p.RecordSuccess(s, at(10))
	assert.Equal(t, 0, s.LoginAttempts)
	assert.Nil(t, s.LockedUntil)

	s = p.RecordFailure(s, at(11))
	assert.Equal(t, 1, s.LoginAttempts)
	assert.False(t, p.IsLocked(s, at(11)))
}

func TestPolicy_FailureWhileLockedIsIgnored(t *testing.T) {
	p := lockout.DefaultPolicy()
	var s lockout.State
	for i := 0; i < 5; i++ {
		s = p.RecordFailure(s, at(0))
	}

	next := p.RecordFailure(s, at(100))
	assert.Equal(t, s, next)
}

func TestPolicy_FailureAfterExpiryStartsOver(t *testing.T) {
	p := lockout.DefaultPolicy()
	var s lockout.State
	for i := 0; i < 5; i++ {
		s = p.RecordFailure(s, at(0))
	}

	s = p.RecordFailure(s, at(2000))
	assert.Equal(t, 1, s.LoginAttempts)
	assert.Nil(t, s.LockedUntil)
	assert.False(t, p.IsLocked(s, at(2000)))
}

func TestPolicy_ExpireLeavesActiveLockAlone(t *testing.T) {
	p := lockout.DefaultPolicy()
	until := at(100)
	s := lockout.State{LoginAttempts: 5, LockedUntil: &until}

	assert.Equal(t, s, p.Expire(s, at(99)))
	assert.Equal(t, lockout.State{}, p.Expire(s, at(100)))
}

func TestPolicy_Unlock(t *testing.T) {
	p := lockout.DefaultPolicy()
	until := at(100)
	s := lockout.State{LoginAttempts: 5, LockedUntil: &until}

	s = p.Unlock(s)
	assert.Equal(t, lockout.State{}, s)
	assert.False(t, p.IsLocked(s, at(0)))
}

func TestPolicy_CustomThresholdAndDuration(t *testing.T) {
	p, err := lockout.NewPolicy(3, 90*time.Second)
	require.NoError(t, err)

	var s lockout.State
	for i := 0; i < 3; i++ {
		s = p.RecordFailure(s, at(10))
	}
	require.NotNil(t, s.LockedUntil)
	assert.Equal(t, at(100), *s.LockedUntil)
}

func TestTracker_AcquireSerializesSameAccount(t *testing.T) {
	p, err := lockout.NewPolicy(10_000, time.Minute)
	require.NoError(t, err)
	tracker := lockout.NewTracker(p)

	var s lockout.State
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := tracker.Acquire("account-1")
			defer release()
			s = tracker.RecordFailure(s, at(0))
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, s.LoginAttempts)
}

func TestTracker_DelegatesToPolicy(t *testing.T) {
	tracker := lockout.NewTracker(lockout.DefaultPolicy())
	assert.Equal(t, lockout.DefaultPolicy(), tracker.Policy())

	var s lockout.State
	for i := 0; i < 5; i++ {
		s = tracker.RecordFailure(s, at(0))
	}
	assert.True(t, tracker.IsLocked(s, at(1)))
	assert.Equal(t, 1799*time.Second, tracker.RetryAfter(s, at(1)))

	s = tracker.Unlock(s)
	assert.False(t, tracker.IsLocked(s, at(1)))

	s = tracker.RecordSuccess(tracker.RecordFailure(s, at(2)), at(3))
	assert.Equal(t, 0, s.LoginAttempts)
}

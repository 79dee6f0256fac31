package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// recordSleeps swaps the sleeper for one that records requested durations
func recordSleeps(td *TimingDelay) *[]time.Duration {
	var slept []time.Duration
	td.sleep = func(d time.Duration) { slept = append(slept, d) }
	return &slept
}

func TestTimingDelay_Wait_OnFailure(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 100, RandomDelayMs: 50})
	slept := recordSleeps(td)

	td.Wait(false)

	assert.Len(t, *slept, 1)
	assert.GreaterOrEqual(t, (*slept)[0], 100*time.Millisecond)
	assert.Less(t, (*slept)[0], 150*time.Millisecond)
}

func TestTimingDelay_Wait_OnSuccess_NoDelay(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 100, RandomDelayMs: 50})
	slept := recordSleeps(td)

	td.Wait(true)

	assert.Empty(t, *slept)
}

func TestTimingDelay_Wait_OnSuccess_WithDelay(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 100, DelayOnSuccess: true})
	slept := recordSleeps(td)

	td.Wait(true)

	assert.Equal(t, []time.Duration{100 * time.Millisecond}, *slept)
}

func TestTimingDelay_WaitFrom_AdjustsForElapsedTime(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 100})
	slept := recordSleeps(td)

	td.WaitFrom(time.Now().Add(-60*time.Millisecond), false)

	assert.Len(t, *slept, 1)
	assert.LessOrEqual(t, (*slept)[0], 40*time.Millisecond)
	assert.Greater(t, (*slept)[0], time.Duration(0))
}

func TestTimingDelay_WaitFrom_AlreadyPastTarget(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 100})
	slept := recordSleeps(td)

	td.WaitFrom(time.Now().Add(-time.Second), false)

	assert.Empty(t, *slept)
}

func TestTimingDelay_NilNeverSleeps(t *testing.T) {
	var td *TimingDelay
	assert.NotPanics(t, func() {
		td.Wait(false)
		td.WaitFrom(time.Now(), false)
	})
}

func TestTimingDelay_RealSleep(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelayMs: 20})
	start := time.Now()

	td.Wait(false)

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelayMs    int  // Base delay in milliseconds
	RandomDelayMs  int  // Random delay range in milliseconds
	DelayOnSuccess bool // If true, delay even on successful login
}

// DefaultTimingConfig pads failed logins to 250-350ms
func DefaultTimingConfig() TimingConfig {
	return TimingConfig{BaseDelayMs: 250, RandomDelayMs: 100}
}

// TimingDelay pads authentication responses so that "unknown email",
// "wrong password" and "locked" take about the same wall time.
// A nil *TimingDelay never sleeps.
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  time.Sleep,
	}
}

// cryptoRandIntn returns a random number in [0, max) from crypto/rand
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return int(binary.BigEndian.Uint64(b[:]) % uint64(max)), nil
}

func (td *TimingDelay) target() time.Duration {
	d := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if n, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			d += time.Duration(n) * time.Millisecond
		}
	}
	return d
}

func (td *TimingDelay) skip(success bool) bool {
	return td == nil || (success && !td.config.DelayOnSuccess)
}

// Wait sleeps for base + random delay
func (td *TimingDelay) Wait(success bool) {
	if td.skip(success) {
		return
	}
	if d := td.target(); d > 0 {
		td.sleep(d)
	}
}

// WaitFrom sleeps until at least base + random delay has passed since start
func (td *TimingDelay) WaitFrom(start time.Time, success bool) {
	if td.skip(success) {
		return
	}
	if remaining := td.target() - time.Since(start); remaining > 0 {
		td.sleep(remaining)
	}
}

package connection

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Default reconnect policy values.
const (
	defaultMaxRetries   = 20
	defaultInitialDelay = 2 * time.Second
	defaultMaxDelay     = 120 * time.Second
	defaultMultiplier   = 2.0
)

// ReconnectPolicy controls reconnection backoff. Immutable after
// construction; validated before use.
type ReconnectPolicy struct {
	// MaxRetries is the number of attempts before giving up and
	// entering Failed.
	MaxRetries int

	// InitialDelay is the pre-jitter delay for the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor per attempt.
	Multiplier float64

	// Jitter draws the final delay uniformly from [0, delay] to keep
	// many clients from retrying in lockstep.
	Jitter bool
}

// DefaultReconnectPolicy returns the stock policy: 20 retries, 2s
// initial delay doubling to a 120s cap, full jitter.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		MaxRetries:   defaultMaxRetries,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   defaultMultiplier,
		Jitter:       true,
	}
}

// Validate checks the policy invariants.
func (p ReconnectPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be >= 0, got %d", ErrInvalidPolicy, p.MaxRetries)
	}
	if p.InitialDelay <= 0 {
		return fmt.Errorf("%w: initial delay must be > 0, got %v", ErrInvalidPolicy, p.InitialDelay)
	}
	if p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("%w: max delay %v < initial delay %v", ErrInvalidPolicy, p.MaxDelay, p.InitialDelay)
	}
	if p.Multiplier <= 1 {
		return fmt.Errorf("%w: multiplier must be > 1, got %v", ErrInvalidPolicy, p.Multiplier)
	}
	return nil
}

// Delay returns the pre-jitter delay for the given attempt number
// (0-based): min(maxDelay, initialDelay × multiplier^attempt).
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// NextDelay returns the actual delay for the given attempt, applying
// full jitter when enabled. rnd supplies a uniform value in [0, 1);
// pass nil for the package random source.
func (p ReconnectPolicy) NextDelay(attempt int, rnd func() float64) time.Duration {
	d := p.Delay(attempt)
	if !p.Jitter {
		return d
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	return time.Duration(rnd() * float64(d))
}

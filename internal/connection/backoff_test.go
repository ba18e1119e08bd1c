package connection

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

// =============================================================================
// Delay Computation Tests
// =============================================================================

func TestReconnectPolicy_DelayGrowth(t *testing.T) {
	p := DefaultReconnectPolicy()

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{5, 64 * time.Second},
		{6, 120 * time.Second}, // 128s capped
		{20, 120 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.expected {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

func TestReconnectPolicy_DelayBounds(t *testing.T) {
	p := DefaultReconnectPolicy()

	for attempt := 0; attempt <= 50; attempt++ {
		d := p.Delay(attempt)
		if d < p.InitialDelay || d > p.MaxDelay {
			t.Errorf("Delay(%d) = %v, outside [%v, %v]", attempt, d, p.InitialDelay, p.MaxDelay)
		}
	}
}

func TestReconnectPolicy_JitterRange(t *testing.T) {
	p := DefaultReconnectPolicy()

	tests := []struct {
		rnd      float64
		expected time.Duration
	}{
		{0, 0},
		{0.5, time.Second},
		{0.999, time.Duration(0.999 * float64(2*time.Second))},
	}

	for _, tt := range tests {
		got := p.NextDelay(0, func() float64 { return tt.rnd })
		if got != tt.expected {
			t.Errorf("NextDelay(0) with rnd=%v = %v, want %v", tt.rnd, got, tt.expected)
		}
	}
}

func TestReconnectPolicy_JitterDisabled(t *testing.T) {
	p := DefaultReconnectPolicy()
	p.Jitter = false

	// rnd must be ignored entirely.
	got := p.NextDelay(1, func() float64 { return 0.1 })
	if got != 4*time.Second {
		t.Errorf("NextDelay(1) without jitter = %v, want 4s", got)
	}
}

// Ten clients with identical policy must not retry in lockstep: full
// jitter spreads attempts across [0, delay].
func TestReconnectPolicy_JitterSpread(t *testing.T) {
	p := DefaultReconnectPolicy()
	base := p.Delay(3)

	delays := make([]time.Duration, 10)
	for i := range delays {
		rng := rand.New(rand.NewSource(int64(i + 1)))
		delays[i] = p.NextDelay(3, rng.Float64)
	}

	lo, hi := delays[0], delays[0]
	for _, d := range delays {
		if d > base {
			t.Errorf("jittered delay %v exceeds base %v", d, base)
		}
		if d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}

	// Clustered at the cap would mean jitter is not being applied.
	if hi-lo < base/4 {
		t.Errorf("delays clustered: spread %v over base %v", hi-lo, base)
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestReconnectPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ReconnectPolicy)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(p *ReconnectPolicy) {},
		},
		{
			name:    "negative max retries",
			mutate:  func(p *ReconnectPolicy) { p.MaxRetries = -1 },
			wantErr: true,
		},
		{
			name:    "zero initial delay",
			mutate:  func(p *ReconnectPolicy) { p.InitialDelay = 0 },
			wantErr: true,
		},
		{
			name:    "max delay below initial",
			mutate:  func(p *ReconnectPolicy) { p.MaxDelay = time.Second },
			wantErr: true,
		},
		{
			name:    "multiplier not above one",
			mutate:  func(p *ReconnectPolicy) { p.Multiplier = 1.0 },
			wantErr: true,
		},
		{
			name:   "zero retries allowed",
			mutate: func(p *ReconnectPolicy) { p.MaxRetries = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultReconnectPolicy()
			tt.mutate(&p)

			err := p.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("Validate() error = %v, want ErrInvalidPolicy", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

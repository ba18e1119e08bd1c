package connection

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingRequester struct {
	calls atomic.Int64
	err   error
}

func (c *countingRequester) RequestStatus() error {
	c.calls.Add(1)
	return c.err
}

func waitForCalls(t *testing.T, r *countingRequester, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.calls.Load() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("requester calls = %d, want >= %d", r.calls.Load(), n)
}

func TestPoller_FiresImmediatelyThenOnInterval(t *testing.T) {
	r := &countingRequester{}
	p := NewPoller(r, nil)

	if err := p.Start(10 * time.Millisecond); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	waitForCalls(t, r, 3)
}

func TestPoller_StopIsSynchronous(t *testing.T) {
	r := &countingRequester{}
	p := NewPoller(r, nil)

	if err := p.Start(5 * time.Millisecond); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForCalls(t, r, 2)

	p.Stop()
	after := r.calls.Load()

	// No further polls once Stop has returned.
	time.Sleep(30 * time.Millisecond)
	if got := r.calls.Load(); got != after {
		t.Errorf("polls after Stop: %d -> %d", after, got)
	}
	if p.Running() {
		t.Error("Running() = true after Stop")
	}
}

func TestPoller_Restartable(t *testing.T) {
	r := &countingRequester{}
	p := NewPoller(r, nil)

	if err := p.Start(5 * time.Millisecond); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForCalls(t, r, 1)
	p.Stop()

	before := r.calls.Load()
	if err := p.Start(5 * time.Millisecond); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	defer p.Stop()

	waitForCalls(t, r, before+2)
}

func TestPoller_DoubleStartRejected(t *testing.T) {
	r := &countingRequester{}
	p := NewPoller(r, nil)

	if err := p.Start(time.Hour); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	if err := p.Start(time.Hour); err == nil {
		t.Error("second Start() succeeded, want error")
	}
}

func TestPoller_InvalidInterval(t *testing.T) {
	p := NewPoller(&countingRequester{}, nil)
	if err := p.Start(0); err == nil {
		t.Error("Start(0) succeeded, want error")
	}
}

func TestPoller_StopWhenNeverStarted(t *testing.T) {
	p := NewPoller(&countingRequester{}, nil)
	p.Stop() // must not panic or block
}

func TestPoller_RequestErrorsDoNotStopLoop(t *testing.T) {
	r := &countingRequester{err: errors.New("not connected")}
	p := NewPoller(r, nil)

	if err := p.Start(5 * time.Millisecond); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	// Fire-and-forget: failures are logged and the loop keeps going.
	waitForCalls(t, r, 3)
}

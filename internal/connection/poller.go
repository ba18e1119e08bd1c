package connection

import (
	"errors"
	"sync"
	"time"
)

// StatusRequester is the slice of Manager the poller drives.
type StatusRequester interface {
	RequestStatus() error
}

// Poller fires a status poll at a fixed interval, independent of
// whether the previous response arrived. Restart-safe: Start after
// Stop begins a fresh timer; Start while running is rejected. Stop
// is synchronous: when it returns, no further polls will be issued.
type Poller struct {
	requester StatusRequester
	logger    Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewPoller builds a stopped poller.
func NewPoller(requester StatusRequester, logger Logger) *Poller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Poller{
		requester: requester,
		logger:    logger,
	}
}

// Start launches the polling loop. The first poll fires immediately,
// subsequent polls every interval.
func (p *Poller) Start(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("connection: polling interval must be > 0")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("connection: poller already running")
	}
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	go p.loop(interval, p.stop, p.done)
	return nil
}

// Stop halts polling and waits for the loop goroutine to exit. Safe
// to call on a stopped poller.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stop := p.stop
	done := p.done
	p.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.poll()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll issues one fire-and-forget status request. Failures are
// logged, not propagated: the next tick tries again, and a transient
// disconnect heals through the manager's own reconnection.
func (p *Poller) poll() {
	if err := p.requester.RequestStatus(); err != nil {
		p.logger.Warn("status poll failed", "error", err)
	}
}

package connection

import (
	"fmt"
	"sync"
)

// State is the connection lifecycle state. Transitions are restricted
// to the edges in validTransitions; in particular Connected never
// goes directly back to Connecting, and Failed is terminal until an
// explicit Reset.
type State int

// Connection states.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// validTransitions enumerates the allowed edges. An explicit
// disconnect (any state → Disconnected) is handled separately in
// stateMachine.disconnect, which is also the only exit from Failed.
var validTransitions = map[State][]State{
	StateDisconnected: {StateConnecting},
	StateConnecting:   {StateConnected, StateReconnecting, StateFailed},
	StateConnected:    {StateReconnecting},
	StateReconnecting: {StateConnecting, StateFailed},
	StateFailed:       {},
}

func validTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// stateMachine guards the connection state. It is the single owner;
// all mutation goes through transition or disconnect.
type stateMachine struct {
	mu    sync.RWMutex
	state State
}

func (sm *stateMachine) current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// transition moves along a validated edge.
func (sm *stateMachine) transition(to State) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !validTransition(sm.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, sm.state, to)
	}
	sm.state = to
	return nil
}

// disconnect forces Disconnected from any state except Failed, which
// requires reset.
func (sm *stateMachine) disconnect() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state == StateFailed {
		return
	}
	sm.state = StateDisconnected
}

// reset clears Failed back to Disconnected. A no-op in any other
// state.
func (sm *stateMachine) reset() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state == StateFailed {
		sm.state = StateDisconnected
	}
}

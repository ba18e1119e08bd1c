package connection

import "errors"

// Domain-specific errors for the connection manager.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrAuthenticationFailed is returned when the broker rejects the
	// handshake. Not retryable: a retry with the same credentials will
	// fail the same way, so the manager goes straight to Failed.
	ErrAuthenticationFailed = errors.New("connection: authentication failed")

	// ErrConnectTimeout is returned when a single connect attempt
	// exceeds its bound. Retryable.
	ErrConnectTimeout = errors.New("connection: connect timeout")

	// ErrRetriesExhausted is returned when the retry budget runs out.
	ErrRetriesExhausted = errors.New("connection: retry budget exhausted")

	// ErrCommandTimeout is returned to a caller whose correlated
	// response did not arrive in time. Other in-flight operations are
	// unaffected.
	ErrCommandTimeout = errors.New("connection: command timed out")

	// ErrDeviceOffline is returned when the device's response channel
	// reports it unreachable.
	ErrDeviceOffline = errors.New("connection: device offline")

	// ErrNotConnected is returned for operations that need an active
	// session.
	ErrNotConnected = errors.New("connection: not connected")

	// ErrInvalidTransition is returned for a state change outside the
	// allowed edges.
	ErrInvalidTransition = errors.New("connection: invalid state transition")

	// ErrInvalidPolicy is returned for a reconnect policy that fails
	// validation.
	ErrInvalidPolicy = errors.New("connection: invalid reconnect policy")

	// ErrClosed is returned once Disconnect has been called.
	ErrClosed = errors.New("connection: manager closed")
)

package telemetry

import "errors"

// Sentinel errors for telemetry operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected indicates the sink is not connected to InfluxDB.
	ErrNotConnected = errors.New("telemetry: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("telemetry: connection failed")

	// ErrDisabled indicates telemetry is disabled in configuration.
	ErrDisabled = errors.New("telemetry: disabled in configuration")
)

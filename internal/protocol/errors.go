package protocol

import (
	"errors"
	"fmt"
)

// Domain-specific errors for protocol encoding and decoding.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDecode is the root of all decode failures. Decode errors are
	// non-fatal by contract: the caller logs, drops the frame, and
	// keeps the read loop alive.
	ErrDecode = errors.New("protocol: decode failed")

	// ErrFrameTooShort is returned when a payload is shorter than the
	// minimum length for its frame type.
	ErrFrameTooShort = fmt.Errorf("%w: frame too short", ErrDecode)

	// ErrInvalidDHWMode is returned for a DHW mode outside 2-6.
	ErrInvalidDHWMode = errors.New("protocol: invalid DHW mode")

	// ErrTemperatureOutOfRange is returned for a target temperature
	// outside the device's 70-131°F setting range.
	ErrTemperatureOutOfRange = errors.New("protocol: temperature out of range")
)

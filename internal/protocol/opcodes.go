package protocol

import "fmt"

// Opcode identifies a device command on the wire.
type Opcode uint32

// Known opcodes, captured from real device traffic.
const (
	// OpGetDeviceInfo requests device information (DID).
	OpGetDeviceInfo Opcode = 16777217

	// OpGetStatus requests the full status table. This is the primary
	// polling command.
	OpGetStatus Opcode = 16777219

	// OpGetReservations requests the reservation schedule.
	OpGetReservations Opcode = 16777222

	// OpSetDHWMode sets the domestic hot water operating mode.
	// Validated against captured traffic.
	OpSetDHWMode Opcode = 33554437
)

// OpSetTemperature sets the target DHW temperature.
//
// This opcode is estimated by pattern from OpSetDHWMode and has not
// been independently confirmed against captured device traffic. It is
// a variable rather than a constant so integrators can override it if
// firmware analysis shows a different value.
var OpSetTemperature Opcode = 33554438

// String returns the symbolic name for logging.
func (o Opcode) String() string {
	switch o {
	case OpGetDeviceInfo:
		return "GetDeviceInfo"
	case OpGetStatus:
		return "GetStatus"
	case OpGetReservations:
		return "GetReservations"
	case OpSetDHWMode:
		return "SetDHWMode"
	case OpSetTemperature:
		return "SetTemperature"
	default:
		return fmt.Sprintf("Opcode(%d)", uint32(o))
	}
}

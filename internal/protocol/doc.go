// Package protocol implements the NaviLink wire protocol.
//
// Two payload forms exist on the command channel:
//
//   - Binary request frames: a 4-byte big-endian opcode, a 4-byte
//     device identifier (UTF-8, truncated or zero-padded), and optional
//     parameter bytes. Used for fire-and-forget status polling.
//   - JSON control envelopes: a structured request carrying the client
//     ID, protocol version 2, the target device address, a symbolic
//     mode name, the integer opcode, and a parameter array. Used for
//     write commands (DHW mode, target temperature).
//
// Status responses are fixed-offset binary tables decoded into
// RawStatus: every known field declared explicitly, unknown trailing
// bytes preserved in Extra for forward compatibility with firmware
// that appends fields. Decoding never interprets values; unit
// conversion and calibration live in the status package.
//
// Two wire fields are misleadingly named by the vendor:
// tankUpperTemperature actually measures the cold water inlet and
// tankLowerTemperature the heat pump intake air. The raw layer keeps
// the wire names for fidelity; the status package exposes the renamed
// semantic accessors.
package protocol

// Package status turns a raw decoded status table into a calibrated,
// display-unit DeviceStatus value.
//
// Normalization is a pure function of the raw table: no I/O, no hidden
// state, deterministic output. The transform rules are empirical, taken
// from the vendor's own app behaviour rather than any protocol document:
//
//   - DHW temperatures carry a fixed calibration offset (+20°F on read,
//     -20°F on write) to match what the app and front panel display.
//   - Several heat-pump sensors report in 0.1°F units and are divided
//     by ten.
//   - The outside sensor reports whole °C and is converted to °F.
//   - Component status codes are a three-value scale (off/ready/active),
//     but "ready" does not mean running: actual heating activity is
//     inferred from instantaneous power draw, which is authoritative
//     over the status codes.
//
// The raw layer keeps the vendor's misleading wire names; this package
// performs the honest renaming. TankUpperTemperature is exposed as the
// cold water inlet and TankLowerTemperature as the heat pump intake air
// temperature.
//
// Normalization never fails: out-of-range values are clamped and noted
// in DeviceStatus.Flags so one bad field cannot discard a frame.
package status

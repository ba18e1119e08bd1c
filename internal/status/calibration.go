package status

// DefaultCalibrationOffset is the empirically derived correction, in
// whole °F, between the wire value of the DHW temperature fields and
// what the vendor's app displays. Not protocol-mandated, so it stays
// configurable.
const DefaultCalibrationOffset = 20

// Calibration converts DHW temperature fields between wire units and
// display °F. FromRaw and ToRaw are exact integer inverses.
type Calibration struct {
	// Offset is added on read and subtracted on write.
	Offset int
}

// DefaultCalibration applies the stock +20°F correction.
var DefaultCalibration = Calibration{Offset: DefaultCalibrationOffset}

// FromRaw converts a wire temperature to display °F.
func (c Calibration) FromRaw(raw int) int {
	return raw + c.Offset
}

// ToRaw converts a display °F temperature to the wire value sent to
// the device.
func (c Calibration) ToRaw(display int) int {
	return display - c.Offset
}

// celsiusToFahrenheit converts the outside sensor's whole-°C reading
// to the display scale used everywhere else, rounding to the nearest
// whole degree (half away from zero).
func celsiusToFahrenheit(celsius int) int {
	f9 := celsius * 9
	if f9 >= 0 {
		return (f9+2)/5 + 32
	}
	return (f9-2)/5 + 32
}

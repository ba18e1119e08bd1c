package status

import (
	"fmt"
	"time"

	"github.com/nerrad567/navilink-core/internal/protocol"
)

// Power thresholds, in watts, observed from real operating data. The
// heat pump draws roughly 425-475W when running; the resistive backup
// elements push total draw past 4kW.
const (
	activePowerThreshold = 400
	backupPowerThreshold = 4000
)

// OperationMode is the device's reported operating mode code.
type OperationMode int

// Mode codes captured from real device traffic.
const (
	ModeStandby        OperationMode = 0
	ModeHeatPump       OperationMode = 32
	ModeElectricBackup OperationMode = 33
	ModeHybrid         OperationMode = 34
)

// Label returns the symbolic mode name. Unknown codes return
// "unknown" rather than erroring; firmware updates add codes.
func (m OperationMode) Label() string {
	switch m {
	case ModeStandby:
		return "standby"
	case ModeHeatPump:
		return "heat_pump"
	case ModeElectricBackup:
		return "electric_backup"
	case ModeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// Activity is the derived heating activity, inferred from power draw.
type Activity string

// Activity labels. Power draw is authoritative: a component status
// code of 1 means "ready", not "running".
const (
	ActivityStandby Activity = "standby"
	ActivityActive  Activity = "active"
)

// Component is the three-value status scale used by per-component
// fields (compressor, heating elements, evaporator fan).
type Component int

// Component status codes.
const (
	ComponentOff    Component = 0
	ComponentReady  Component = 1
	ComponentActive Component = 2
)

// Label returns the symbolic component state.
func (c Component) Label() string {
	switch c {
	case ComponentOff:
		return "off"
	case ComponentReady:
		return "ready"
	case ComponentActive:
		return "active"
	default:
		return "unknown"
	}
}

// DeviceStatus is the normalized, display-unit view of one status
// frame. Values are immutable once created; a new frame produces a
// new value.
//
// Temperature fields are display °F. The two honestly-renamed sensors
// are ColdInletTemperature (wire name tankUpperTemperature) and
// HeatPumpAmbientTemperature (wire name tankLowerTemperature) - the
// wire names survive on protocol.RawStatus for debugging.
type DeviceStatus struct {
	// ReceivedAt is when the frame was normalized.
	ReceivedAt time.Time

	// Connected is true for any decoded frame; a device that is
	// publishing status is reachable.
	Connected bool

	// Mode is the reported operating mode with its derived label.
	Mode      OperationMode
	ModeLabel string

	// Activity is derived from PowerWatts, not from Mode or any
	// component status code.
	Activity Activity

	// ElectricBackupActive is true when power draw indicates the
	// resistive elements are engaged.
	ElectricBackupActive bool

	// PowerWatts is instantaneous power draw.
	PowerWatts int

	ErrorCode    int
	SubErrorCode int

	// ChargePercent is stored thermal energy relative to capacity at
	// the current setpoint, clamped to 0-100.
	ChargePercent int

	// DHWInUse is true while hot water is being drawn.
	DHWInUse bool

	// DHWSetting is the configured water heating mode (heat pump only,
	// hybrid, electric only, energy saver, high demand) with its label.
	// Distinct from Mode, which reports what the unit is doing now.
	DHWSetting      protocol.DHWMode
	DHWSettingLabel string

	// Calibrated DHW temperatures in display °F.
	DHWTemperature              int
	DHWTemperatureSetting       int
	DHWTargetTemperatureSetting int

	// Tenths-unit sensors, converted to °F.
	ColdInletTemperature       float64
	HeatPumpAmbientTemperature float64
	DischargeTemperature       float64
	SuctionTemperature         float64
	EvaporatorTemperature      float64
	AmbientTemperature         float64

	// OutsideTemperature arrives in °C and is converted to °F here.
	OutsideTemperature int

	WifiRSSI int

	// Per-component states. HeatingElement combines the upper and
	// lower resistive elements, taking the more active of the two.
	Compressor     Component
	EvaporatorFan  Component
	HeatingElement Component

	FlowRate float64

	// Flags records fields that were clamped or otherwise suspect.
	// A flagged field never fails the frame.
	Flags []string
}

// Normalizer converts raw status tables to DeviceStatus values.
type Normalizer struct {
	calibration Calibration
}

// NewNormalizer builds a normalizer with the given calibration. Use
// DefaultCalibration unless the device is known to deviate.
func NewNormalizer(calibration Calibration) *Normalizer {
	return &Normalizer{calibration: calibration}
}

// Normalize converts one raw status table.
//
// Never returns an error: out-of-range values are clamped and noted
// in Flags so a single bad field cannot discard the frame.
func (n *Normalizer) Normalize(raw *protocol.RawStatus, at time.Time) DeviceStatus {
	s := DeviceStatus{
		ReceivedAt: at,
		Connected:  true,

		Mode:      OperationMode(raw.OperationMode),
		ModeLabel: OperationMode(raw.OperationMode).Label(),

		PowerWatts:   raw.CurrentInstPower,
		ErrorCode:    raw.ErrorCode,
		SubErrorCode: raw.SubErrorCode,
		DHWInUse:     raw.DHWUse != 0,
		DHWSetting:   protocol.DHWMode(raw.DHWOperationSetting),

		DHWTemperature:              n.calibration.FromRaw(raw.DHWTemperature),
		DHWTemperatureSetting:       n.calibration.FromRaw(raw.DHWTemperatureSetting),
		DHWTargetTemperatureSetting: n.calibration.FromRaw(raw.DHWTargetTemperatureSetting),

		ColdInletTemperature:       tenths(raw.TankUpperTemperature),
		HeatPumpAmbientTemperature: tenths(raw.TankLowerTemperature),
		DischargeTemperature:       tenths(raw.DischargeTemperature),
		SuctionTemperature:         tenths(raw.SuctionTemperature),
		EvaporatorTemperature:      tenths(raw.EvaporatorTemperature),
		AmbientTemperature:         tenths(raw.AmbientTemperature),

		OutsideTemperature: celsiusToFahrenheit(raw.OutsideTemperature),

		WifiRSSI: raw.WifiRSSI,

		Compressor:     Component(raw.CompUse),
		EvaporatorFan:  Component(raw.EvaFanUse),
		HeatingElement: heaterState(raw.HeatUpperUse, raw.HeatLowerUse),

		FlowRate: tenths(raw.CurrentDHWFlowRate),
	}

	// Power draw is authoritative over mode and component codes.
	if raw.CurrentInstPower > activePowerThreshold {
		s.Activity = ActivityActive
	} else {
		s.Activity = ActivityStandby
	}
	s.ElectricBackupActive = raw.CurrentInstPower > backupPowerThreshold

	s.ChargePercent = raw.DHWChargePer
	if s.ChargePercent < 0 || s.ChargePercent > 100 {
		s.Flags = append(s.Flags, fmt.Sprintf("charge_percent clamped from %d", raw.DHWChargePer))
		s.ChargePercent = clamp(s.ChargePercent, 0, 100)
	}

	if !ValidMode(s.Mode) {
		s.Flags = append(s.Flags, fmt.Sprintf("unknown operation mode %d", raw.OperationMode))
	}

	if s.DHWSetting.Valid() {
		s.DHWSettingLabel = s.DHWSetting.String()
	} else {
		s.DHWSettingLabel = "unknown"
		s.Flags = append(s.Flags, fmt.Sprintf("unknown dhw setting %d", raw.DHWOperationSetting))
	}

	return s
}

// ValidMode reports whether the mode code is one of the known values.
func ValidMode(m OperationMode) bool {
	switch m {
	case ModeStandby, ModeHeatPump, ModeElectricBackup, ModeHybrid:
		return true
	default:
		return false
	}
}

func tenths(raw int) float64 {
	return float64(raw) / 10.0
}

// heaterState combines the upper and lower element codes, reporting
// the more active of the two.
func heaterState(upper, lower int) Component {
	if upper == int(ComponentActive) || lower == int(ComponentActive) {
		return ComponentActive
	}
	if upper == int(ComponentReady) || lower == int(ComponentReady) {
		return ComponentReady
	}
	return ComponentOff
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

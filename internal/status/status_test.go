package status

import (
	"testing"
	"time"

	"github.com/nerrad567/navilink-core/internal/protocol"
)

var testTime = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

// =============================================================================
// Calibration Tests
// =============================================================================

func TestCalibration_RoundTrip(t *testing.T) {
	cal := DefaultCalibration

	for raw := 50; raw <= 131; raw++ {
		display := cal.FromRaw(raw)
		if got := cal.ToRaw(display); got != raw {
			t.Errorf("ToRaw(FromRaw(%d)) = %d, want %d", raw, got, raw)
		}
	}
}

func TestCalibration_KnownValues(t *testing.T) {
	cal := DefaultCalibration

	// Raw 101 is displayed as 121 in the vendor app.
	if got := cal.FromRaw(101); got != 121 {
		t.Errorf("FromRaw(101) = %d, want 121", got)
	}
	if got := cal.ToRaw(121); got != 101 {
		t.Errorf("ToRaw(121) = %d, want 101", got)
	}
}

func TestCalibration_CustomOffset(t *testing.T) {
	cal := Calibration{Offset: 15}

	if got := cal.FromRaw(100); got != 115 {
		t.Errorf("FromRaw(100) = %d, want 115", got)
	}
	if got := cal.ToRaw(cal.FromRaw(87)); got != 87 {
		t.Errorf("round trip with custom offset failed, got %d", got)
	}
}

func TestCelsiusToFahrenheit(t *testing.T) {
	tests := []struct {
		celsius  int
		expected int
	}{
		{0, 32},
		{100, 212},
		{22, 72}, // 71.6 rounds up
		{-10, 14},
		{-40, -40},
		{1, 34}, // 33.8 rounds up
	}

	for _, tt := range tests {
		if got := celsiusToFahrenheit(tt.celsius); got != tt.expected {
			t.Errorf("celsiusToFahrenheit(%d) = %d, want %d", tt.celsius, got, tt.expected)
		}
	}
}

// =============================================================================
// Normalization Tests
// =============================================================================

// baseRaw returns a plausible mid-heating raw table for tests to
// tweak per case.
func baseRaw() *protocol.RawStatus {
	return &protocol.RawStatus{
		Command:                     int(protocol.OpGetStatus),
		OutsideTemperature:          22,
		OperationMode:               int(ModeHeatPump),
		DHWUse:                      1,
		DHWOperationSetting:         int(protocol.DHWModeHeatPumpOnly),
		DHWTemperature:              101,
		DHWTemperatureSetting:       101,
		DHWTargetTemperatureSetting: 101,
		TankUpperTemperature:        605,
		TankLowerTemperature:        680,
		DischargeTemperature:        1450,
		SuctionTemperature:          610,
		EvaporatorTemperature:       590,
		AmbientTemperature:          684,
		CompUse:                     int(ComponentActive),
		EvaFanUse:                   int(ComponentActive),
		CurrentInstPower:            450,
		DHWChargePer:                97,
		WifiRSSI:                    -58,
		CurrentDHWFlowRate:          25,
	}
}

func TestNormalize_TemperatureConversions(t *testing.T) {
	n := NewNormalizer(DefaultCalibration)

	s := n.Normalize(baseRaw(), testTime)

	if s.DHWTemperature != 121 {
		t.Errorf("DHWTemperature = %d, want 121 (raw 101 + offset 20)", s.DHWTemperature)
	}
	if s.ColdInletTemperature != 60.5 {
		t.Errorf("ColdInletTemperature = %v, want 60.5 (raw 605 tenths)", s.ColdInletTemperature)
	}
	if s.HeatPumpAmbientTemperature != 68.0 {
		t.Errorf("HeatPumpAmbientTemperature = %v, want 68.0", s.HeatPumpAmbientTemperature)
	}
	if s.AmbientTemperature != 68.4 {
		t.Errorf("AmbientTemperature = %v, want 68.4", s.AmbientTemperature)
	}
	if s.OutsideTemperature != 72 {
		t.Errorf("OutsideTemperature = %d, want 72 (22°C)", s.OutsideTemperature)
	}
	if s.FlowRate != 2.5 {
		t.Errorf("FlowRate = %v, want 2.5", s.FlowRate)
	}
}

func TestNormalize_PowerOverStatusRule(t *testing.T) {
	n := NewNormalizer(DefaultCalibration)

	tests := []struct {
		name             string
		mode             int
		power            int
		compUse          int
		expectedActivity Activity
		expectedBackup   bool
	}{
		{
			name:             "heat pump running",
			mode:             int(ModeHeatPump),
			power:            450,
			compUse:          int(ComponentActive),
			expectedActivity: ActivityActive,
		},
		{
			name: "standby with ready component stays standby",
			// A component code of 1 means ready, not running; the
			// power draw decides.
			mode:             int(ModeStandby),
			power:            1,
			compUse:          int(ComponentReady),
			expectedActivity: ActivityStandby,
		},
		{
			name:             "electric backup engaged",
			mode:             int(ModeElectricBackup),
			power:            4500,
			compUse:          int(ComponentOff),
			expectedActivity: ActivityActive,
			expectedBackup:   true,
		},
		{
			name:             "at threshold is not active",
			mode:             int(ModeHeatPump),
			power:            400,
			compUse:          int(ComponentActive),
			expectedActivity: ActivityStandby,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := baseRaw()
			raw.OperationMode = tt.mode
			raw.CurrentInstPower = tt.power
			raw.CompUse = tt.compUse

			s := n.Normalize(raw, testTime)

			if s.Activity != tt.expectedActivity {
				t.Errorf("Activity = %q, want %q", s.Activity, tt.expectedActivity)
			}
			if s.ElectricBackupActive != tt.expectedBackup {
				t.Errorf("ElectricBackupActive = %v, want %v", s.ElectricBackupActive, tt.expectedBackup)
			}
		})
	}
}

func TestNormalize_ModeLabels(t *testing.T) {
	n := NewNormalizer(DefaultCalibration)

	tests := []struct {
		mode     int
		expected string
	}{
		{0, "standby"},
		{32, "heat_pump"},
		{33, "electric_backup"},
		{34, "hybrid"},
		{99, "unknown"},
	}

	for _, tt := range tests {
		raw := baseRaw()
		raw.OperationMode = tt.mode

		s := n.Normalize(raw, testTime)
		if s.ModeLabel != tt.expected {
			t.Errorf("mode %d label = %q, want %q", tt.mode, s.ModeLabel, tt.expected)
		}
	}
}

func TestNormalize_DHWSettingLabels(t *testing.T) {
	n := NewNormalizer(DefaultCalibration)

	tests := []struct {
		setting  int
		expected string
	}{
		{int(protocol.DHWModeHeatPumpOnly), "heat_pump_only"},
		{int(protocol.DHWModeHybrid), "hybrid"},
		{int(protocol.DHWModeElectricOnly), "electric_only"},
		{int(protocol.DHWModeEnergySaver), "energy_saver"},
		{int(protocol.DHWModeHighDemand), "high_demand"},
		{0, "unknown"},
		{99, "unknown"},
	}

	for _, tt := range tests {
		raw := baseRaw()
		raw.DHWOperationSetting = tt.setting

		s := n.Normalize(raw, testTime)
		if s.DHWSettingLabel != tt.expected {
			t.Errorf("setting %d label = %q, want %q", tt.setting, s.DHWSettingLabel, tt.expected)
		}
		if int(s.DHWSetting) != tt.setting {
			t.Errorf("DHWSetting = %d, want %d preserved", s.DHWSetting, tt.setting)
		}
	}
}

func TestNormalize_UnknownDHWSettingFlagged(t *testing.T) {
	n := NewNormalizer(DefaultCalibration)

	raw := baseRaw()
	raw.DHWOperationSetting = 99

	s := n.Normalize(raw, testTime)
	if len(s.Flags) == 0 {
		t.Error("unknown dhw setting should be flagged, got no flags")
	}
}

func TestNormalize_UnknownModeFlagged(t *testing.T) {
	n := NewNormalizer(DefaultCalibration)

	raw := baseRaw()
	raw.OperationMode = 99

	s := n.Normalize(raw, testTime)
	if len(s.Flags) == 0 {
		t.Error("unknown mode should be flagged, got no flags")
	}
}

func TestNormalize_ChargeClamped(t *testing.T) {
	n := NewNormalizer(DefaultCalibration)

	raw := baseRaw()
	raw.DHWChargePer = 150

	s := n.Normalize(raw, testTime)
	if s.ChargePercent != 100 {
		t.Errorf("ChargePercent = %d, want clamped 100", s.ChargePercent)
	}
	if len(s.Flags) == 0 {
		t.Error("clamped charge should be flagged")
	}
}

func TestNormalize_HeatingElementCombined(t *testing.T) {
	n := NewNormalizer(DefaultCalibration)

	tests := []struct {
		name     string
		upper    int
		lower    int
		expected Component
	}{
		{"both off", 0, 0, ComponentOff},
		{"upper ready", 1, 0, ComponentReady},
		{"lower active wins", 1, 2, ComponentActive},
		{"upper active", 2, 0, ComponentActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := baseRaw()
			raw.HeatUpperUse = tt.upper
			raw.HeatLowerUse = tt.lower

			s := n.Normalize(raw, testTime)
			if s.HeatingElement != tt.expected {
				t.Errorf("HeatingElement = %v, want %v", s.HeatingElement, tt.expected)
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	n := NewNormalizer(DefaultCalibration)

	a := n.Normalize(baseRaw(), testTime)
	b := n.Normalize(baseRaw(), testTime)

	// Flags aside (slices are not comparable), the two values must
	// agree field for field; spot-check the derived ones.
	if a.Activity != b.Activity || a.ModeLabel != b.ModeLabel ||
		a.DHWTemperature != b.DHWTemperature || a.ChargePercent != b.ChargePercent {
		t.Error("normalization is not deterministic")
	}
}

func TestComponent_Label(t *testing.T) {
	tests := []struct {
		c        Component
		expected string
	}{
		{ComponentOff, "off"},
		{ComponentReady, "ready"},
		{ComponentActive, "active"},
		{Component(7), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.c.Label(); got != tt.expected {
			t.Errorf("Component(%d).Label() = %q, want %q", int(tt.c), got, tt.expected)
		}
	}
}

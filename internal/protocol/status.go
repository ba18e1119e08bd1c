package protocol

import (
	"encoding/binary"
	"fmt"
)

// Status frame layout: a 4-byte big-endian command echo followed by
// 86 fixed-position 16-bit big-endian fields in the order declared in
// RawStatus. Firmware may append fields; trailing bytes are kept in
// Extra rather than treated as an error.
const (
	statusFieldCount  = 86
	statusFrameMinLen = opcodeLen + statusFieldCount*2
)

// RawStatus is the decoded status table, one integer per wire field.
//
// Values are raw wire units: no calibration, no tenths division, no
// scale conversion. Names follow the vendor's wire field names even
// where the vendor named them badly — TankUpperTemperature is really
// the cold water inlet sensor and TankLowerTemperature the heat pump
// intake air sensor. The status package performs the honest renaming.
type RawStatus struct {
	// Command echoes the request opcode (uint32 on the wire).
	Command int

	// OutsideTemperature is reported in °C, unlike every other
	// temperature field.
	OutsideTemperature    int
	SpecialFunctionStatus int
	DIDReload             int
	ErrorCode             int
	SubErrorCode          int
	OperationMode         int
	OperationBusy         int
	FreezeProtectionUse   int
	DHWUse                int
	DHWUseSustained       int

	// DHWTemperature and the other DHW setpoints are in whole °F,
	// offset -20 from the displayed value.
	DHWTemperature              int
	DHWTemperatureSetting       int
	ProgramReservationUse       int
	SmartDiagnostic             int
	FaultStatus1                int
	FaultStatus2                int
	WifiRSSI                    int
	EcoUse                      int
	DHWTargetTemperatureSetting int

	// Tenths-unit sensors (0.1°F): divide by 10 for display.
	TankUpperTemperature  int
	TankLowerTemperature  int
	DischargeTemperature  int
	SuctionTemperature    int
	EvaporatorTemperature int
	AmbientTemperature    int

	TargetSuperHeat  int
	CompUse          int
	EEVUse           int
	EvaFanUse        int
	CurrentInstPower int
	ShutOffValveUse  int
	ConOvrSensorUse  int
	WtrOvrSensorUse  int
	DHWChargePer     int
	DREventStatus    int

	VacationDaySetting          int
	VacationDayElapsed          int
	FreezeProtectionTemperature int
	AntiLegionellaUse           int
	AntiLegionellaPeriod        int
	AntiLegionellaOperationBusy int
	ProgramReservationType      int
	DHWOperationSetting         int
	TemperatureType             int
	TempFormulaType             int
	ErrorBuzzerUse              int
	CurrentHeatUse              int
	CurrentInletTemperature     int
	CurrentStateNum             int

	TargetFanRPM       int
	CurrentFanRPM      int
	FanPWM             int
	DHWTemperature2    int
	CurrentDHWFlowRate int
	MixingRate         int
	EEVStep            int
	CurrentSuperHeat   int
	HeatUpperUse       int
	HeatLowerUse       int
	ScaldUse           int

	AirFilterAlarmUse     int
	AirFilterAlarmPeriod  int
	AirFilterAlarmElapsed int
	CumulatedOpTimeEvaFan int
	CumulatedDHWFlowRate  int
	TOUStatus             int

	HPUpperOnTempSetting  int
	HPUpperOffTempSetting int
	HPLowerOnTempSetting  int
	HPLowerOffTempSetting int
	HEUpperOnTempSetting  int
	HEUpperOffTempSetting int
	HELowerOnTempSetting  int
	HELowerOffTempSetting int

	HPUpperOnDiffTempSetting  int
	HPUpperOffDiffTempSetting int
	HPLowerOnDiffTempSetting  int
	HPLowerOffDiffTempSetting int
	HEUpperOnDiffTempSetting  int
	HEUpperOffDiffTempSetting int
	HELowerOnDiffTempSetting  int
	HELowerOffDiffTempSetting int

	DROverrideStatus        int
	TOUOverrideStatus       int
	TotalEnergyCapacity     int
	AvailableEnergyCapacity int

	// Extra holds trailing bytes beyond the known table, preserved
	// for forward compatibility.
	Extra []byte
}

// DecodeStatus parses a status response payload.
//
// Returns:
//   - *RawStatus: Fully populated raw table
//   - error: ErrFrameTooShort if the payload is shorter than the
//     fixed table; never an error for extra trailing bytes
func DecodeStatus(payload []byte) (*RawStatus, error) {
	if len(payload) < statusFrameMinLen {
		return nil, fmt.Errorf("%w: got %d bytes, need %d for status table", ErrFrameTooShort, len(payload), statusFrameMinLen)
	}

	r := frameReader{buf: payload}
	raw := &RawStatus{}

	raw.Command = r.uint32()

	raw.OutsideTemperature = r.int16()
	raw.SpecialFunctionStatus = r.uint16()
	raw.DIDReload = r.uint16()
	raw.ErrorCode = r.uint16()
	raw.SubErrorCode = r.uint16()
	raw.OperationMode = r.uint16()
	raw.OperationBusy = r.uint16()
	raw.FreezeProtectionUse = r.uint16()
	raw.DHWUse = r.uint16()
	raw.DHWUseSustained = r.uint16()
	raw.DHWTemperature = r.uint16()
	raw.DHWTemperatureSetting = r.uint16()
	raw.ProgramReservationUse = r.uint16()
	raw.SmartDiagnostic = r.uint16()
	raw.FaultStatus1 = r.uint16()
	raw.FaultStatus2 = r.uint16()
	raw.WifiRSSI = r.int16()
	raw.EcoUse = r.uint16()
	raw.DHWTargetTemperatureSetting = r.uint16()

	raw.TankUpperTemperature = r.uint16()
	raw.TankLowerTemperature = r.uint16()
	raw.DischargeTemperature = r.uint16()
	raw.SuctionTemperature = r.uint16()
	raw.EvaporatorTemperature = r.uint16()
	raw.AmbientTemperature = r.uint16()

	raw.TargetSuperHeat = r.uint16()
	raw.CompUse = r.uint16()
	raw.EEVUse = r.uint16()
	raw.EvaFanUse = r.uint16()
	raw.CurrentInstPower = r.uint16()
	raw.ShutOffValveUse = r.uint16()
	raw.ConOvrSensorUse = r.uint16()
	raw.WtrOvrSensorUse = r.uint16()
	raw.DHWChargePer = r.uint16()
	raw.DREventStatus = r.uint16()

	raw.VacationDaySetting = r.uint16()
	raw.VacationDayElapsed = r.uint16()
	raw.FreezeProtectionTemperature = r.uint16()
	raw.AntiLegionellaUse = r.uint16()
	raw.AntiLegionellaPeriod = r.uint16()
	raw.AntiLegionellaOperationBusy = r.uint16()
	raw.ProgramReservationType = r.uint16()
	raw.DHWOperationSetting = r.uint16()
	raw.TemperatureType = r.uint16()
	raw.TempFormulaType = r.uint16()
	raw.ErrorBuzzerUse = r.uint16()
	raw.CurrentHeatUse = r.uint16()
	raw.CurrentInletTemperature = r.uint16()
	raw.CurrentStateNum = r.uint16()

	raw.TargetFanRPM = r.uint16()
	raw.CurrentFanRPM = r.uint16()
	raw.FanPWM = r.uint16()
	raw.DHWTemperature2 = r.uint16()
	raw.CurrentDHWFlowRate = r.uint16()
	raw.MixingRate = r.uint16()
	raw.EEVStep = r.uint16()
	raw.CurrentSuperHeat = r.uint16()
	raw.HeatUpperUse = r.uint16()
	raw.HeatLowerUse = r.uint16()
	raw.ScaldUse = r.uint16()

	raw.AirFilterAlarmUse = r.uint16()
	raw.AirFilterAlarmPeriod = r.uint16()
	raw.AirFilterAlarmElapsed = r.uint16()
	raw.CumulatedOpTimeEvaFan = r.uint16()
	raw.CumulatedDHWFlowRate = r.uint16()
	raw.TOUStatus = r.uint16()

	raw.HPUpperOnTempSetting = r.uint16()
	raw.HPUpperOffTempSetting = r.uint16()
	raw.HPLowerOnTempSetting = r.uint16()
	raw.HPLowerOffTempSetting = r.uint16()
	raw.HEUpperOnTempSetting = r.uint16()
	raw.HEUpperOffTempSetting = r.uint16()
	raw.HELowerOnTempSetting = r.uint16()
	raw.HELowerOffTempSetting = r.uint16()

	raw.HPUpperOnDiffTempSetting = r.uint16()
	raw.HPUpperOffDiffTempSetting = r.uint16()
	raw.HPLowerOnDiffTempSetting = r.uint16()
	raw.HPLowerOffDiffTempSetting = r.uint16()
	raw.HEUpperOnDiffTempSetting = r.uint16()
	raw.HEUpperOffDiffTempSetting = r.uint16()
	raw.HELowerOnDiffTempSetting = r.uint16()
	raw.HELowerOffDiffTempSetting = r.uint16()

	raw.DROverrideStatus = r.uint16()
	raw.TOUOverrideStatus = r.uint16()
	raw.TotalEnergyCapacity = r.uint16()
	raw.AvailableEnergyCapacity = r.uint16()

	raw.Extra = r.rest()
	return raw, nil
}

// frameReader walks a payload at fixed offsets. Bounds are validated
// once up front by DecodeStatus, so the read methods do not re-check.
type frameReader struct {
	buf []byte
	off int
}

func (r *frameReader) uint32() int {
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return int(v)
}

func (r *frameReader) uint16() int {
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return int(v)
}

// int16 reads a signed field (WiFi RSSI in dBm, outside °C below zero).
func (r *frameReader) int16() int {
	v := int16(binary.BigEndian.Uint16(r.buf[r.off:]))
	r.off += 2
	return int(v)
}

// rest returns a copy of any trailing bytes beyond the fixed table.
func (r *frameReader) rest() []byte {
	if r.off >= len(r.buf) {
		return nil
	}
	extra := make([]byte, len(r.buf)-r.off)
	copy(extra, r.buf[r.off:])
	return extra
}

package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// statusPayload builds a minimal valid status frame: a uint32 command
// echo followed by 86 uint16 fields. overrides maps field index
// (position in the 86-field table, starting at 0) to wire value.
func statusPayload(command uint32, overrides map[int]uint16) []byte {
	buf := make([]byte, statusFrameMinLen)
	binary.BigEndian.PutUint32(buf[:4], command)
	for idx, val := range overrides {
		binary.BigEndian.PutUint16(buf[4+idx*2:], val)
	}
	return buf
}

// Field indexes used across tests, counted in RawStatus declaration
// order starting from OutsideTemperature.
const (
	idxOutsideTemperature = 0
	idxErrorCode          = 3
	idxOperationMode      = 5
	idxDHWTemperature     = 10
	idxWifiRSSI           = 16
	idxTankUpper          = 19
	idxAmbient            = 24
	idxCurrentInstPower   = 29
	idxDHWChargePer       = 33
	idxCurrentStateNum    = 48
	idxTOUStatus          = 65
	idxAvailableEnergy    = 85
)

// =============================================================================
// Decode Tests
// =============================================================================

func TestDecodeStatus_FieldPositions(t *testing.T) {
	payload := statusPayload(uint32(OpGetStatus), map[int]uint16{
		idxOutsideTemperature: 22,
		idxErrorCode:          0,
		idxOperationMode:      32,
		idxDHWTemperature:     101,
		idxWifiRSSI:           0xFFC6, // -58 dBm
		idxTankUpper:          605,
		idxAmbient:            684,
		idxCurrentInstPower:   450,
		idxDHWChargePer:       97,
		idxCurrentStateNum:    21,
		idxTOUStatus:          1,
		idxAvailableEnergy:    11500,
	})

	raw, err := DecodeStatus(payload)
	if err != nil {
		t.Fatalf("DecodeStatus() error = %v", err)
	}

	if raw.Command != int(OpGetStatus) {
		t.Errorf("Command = %d, want %d", raw.Command, OpGetStatus)
	}
	if raw.OutsideTemperature != 22 {
		t.Errorf("OutsideTemperature = %d, want 22", raw.OutsideTemperature)
	}
	if raw.OperationMode != 32 {
		t.Errorf("OperationMode = %d, want 32", raw.OperationMode)
	}
	if raw.DHWTemperature != 101 {
		t.Errorf("DHWTemperature = %d, want 101", raw.DHWTemperature)
	}
	if raw.WifiRSSI != -58 {
		t.Errorf("WifiRSSI = %d, want -58", raw.WifiRSSI)
	}
	if raw.TankUpperTemperature != 605 {
		t.Errorf("TankUpperTemperature = %d, want 605", raw.TankUpperTemperature)
	}
	if raw.AmbientTemperature != 684 {
		t.Errorf("AmbientTemperature = %d, want 684", raw.AmbientTemperature)
	}
	if raw.CurrentInstPower != 450 {
		t.Errorf("CurrentInstPower = %d, want 450", raw.CurrentInstPower)
	}
	if raw.DHWChargePer != 97 {
		t.Errorf("DHWChargePer = %d, want 97", raw.DHWChargePer)
	}
	if raw.CurrentStateNum != 21 {
		t.Errorf("CurrentStateNum = %d, want 21", raw.CurrentStateNum)
	}
	if raw.TOUStatus != 1 {
		t.Errorf("TOUStatus = %d, want 1", raw.TOUStatus)
	}
	if raw.AvailableEnergyCapacity != 11500 {
		t.Errorf("AvailableEnergyCapacity = %d, want 11500", raw.AvailableEnergyCapacity)
	}
}

func TestDecodeStatus_SignedFields(t *testing.T) {
	payload := statusPayload(uint32(OpGetStatus), map[int]uint16{
		idxOutsideTemperature: 0xFFF6, // -10°C
		idxWifiRSSI:           0xFFB0, // -80 dBm
	})

	raw, err := DecodeStatus(payload)
	if err != nil {
		t.Fatalf("DecodeStatus() error = %v", err)
	}

	if raw.OutsideTemperature != -10 {
		t.Errorf("OutsideTemperature = %d, want -10", raw.OutsideTemperature)
	}
	if raw.WifiRSSI != -80 {
		t.Errorf("WifiRSSI = %d, want -80", raw.WifiRSSI)
	}
}

func TestDecodeStatus_ExactLengthNoExtra(t *testing.T) {
	raw, err := DecodeStatus(statusPayload(uint32(OpGetStatus), nil))
	if err != nil {
		t.Fatalf("DecodeStatus() error = %v", err)
	}
	if raw.Extra != nil {
		t.Errorf("Extra = %v, want nil for exact-length payload", raw.Extra)
	}
}

func TestDecodeStatus_TrailingBytesPreserved(t *testing.T) {
	trailing := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	payload := append(statusPayload(uint32(OpGetStatus), nil), trailing...)

	raw, err := DecodeStatus(payload)
	if err != nil {
		t.Fatalf("DecodeStatus() error = %v", err)
	}
	if !bytes.Equal(raw.Extra, trailing) {
		t.Errorf("Extra = %v, want %v", raw.Extra, trailing)
	}

	// Extra must be a copy, not an alias of the payload slice.
	payload[len(payload)-1] = 0x00
	if raw.Extra[3] != 0xEF {
		t.Error("Extra aliases the input payload")
	}
}

func TestDecodeStatus_TooShort(t *testing.T) {
	for _, n := range []int{0, 3, 4, 100, statusFrameMinLen - 1} {
		_, err := DecodeStatus(make([]byte, n))
		if !errors.Is(err, ErrFrameTooShort) {
			t.Errorf("DecodeStatus(%d bytes) error = %v, want ErrFrameTooShort", n, err)
		}
		if !errors.Is(err, ErrDecode) {
			t.Errorf("DecodeStatus(%d bytes) error should wrap ErrDecode, got %v", n, err)
		}
	}
}

package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame layout constants.
const (
	opcodeLen   = 4
	deviceIDLen = 4

	// headerLen is the minimum length of any request frame.
	headerLen = opcodeLen + deviceIDLen
)

// CommandFrame is one decoded binary request.
type CommandFrame struct {
	Opcode   Opcode
	DeviceID [deviceIDLen]byte
	Params   []byte
}

// DeviceIDBytes converts a device identifier string to its 4-byte wire
// form: UTF-8 bytes truncated to 4, or zero-padded if shorter. The
// truncation is a documented lossy transform and must be preserved
// exactly for wire compatibility.
func DeviceIDBytes(deviceID string) [deviceIDLen]byte {
	var out [deviceIDLen]byte
	copy(out[:], deviceID)
	return out
}

// EncodeCommand builds a binary request frame.
//
// Layout: opcode uint32 big-endian | deviceId 4 bytes | params.
//
// Parameters:
//   - opcode: Command opcode
//   - deviceID: Device identifier string (truncated/padded to 4 bytes)
//   - params: Optional parameter bytes, appended verbatim (may be nil)
//
// Returns:
//   - []byte: Wire frame, never nil
func EncodeCommand(opcode Opcode, deviceID string, params []byte) []byte {
	frame := make([]byte, headerLen, headerLen+len(params))
	binary.BigEndian.PutUint32(frame[:opcodeLen], uint32(opcode))

	id := DeviceIDBytes(deviceID)
	copy(frame[opcodeLen:headerLen], id[:])

	return append(frame, params...)
}

// DecodeCommand parses a binary request frame back into its parts.
//
// Returns:
//   - CommandFrame: Decoded opcode, device ID bytes and params
//   - error: ErrFrameTooShort if fewer than 8 bytes
func DecodeCommand(frame []byte) (CommandFrame, error) {
	if len(frame) < headerLen {
		return CommandFrame{}, fmt.Errorf("%w: got %d bytes, need %d", ErrFrameTooShort, len(frame), headerLen)
	}

	var out CommandFrame
	out.Opcode = Opcode(binary.BigEndian.Uint32(frame[:opcodeLen]))
	copy(out.DeviceID[:], frame[opcodeLen:headerLen])
	if len(frame) > headerLen {
		out.Params = frame[headerLen:]
	}
	return out, nil
}

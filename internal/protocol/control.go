package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/navilink-core/internal/device"
)

// ProtocolVersion is the envelope version the broker expects.
const ProtocolVersion = 2

// Symbolic mode names carried in the control envelope.
const (
	ControlModeDHWMode     = "dhw-mode"
	ControlModeTempSetting = "dhw-temp-setting"
)

// Target temperature setting range in wire °F, from the device
// feature table.
const (
	MinTargetTemperature = 70
	MaxTargetTemperature = 131
)

// DHWMode is a domestic hot water operating mode, settable via
// OpSetDHWMode.
type DHWMode int

// DHW modes captured from real device traffic.
const (
	DHWModeHeatPumpOnly DHWMode = 2
	DHWModeHybrid       DHWMode = 3
	DHWModeElectricOnly DHWMode = 4
	DHWModeEnergySaver  DHWMode = 5
	DHWModeHighDemand   DHWMode = 6
)

// Valid reports whether the mode is one the device accepts.
func (m DHWMode) Valid() bool {
	return m >= DHWModeHeatPumpOnly && m <= DHWModeHighDemand
}

// String returns the mode name for logging.
func (m DHWMode) String() string {
	switch m {
	case DHWModeHeatPumpOnly:
		return "heat_pump_only"
	case DHWModeHybrid:
		return "hybrid"
	case DHWModeElectricOnly:
		return "electric_only"
	case DHWModeEnergySaver:
		return "energy_saver"
	case DHWModeHighDemand:
		return "high_demand"
	default:
		return fmt.Sprintf("DHWMode(%d)", int(m))
	}
}

// ControlRequest is the inner request body of a control envelope.
// Field names and order match the captured wire format exactly.
type ControlRequest struct {
	AdditionalValue string `json:"additionalValue"`
	Command         Opcode `json:"command"`
	DeviceType      int    `json:"deviceType"`
	MACAddress      string `json:"macAddress"`
	Mode            string `json:"mode"`
	Param           []int  `json:"param"`
	ParamStr        string `json:"paramStr"`
}

// ControlEnvelope is the JSON body published to the control topic.
//
// RequestTopic and ResponseTopic are echoed by the device so the
// response can be routed back to the requesting session.
type ControlEnvelope struct {
	ClientID        string         `json:"clientID"`
	ProtocolVersion int            `json:"protocolVersion"`
	Request         ControlRequest `json:"request"`
	RequestTopic    string         `json:"requestTopic"`
	ResponseTopic   string         `json:"responseTopic"`
	SessionID       string         `json:"sessionID"`
}

// NewDHWModeRequest builds the control request that sets the DHW
// operating mode.
func NewDHWModeRequest(id device.Identity, mode DHWMode) (ControlRequest, error) {
	if !mode.Valid() {
		return ControlRequest{}, fmt.Errorf("%w: %d (valid modes are 2-6)", ErrInvalidDHWMode, int(mode))
	}

	return ControlRequest{
		AdditionalValue: id.AdditionalValue,
		Command:         OpSetDHWMode,
		DeviceType:      id.DeviceType,
		MACAddress:      id.MACAddress,
		Mode:            ControlModeDHWMode,
		Param:           []int{int(mode)},
		ParamStr:        "",
	}, nil
}

// NewTemperatureRequest builds the control request that sets the
// target DHW temperature.
//
// temperature is the wire value in °F; the device accepts 70-131.
// The -20 write calibration from display units is applied by the
// caller before reaching here (see the status package).
//
// The opcode used here (OpSetTemperature) is estimated, not verified
// against captured traffic.
func NewTemperatureRequest(id device.Identity, temperature int) (ControlRequest, error) {
	if temperature < MinTargetTemperature || temperature > MaxTargetTemperature {
		return ControlRequest{}, fmt.Errorf("%w: %d°F (valid range %d-%d°F)",
			ErrTemperatureOutOfRange, temperature, MinTargetTemperature, MaxTargetTemperature)
	}

	return ControlRequest{
		AdditionalValue: id.AdditionalValue,
		Command:         OpSetTemperature,
		DeviceType:      id.DeviceType,
		MACAddress:      id.MACAddress,
		Mode:            ControlModeTempSetting,
		Param:           []int{temperature},
		ParamStr:        "",
	}, nil
}

// EncodeControl wraps a request in the session envelope and marshals
// it for publishing.
//
// Parameters:
//   - req: Inner control request
//   - clientID: MQTT client/session identifier
//   - sessionID: Per-request correlation identifier
//   - requestTopic: Control topic the command is published to
//   - responseTopic: Session topic the device answers on
//
// Returns:
//   - []byte: JSON payload
//   - error: Marshalling failure (only for invalid UTF-8 in fields)
func EncodeControl(req ControlRequest, clientID, sessionID, requestTopic, responseTopic string) ([]byte, error) {
	envelope := ControlEnvelope{
		ClientID:        clientID,
		ProtocolVersion: ProtocolVersion,
		Request:         req,
		RequestTopic:    requestTopic,
		ResponseTopic:   responseTopic,
		SessionID:       sessionID,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("protocol: encoding control envelope: %w", err)
	}
	return payload, nil
}

// ControlResponse is the JSON body the device publishes on the
// response topic after a control command.
type ControlResponse struct {
	SessionID string          `json:"sessionID"`
	Response  json.RawMessage `json:"response"`
}

// DecodeControlResponse parses a control acknowledgement.
//
// Returns:
//   - *ControlResponse: Parsed response with the session correlation ID
//   - error: Wrapped ErrDecode for malformed JSON
func DecodeControlResponse(payload []byte) (*ControlResponse, error) {
	var resp ControlResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: control response: %v", ErrDecode, err)
	}
	return &resp, nil
}

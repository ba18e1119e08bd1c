package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefixCommand is the base for all device command-channel topics.
// All NaviLink traffic flows under this single AWS IoT namespace:
// cmd/{deviceType}/{...}.
const TopicPrefixCommand = "cmd"

// Topics builds the MQTT topics for one device session.
// Using these helpers ensures consistent topic naming across the codebase.
//
// Two families exist:
//
//   - Device topics, addressed by device type and ID:
//     cmd/{deviceType}/{deviceID}/{st|ctrl|res}
//   - Session response topics, addressed by account and session:
//     cmd/{deviceType}/{groupID}/{userID}/{sessionID}/res[/st|/did]
//
// A fresh Topics value is built per connection because the session ID
// changes on every (re)connect.
type Topics struct {
	DeviceType int
	DeviceID   string
	GroupID    string
	UserID     string
	SessionID  string
}

// =============================================================================
// Device Topics
// =============================================================================

// commandBase returns the device-addressed topic base.
func (t Topics) commandBase() string {
	return fmt.Sprintf("%s/%d/%s", TopicPrefixCommand, t.DeviceType, t.DeviceID)
}

// StatusRequest returns the topic for fire-and-forget status polling.
//
// Example: cmd/52/navilink-04786332fca0/st
func (t Topics) StatusRequest() string {
	return t.commandBase() + "/st"
}

// DeviceInfoRequest returns the topic for device-info queries.
//
// Example: cmd/52/navilink-04786332fca0/status/start
func (t Topics) DeviceInfoRequest() string {
	return t.commandBase() + "/status/start"
}

// ReservationRequest returns the topic for reservation schedule reads.
//
// Example: cmd/52/navilink-04786332fca0/rsv/rd
func (t Topics) ReservationRequest() string {
	return t.commandBase() + "/rsv/rd"
}

// Control returns the topic for control (write) commands.
//
// Example: cmd/52/navilink-04786332fca0/ctrl
func (t Topics) Control() string {
	return t.commandBase() + "/ctrl"
}

// DeviceResponse returns the device-addressed response topic.
//
// Example: cmd/52/navilink-04786332fca0/res
func (t Topics) DeviceResponse() string {
	return t.commandBase() + "/res"
}

// =============================================================================
// Session Response Topics
// =============================================================================

// responseBase returns the session-scoped response topic base.
func (t Topics) responseBase() string {
	return fmt.Sprintf("%s/%d/%s/%s/%s/res",
		TopicPrefixCommand, t.DeviceType, t.GroupID, t.UserID, t.SessionID)
}

// Response returns the session response topic for control acknowledgements.
//
// Example: cmd/52/25004/36283/a1b2c3d4/res
func (t Topics) Response() string {
	return t.responseBase()
}

// ResponseStatus returns the session topic for status responses.
//
// Example: cmd/52/25004/36283/a1b2c3d4/res/st
func (t Topics) ResponseStatus() string {
	return t.responseBase() + "/st"
}

// ResponseDeviceInfo returns the session topic for device-info responses.
//
// Example: cmd/52/25004/36283/a1b2c3d4/res/did
func (t Topics) ResponseDeviceInfo() string {
	return t.responseBase() + "/did"
}

// =============================================================================
// Subscription Sets
// =============================================================================

// SubscriptionTopics returns every topic that must be subscribed after
// a successful (re)connect. Responses arrive on both the device-addressed
// and the session-scoped patterns depending on firmware.
func (t Topics) SubscriptionTopics() []string {
	return []string{
		t.DeviceResponse(),
		t.Response(),
		t.ResponseDeviceInfo(),
		t.ResponseStatus(),
	}
}

// IsResponse reports whether a received topic belongs to this session's
// response set.
func (t Topics) IsResponse(topic string) bool {
	if topic == t.DeviceResponse() {
		return true
	}
	return strings.HasPrefix(topic, t.responseBase())
}

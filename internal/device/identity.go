package device

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrInvalidMAC) {
//	    // handle malformed address
//	}
var (
	// ErrInvalidMAC is returned when a MAC address fails validation.
	ErrInvalidMAC = errors.New("device: invalid MAC address")

	// ErrInvalidIdentity is returned when identity validation fails.
	ErrInvalidIdentity = errors.New("device: invalid identity")
)

// DeviceIDPrefix is prepended to the normalised MAC to form the
// broker-facing device identifier.
const DeviceIDPrefix = "navilink-"

// macPattern accepts colon/dash separated pairs or 12 bare hex digits,
// e.g. "04:78:63:32:fc:a0" or "04786332fca0".
const macPattern = `^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$|^[0-9A-Fa-f]{12}$`

var macRegex = regexp.MustCompile(macPattern)

// Identity addresses a single water heater on the broker.
//
// DeviceType and MACAddress come from the vendor's device directory;
// GroupID and UserID are account coordinates used in the session
// response topic path. AdditionalValue is an opaque vendor token
// echoed back in control requests.
type Identity struct {
	// DeviceType is the vendor's numeric product category (52 for
	// the NWP500 heat pump water heater).
	DeviceType int

	// MACAddress is stored normalised: lowercase hex, no separators.
	MACAddress string

	// GroupID is the account's home sequence number.
	GroupID string

	// UserID is the account's numeric user identifier.
	UserID string

	// AdditionalValue is an opaque token from device discovery,
	// echoed in every control request.
	AdditionalValue string
}

// NewIdentity builds a validated Identity, normalising the MAC address.
//
// Returns:
//   - Identity: Validated identity with normalised MAC
//   - error: ErrInvalidMAC or ErrInvalidIdentity describing the failure
func NewIdentity(deviceType int, macAddress, groupID, userID, additionalValue string) (Identity, error) {
	if !ValidateMAC(macAddress) {
		return Identity{}, fmt.Errorf("%w: %q", ErrInvalidMAC, macAddress)
	}

	id := Identity{
		DeviceType:      deviceType,
		MACAddress:      NormalizeMAC(macAddress),
		GroupID:         groupID,
		UserID:          userID,
		AdditionalValue: additionalValue,
	}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// Validate checks that the identity can address a device.
func (id Identity) Validate() error {
	if id.DeviceType <= 0 {
		return fmt.Errorf("%w: device type must be positive", ErrInvalidIdentity)
	}
	if !ValidateMAC(id.MACAddress) {
		return fmt.Errorf("%w: %q", ErrInvalidMAC, id.MACAddress)
	}
	if id.GroupID == "" {
		return fmt.Errorf("%w: group ID is required", ErrInvalidIdentity)
	}
	if id.UserID == "" {
		return fmt.Errorf("%w: user ID is required", ErrInvalidIdentity)
	}
	return nil
}

// DeviceID returns the broker-facing identifier, e.g.
// "navilink-04786332fca0".
func (id Identity) DeviceID() string {
	return DeviceIDPrefix + NormalizeMAC(id.MACAddress)
}

// ValidateMAC reports whether the string is a MAC address in a
// supported format.
func ValidateMAC(macAddress string) bool {
	return macRegex.MatchString(macAddress)
}

// NormalizeMAC strips colon and dash separators and lowercases,
// e.g. "04:78:63:32:FC:A0" → "04786332fca0".
func NormalizeMAC(macAddress string) string {
	replacer := strings.NewReplacer(":", "", "-", "")
	return strings.ToLower(replacer.Replace(macAddress))
}

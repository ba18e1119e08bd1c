// Package device describes the identity of a NaviLink water heater.
//
// An Identity carries everything needed to address one device over the
// broker: the numeric device type, the MAC address, and the account
// coordinates (group ID, user ID) that form the response topic path.
// The device directory that discovers these values — the vendor's REST
// "list devices" API — lives outside this module; callers populate an
// Identity from its output or from static configuration.
//
// MAC addresses are accepted in colon, dash, or bare form and
// normalised to lowercase hex without separators, matching the
// "navilink-{mac}" naming the broker expects.
package device

// Package auth provides broker authentication for NaviLink Core.
//
// It implements SigV4 request signing for the AWS IoT device gateway:
//   - Canonical GET /mqtt request construction
//   - AWS4-HMAC-SHA256 signature over the date/region/service HMAC chain
//   - Pre-signed wss:// URL assembly for the WebSocket handshake
//   - Credential expiry checks and a pluggable credential provider
//
// Credentials are temporary (STS-issued by the vendor's login API, which
// is outside this module) and expire within hours. A signed URL is good
// for one connection attempt only: the broker rejects signatures older
// than a few minutes, so every reconnect must re-sign with SignWebSocketURL.
//
// Signing is a pure function of its inputs. No I/O, no clock access
// beyond the timestamp the caller supplies.
package auth

// Package connection owns the broker session for one device: the
// reconnection state machine, frame dispatch, request/response
// correlation, and the polling scheduler.
//
// The Manager is an explicit instance owned by the caller; there is
// no package-level default. Decoded status values are delivered on a
// bounded channel rather than through callbacks, so a slow consumer
// exerts backpressure by dropping frames (the next poll supersedes a
// dropped one) instead of stalling the read path.
//
// Signed URLs are single-use: the broker rejects a second handshake
// on a stale signature. Every connect attempt therefore re-signs
// through the credential provider, and the transport's own reconnect
// machinery stays disabled.
//
// Subscriptions do not survive a reconnect (sessions are clean) and
// are reissued after every successful handshake. A session generation
// counter discards frames from a torn-down session so a reconnect
// never delivers stale data.
package connection

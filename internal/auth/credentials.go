package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for credential handling.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrCredentialsExpired is returned when signing is attempted with
	// credentials past their expiry. Not retryable: the caller must
	// obtain fresh credentials before reconnecting.
	ErrCredentialsExpired = errors.New("auth: credentials expired")

	// ErrCredentialsIncomplete is returned when a required credential
	// field is empty.
	ErrCredentialsIncomplete = errors.New("auth: credentials incomplete")
)

// Credentials holds temporary AWS credentials for the IoT broker.
//
// These come from the vendor's REST login flow (external to this
// module) and carry a hard expiry. SessionToken is required: the
// vendor only ever issues STS session credentials, never long-lived
// keys.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Expiry is when the credentials stop being accepted.
	// A zero Expiry means "not known" and is treated as unexpired.
	Expiry time.Time
}

// Validate checks that the fields needed for signing are present.
func (c Credentials) Validate() error {
	if c.AccessKeyID == "" {
		return fmt.Errorf("%w: access key ID is empty", ErrCredentialsIncomplete)
	}
	if c.SecretAccessKey == "" {
		return fmt.Errorf("%w: secret access key is empty", ErrCredentialsIncomplete)
	}
	return nil
}

// ExpiredAt reports whether the credentials are expired at the given
// instant. A zero Expiry never expires.
func (c Credentials) ExpiredAt(now time.Time) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Before(c.Expiry)
}

// Provider supplies credentials for a connection attempt.
//
// The connection manager calls this before every (re)connect so a
// caller-side implementation can refresh expired credentials through
// the vendor login API. Implementations must be safe for concurrent
// use.
type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticProvider returns the same credentials on every call.
//
// Suitable for short sessions and tests; long-running deployments
// should implement Provider with a refresh path instead.
type StaticProvider struct {
	creds Credentials
}

// NewStaticProvider creates a provider wrapping fixed credentials.
func NewStaticProvider(creds Credentials) *StaticProvider {
	return &StaticProvider{creds: creds}
}

// Credentials implements Provider.
func (p *StaticProvider) Credentials(_ context.Context) (Credentials, error) {
	if err := p.creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return p.creds, nil
}

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Signing constants for the AWS IoT device gateway.
const (
	signingAlgorithm = "AWS4-HMAC-SHA256"
	signingService   = "iotdevicegateway"
	signingMethod    = "GET"
	signingPath      = "/mqtt"

	// amzDateFormat is the compact ISO 8601 form SigV4 requires.
	amzDateFormat   = "20060102T150405Z"
	dateStampFormat = "20060102"
)

// SignWebSocketURL produces a pre-signed wss:// URL for the AWS IoT
// WebSocket handshake.
//
// The broker verifies the signature against the canonical GET /mqtt
// request; any deviation from the expected canonical form makes the
// handshake fail with an authentication error that no amount of
// retrying fixes, so this implements the SigV4 scheme exactly:
// sorted canonical query string, host-only signed headers, and the
// AWS4 → date → region → service → aws4_request HMAC chain.
//
// Parameters:
//   - endpoint: Broker host (scheme prefix and /mqtt path are stripped if present)
//   - region: AWS region of the endpoint (e.g., "us-east-1")
//   - creds: Temporary credentials; must not be expired at now
//   - now: Signing time; callers normally pass time.Now()
//
// Returns:
//   - string: Signed URL valid for one connection attempt
//   - error: ErrCredentialsExpired, ErrCredentialsIncomplete, or nil
func SignWebSocketURL(endpoint, region string, creds Credentials, now time.Time) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}
	if creds.ExpiredAt(now) {
		return "", fmt.Errorf("%w: expired at %s", ErrCredentialsExpired, creds.Expiry.UTC().Format(time.RFC3339))
	}

	host := normalizeEndpoint(endpoint)
	if host == "" {
		return "", fmt.Errorf("auth: endpoint is empty")
	}

	utc := now.UTC()
	amzDate := utc.Format(amzDateFormat)
	dateStamp := utc.Format(dateStampFormat)

	credentialScope := strings.Join([]string{dateStamp, region, signingService, "aws4_request"}, "/")

	// Query parameters included in the signature, in canonical
	// (byte-sorted) order. The security token is signed along with
	// the rest; the broker expects it inside the canonical request.
	params := []queryParam{
		{"X-Amz-Algorithm", signingAlgorithm},
		{"X-Amz-Credential", creds.AccessKeyID + "/" + credentialScope},
		{"X-Amz-Date", amzDate},
	}
	if creds.SessionToken != "" {
		params = append(params, queryParam{"X-Amz-Security-Token", creds.SessionToken})
	}
	params = append(params, queryParam{"X-Amz-SignedHeaders", "host"})

	canonicalQuery := encodeQuery(params)

	canonicalRequest := strings.Join([]string{
		signingMethod,
		signingPath,
		canonicalQuery,
		"host:" + host + "\n",
		"host",
		hexSHA256(nil),
	}, "\n")

	stringToSign := strings.Join([]string{
		signingAlgorithm,
		amzDate,
		credentialScope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	signature := hex.EncodeToString(hmacSHA256(
		signingKey(creds.SecretAccessKey, dateStamp, region),
		stringToSign,
	))

	return "wss://" + host + signingPath + "?" + canonicalQuery +
		"&X-Amz-Signature=" + signature, nil
}

// queryParam is a single key/value pair in the signed query string.
type queryParam struct {
	key   string
	value string
}

// encodeQuery renders parameters as a canonical query string.
// Keys are already supplied in sorted order; values get full
// percent-encoding (session tokens contain '/', '+' and '=').
func encodeQuery(params []queryParam) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(awsEscape(p.value))
	}
	return b.String()
}

// awsEscape percent-encodes a value per the SigV4 canonical rules:
// every byte except unreserved characters (A-Z, a-z, 0-9, '-', '_',
// '.', '~') is encoded, with uppercase hex digits.
func awsEscape(s string) string {
	const upperhex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'A' <= c && c <= 'Z',
			'a' <= c && c <= 'z',
			'0' <= c && c <= '9',
			c == '-', c == '_', c == '.', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xF])
		}
	}
	return b.String()
}

// normalizeEndpoint strips a scheme prefix, the /mqtt path, and any
// trailing slash so callers can pass either a bare host or a full URL.
func normalizeEndpoint(endpoint string) string {
	host := endpoint
	for _, prefix := range []string{"wss://", "https://", "ws://", "http://"} {
		if strings.HasPrefix(host, prefix) {
			host = host[len(prefix):]
			break
		}
	}
	host = strings.TrimSuffix(host, signingPath)
	return strings.TrimSuffix(host, "/")
}

// signingKey derives the SigV4 signing key via the HMAC chain.
func signingKey(secretKey, dateStamp, region string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, region)
	kService := hmacSHA256(kRegion, signingService)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, msg string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

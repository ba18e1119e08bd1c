package mqtt

import (
	"crypto/tls"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/navilink-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// maxQoS is the maximum QoS level supported.
	// AWS IoT Core rejects QoS 2 at the protocol level.
	maxQoS = 1

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions creates paho MQTT options for a signed AWS IoT
// WebSocket URL.
//
// This configures:
//   - Broker URL (the full pre-signed wss:// URL including query string)
//   - Client ID for identification
//   - Clean session mode
//   - Connect timeout and keepalive from config
//
// Auto-reconnect is deliberately disabled: the SigV4 signature in the
// broker URL expires shortly after signing, so a paho-level retry would
// redial a stale URL. The connection manager owns reconnection and
// re-signs a fresh URL for every attempt.
func buildClientOptions(signedURL, clientID string, cfg config.BrokerConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(signedURL)
	opts.SetClientID(clientID)

	// Clean session - start fresh on connect (no persistent session on broker)
	opts.SetCleanSession(true)

	// Reconnection is handled above this layer with a freshly signed URL.
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	opts.SetConnectTimeout(cfg.GetConnectTimeout())

	// Keepalive - AWS IoT drops idle connections without regular PINGs
	opts.SetKeepAlive(cfg.GetKeepAlive())

	opts.SetTLSConfig(&tls.Config{
		MinVersion: tlsMinVersion,
	})

	return opts
}

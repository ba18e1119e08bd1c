// Package mqtt provides the AWS IoT MQTT transport for NaviLink Core.
//
// This package manages:
//   - A single MQTT-over-WebSocket connection dialed via pre-signed URL
//   - Message publishing with QoS guarantees (0 and 1 only)
//   - Topic subscriptions with panic-recovery handler isolation
//   - Topic builders for the device command channel
//   - Connection health monitoring
//
// # Architecture
//
// NaviLink devices are reached through AWS IoT Core, never directly.
// The cloud broker relays commands to the water heater and status
// frames back:
//
//	NaviLink Core ↔ AWS IoT Core (wss + SigV4) ↔ Water Heater
//
// The broker URL carries a SigV4 signature that expires shortly after
// signing, so this client never reconnects on its own. The connection
// manager in internal/connection signs a fresh URL and calls Connect
// for every attempt, then re-issues subscriptions (AWS IoT sessions
// are clean and subscriptions do not survive a reconnect).
//
// # Security Considerations
//
//   - TLS 1.2+ is enforced on every connection
//   - The signed URL embeds temporary AWS credentials; never log it
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(signedURL, clientID, cfg.Broker)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{DeviceType: 52, DeviceID: "navilink-04786332fca0",
//	    GroupID: "25004", UserID: "36283", SessionID: sessionID}
//
//	for _, topic := range topics.SubscriptionTopics() {
//	    client.Subscribe(topic, 1, onMessage)
//	}
//	client.Publish(topics.StatusRequest(), frame, 1, false)
package mqtt

package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/navilink-core/internal/infrastructure/config"
)

// testBrokerConfig returns a valid broker configuration for testing.
func testBrokerConfig() config.BrokerConfig {
	return config.BrokerConfig{
		Endpoint:       "a1b2c3example-ats.iot.us-east-1.amazonaws.com",
		Region:         "us-east-1",
		QoS:            1,
		ConnectTimeout: 5,
		KeepAlive:      300,
	}
}

// newTestClient builds a client that has never connected.
// No broker is required; these tests exercise validation and
// bookkeeping paths only.
func newTestClient() *Client {
	cfg := testBrokerConfig()
	opts := buildClientOptions("wss://"+cfg.Endpoint+"/mqtt", "navilink-test", cfg)

	return &Client{
		cfg:           cfg,
		options:       opts,
		client:        pahomqtt.NewClient(opts),
		subscriptions: make(map[string]subscription),
	}
}

// =============================================================================
// Option Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testBrokerConfig()
	signedURL := "wss://" + cfg.Endpoint + "/mqtt?X-Amz-Algorithm=AWS4-HMAC-SHA256"

	opts := buildClientOptions(signedURL, "navilink-session-1", cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("expected 1 broker URL, got %d", len(opts.Servers))
	}
	if opts.Servers[0].Scheme != "wss" {
		t.Errorf("broker scheme = %q, want wss", opts.Servers[0].Scheme)
	}
	if opts.ClientID != "navilink-session-1" {
		t.Errorf("ClientID = %q, want navilink-session-1", opts.ClientID)
	}
	if opts.AutoReconnect {
		t.Error("AutoReconnect = true, want false (manager owns reconnection)")
	}
	if opts.ConnectRetry {
		t.Error("ConnectRetry = true, want false")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
	if opts.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want 5s", opts.ConnectTimeout)
	}
	if opts.KeepAlive != 300 {
		t.Errorf("KeepAlive = %d, want 300", opts.KeepAlive)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("expected TLS config with enforced minimum version")
	}
}

// =============================================================================
// Connection State Tests
// =============================================================================

func TestIsConnected_InitialState(t *testing.T) {
	client := newTestClient()

	if client.IsConnected() {
		t.Error("IsConnected() = true for never-connected client, want false")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v, want nil", err)
	}
}

func TestClose_NotConnected(t *testing.T) {
	client := newTestClient()

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	client := newTestClient()

	err := client.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	client := newTestClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.HealthCheck(ctx)
	if err == nil || !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Publish Validation Tests
// =============================================================================

func TestPublishEmptyTopic(t *testing.T) {
	client := newTestClient()

	err := client.Publish("", []byte("payload"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	client := newTestClient()

	err := client.Publish("cmd/52/navilink-test/st", []byte("payload"), 2, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() with QoS 2 error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishOversizePayload(t *testing.T) {
	client := newTestClient()

	payload := make([]byte, maxPayloadSize+1)
	err := client.Publish("cmd/52/navilink-test/st", payload, 1, false)
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() oversize error = %v, want ErrPublishFailed", err)
	}
}

func TestPublishDisconnected(t *testing.T) {
	client := newTestClient()

	err := client.Publish("cmd/52/navilink-test/st", []byte("payload"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Subscribe Validation Tests
// =============================================================================

func TestSubscribeEmptyTopic(t *testing.T) {
	client := newTestClient()

	err := client.Subscribe("", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribeInvalidQoS(t *testing.T) {
	client := newTestClient()

	err := client.Subscribe("cmd/52/+/res", 2, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() with QoS 2 error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeNilHandler(t *testing.T) {
	client := newTestClient()

	err := client.Subscribe("cmd/52/+/res", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() with nil handler error = %v, want ErrSubscribeFailed", err)
	}
}

func TestSubscribeDisconnected(t *testing.T) {
	client := newTestClient()

	err := client.Subscribe("cmd/52/+/res", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Error("failed subscribe must not be tracked")
	}
}

func TestUnsubscribeEmptyTopic(t *testing.T) {
	client := newTestClient()

	err := client.Unsubscribe("")
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscriptionCount_Empty(t *testing.T) {
	client := newTestClient()

	if count := client.SubscriptionCount(); count != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", count)
	}
	if client.HasSubscription("cmd/52/navilink-test/res") {
		t.Error("HasSubscription() = true for empty client, want false")
	}
}

// =============================================================================
// Topic Builder Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{
		DeviceType: 52,
		DeviceID:   "navilink-04786332fca0",
		GroupID:    "25004",
		UserID:     "36283",
		SessionID:  "a1b2c3d4",
	}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "status request",
			got:      topics.StatusRequest(),
			expected: "cmd/52/navilink-04786332fca0/st",
		},
		{
			name:     "control",
			got:      topics.Control(),
			expected: "cmd/52/navilink-04786332fca0/ctrl",
		},
		{
			name:     "device response",
			got:      topics.DeviceResponse(),
			expected: "cmd/52/navilink-04786332fca0/res",
		},
		{
			name:     "session response",
			got:      topics.Response(),
			expected: "cmd/52/25004/36283/a1b2c3d4/res",
		},
		{
			name:     "session status response",
			got:      topics.ResponseStatus(),
			expected: "cmd/52/25004/36283/a1b2c3d4/res/st",
		},
		{
			name:     "session device info response",
			got:      topics.ResponseDeviceInfo(),
			expected: "cmd/52/25004/36283/a1b2c3d4/res/did",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestTopics_SubscriptionTopics(t *testing.T) {
	topics := Topics{
		DeviceType: 52,
		DeviceID:   "navilink-04786332fca0",
		GroupID:    "25004",
		UserID:     "36283",
		SessionID:  "a1b2c3d4",
	}

	subs := topics.SubscriptionTopics()
	if len(subs) != 4 {
		t.Fatalf("SubscriptionTopics() returned %d topics, want 4", len(subs))
	}

	seen := make(map[string]bool)
	for _, topic := range subs {
		if topic == "" {
			t.Error("empty subscription topic")
		}
		if seen[topic] {
			t.Errorf("duplicate subscription topic %q", topic)
		}
		seen[topic] = true
		if !strings.HasPrefix(topic, "cmd/52/") {
			t.Errorf("topic %q outside command namespace", topic)
		}
	}
}

func TestTopics_IsResponse(t *testing.T) {
	topics := Topics{
		DeviceType: 52,
		DeviceID:   "navilink-04786332fca0",
		GroupID:    "25004",
		UserID:     "36283",
		SessionID:  "a1b2c3d4",
	}

	tests := []struct {
		name     string
		topic    string
		expected bool
	}{
		{
			name:     "session status response",
			topic:    "cmd/52/25004/36283/a1b2c3d4/res/st",
			expected: true,
		},
		{
			name:     "session device info response",
			topic:    "cmd/52/25004/36283/a1b2c3d4/res/did",
			expected: true,
		},
		{
			name:     "device response",
			topic:    "cmd/52/navilink-04786332fca0/res",
			expected: true,
		},
		{
			name:     "another session",
			topic:    "cmd/52/25004/36283/other-session/res/st",
			expected: false,
		},
		{
			name:     "control topic",
			topic:    "cmd/52/navilink-04786332fca0/ctrl",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := topics.IsResponse(tt.topic); got != tt.expected {
				t.Errorf("IsResponse(%q) = %v, want %v", tt.topic, got, tt.expected)
			}
		})
	}
}

// =============================================================================
// Handler Isolation Tests
// =============================================================================

// fakeMessage implements pahomqtt.Message for handler tests.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// recordingLogger captures Error/Warn calls for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestWrapHandler_PanicRecovered(t *testing.T) {
	client := newTestClient()
	logger := &recordingLogger{}
	client.SetLogger(logger)

	handler := client.wrapHandler(func(string, []byte) error {
		panic("malformed frame")
	})

	// Must not propagate the panic.
	handler(nil, &fakeMessage{topic: "cmd/52/navilink-test/res/st", payload: []byte{0x00}})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) != 1 {
		t.Fatalf("expected 1 error log for recovered panic, got %d", len(logger.errors))
	}
}

func TestWrapHandler_ErrorLogged(t *testing.T) {
	client := newTestClient()
	logger := &recordingLogger{}
	client.SetLogger(logger)

	handler := client.wrapHandler(func(string, []byte) error {
		return errors.New("decode failed")
	})

	handler(nil, &fakeMessage{topic: "cmd/52/navilink-test/res/st", payload: []byte{0x00}})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 {
		t.Fatalf("expected 1 warn log for handler error, got %d", len(logger.warns))
	}
}

func TestWrapHandler_NoLogger(t *testing.T) {
	client := newTestClient()

	handler := client.wrapHandler(func(string, []byte) error {
		panic("malformed frame")
	})

	// Panic recovery must work without a logger set.
	handler(nil, &fakeMessage{topic: "cmd/52/navilink-test/res/st", payload: nil})
}

// =============================================================================
// Callback Registration Tests
// =============================================================================

func TestConnectionCallbacks(t *testing.T) {
	client := newTestClient()

	var connectCalled, disconnectCalled bool
	var disconnectErr error

	client.SetOnConnect(func() { connectCalled = true })
	client.SetOnDisconnect(func(err error) {
		disconnectCalled = true
		disconnectErr = err
	})

	client.handleConnect()
	if !connectCalled {
		t.Error("expected OnConnect callback to fire")
	}
	if !client.connected {
		t.Error("handleConnect must mark client connected")
	}

	lostErr := errors.New("connection lost")
	client.handleDisconnect(lostErr)
	if !disconnectCalled {
		t.Error("expected OnDisconnect callback to fire")
	}
	if !errors.Is(disconnectErr, lostErr) {
		t.Errorf("OnDisconnect error = %v, want %v", disconnectErr, lostErr)
	}
	if client.connected {
		t.Error("handleDisconnect must mark client disconnected")
	}
}

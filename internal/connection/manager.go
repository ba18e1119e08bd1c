package connection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/navilink-core/internal/auth"
	"github.com/nerrad567/navilink-core/internal/device"
	"github.com/nerrad567/navilink-core/internal/infrastructure/config"
	"github.com/nerrad567/navilink-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/navilink-core/internal/protocol"
	"github.com/nerrad567/navilink-core/internal/status"
)

// Defaults applied by NewManager for zero-valued options.
const (
	defaultStatusBuffer   = 16
	defaultCommandTimeout = 10 * time.Second
)

// Logger defines the logging interface for the connection manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Transport is the broker session surface the manager needs.
// Implemented by the infrastructure mqtt client; faked in tests.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	SetOnDisconnect(callback func(err error))
	IsConnected() bool
	Close() error
}

// Dialer opens a broker session from a signed URL. The default dials
// through the infrastructure mqtt client.
type Dialer func(signedURL, clientID string, cfg config.BrokerConfig) (Transport, error)

func pahoDialer(signedURL, clientID string, cfg config.BrokerConfig) (Transport, error) {
	client, err := mqtt.Connect(signedURL, clientID, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Statistics tracks connection activity. Monotonic for the lifetime
// of a Manager; a new Manager starts from zero.
type Statistics struct {
	MessagesSent     int64
	MessagesReceived int64
	ReconnectCount   int64
	ConnectedSince   time.Time
	LastError        string
}

// Options configures a Manager.
type Options struct {
	// Identity is the target device, from the device directory.
	Identity device.Identity

	// Provider supplies broker credentials. Called before every
	// connect attempt so refreshed credentials are picked up.
	Provider auth.Provider

	// Broker holds endpoint, region, and transport tuning.
	Broker config.BrokerConfig

	// Policy controls reconnection backoff. Zero value means
	// DefaultReconnectPolicy.
	Policy ReconnectPolicy

	// Calibration for the status normalizer. Zero value means
	// DefaultCalibration.
	Calibration status.Calibration

	// StatusBuffer is the delivery channel capacity.
	StatusBuffer int

	// CommandTimeout bounds each correlated request/response wait.
	CommandTimeout time.Duration

	Logger Logger

	// Dialer overrides the transport dial, for tests.
	Dialer Dialer
}

// Manager owns one broker session for one device. Construct with
// NewManager; a Manager is not reusable after Disconnect.
type Manager struct {
	identity       device.Identity
	provider       auth.Provider
	broker         config.BrokerConfig
	policy         ReconnectPolicy
	normalizer     *status.Normalizer
	calibration    status.Calibration
	commandTimeout time.Duration
	logger         Logger
	dial           Dialer
	qos            byte

	newSessionID func() string
	now          func() time.Time

	sm stateMachine

	// connectMu serializes handshakes: only one connect or reconnect
	// attempt may be in flight.
	connectMu sync.Mutex

	mu              sync.Mutex
	transport       Transport
	topics          mqtt.Topics
	clientID        string
	generation      uint64
	closed          bool
	reconnectCancel context.CancelFunc

	statusCh      chan status.DeviceStatus
	statusWaiters []chan status.DeviceStatus
	rawWaiters    map[string][]chan []byte
	pending       map[string]chan *protocol.ControlResponse
	latest        *status.DeviceStatus
	stats         Statistics
}

// NewManager builds a disconnected Manager.
//
// Returns:
//   - *Manager: Ready for Connect
//   - error: Invalid identity or reconnect policy
func NewManager(opts Options) (*Manager, error) {
	if err := opts.Identity.Validate(); err != nil {
		return nil, err
	}
	if opts.Provider == nil {
		return nil, errors.New("connection: credential provider is required")
	}
	if opts.Policy == (ReconnectPolicy{}) {
		opts.Policy = DefaultReconnectPolicy()
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}
	if opts.Calibration == (status.Calibration{}) {
		opts.Calibration = status.DefaultCalibration
	}
	if opts.StatusBuffer <= 0 {
		opts.StatusBuffer = defaultStatusBuffer
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.Dialer == nil {
		opts.Dialer = pahoDialer
	}

	qos := byte(opts.Broker.QoS)
	if qos > 1 {
		qos = 1
	}

	return &Manager{
		identity:       opts.Identity,
		provider:       opts.Provider,
		broker:         opts.Broker,
		policy:         opts.Policy,
		normalizer:     status.NewNormalizer(opts.Calibration),
		calibration:    opts.Calibration,
		commandTimeout: opts.CommandTimeout,
		logger:         opts.Logger,
		dial:           opts.Dialer,
		qos:            qos,
		newSessionID:   uuid.NewString,
		now:            time.Now,
		statusCh:       make(chan status.DeviceStatus, opts.StatusBuffer),
		rawWaiters:     make(map[string][]chan []byte),
		pending:        make(map[string]chan *protocol.ControlResponse),
	}, nil
}

// Status returns the delivery channel for decoded, normalized status
// frames. Closed by Disconnect. When the buffer is full the oldest
// pending consumer wins: new frames are dropped with a warning, since
// the next poll supersedes them.
func (m *Manager) Status() <-chan status.DeviceStatus {
	return m.statusCh
}

// State returns the current connection state.
func (m *Manager) State() State {
	return m.sm.current()
}

// Statistics returns a copy of the current counters.
func (m *Manager) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// LatestStatus returns the most recent decoded status, if any.
func (m *Manager) LatestStatus() (status.DeviceStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return status.DeviceStatus{}, false
	}
	return *m.latest, true
}

// Reset clears the Failed state so Connect may be retried. A no-op
// in any other state.
func (m *Manager) Reset() {
	m.sm.reset()
}

// Connect establishes the broker session, retrying per the reconnect
// policy. Blocks until Connected, Failed, or ctx cancellation.
//
// Returns:
//   - error: ErrAuthenticationFailed (terminal), ErrRetriesExhausted,
//     auth.ErrCredentialsExpired, or ctx error
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.mu.Unlock()

	if err := m.sm.transition(StateConnecting); err != nil {
		return err
	}
	return m.connectLoop(ctx)
}

// connectLoop drives attempts from the Connecting state until a
// terminal outcome. Caller must have already transitioned to
// Connecting.
func (m *Manager) connectLoop(ctx context.Context) error {
	m.connectMu.Lock()
	defer m.connectMu.Unlock()

	for attempt := 0; ; attempt++ {
		err := m.attemptConnect(ctx)
		if err == nil {
			if terr := m.sm.transition(StateConnected); terr != nil {
				// Disconnected out from under us mid-handshake.
				m.closeTransport()
				return ErrClosed
			}
			m.mu.Lock()
			m.stats.ConnectedSince = m.now()
			m.mu.Unlock()
			m.logger.Info("broker session established",
				"device", m.identity.DeviceID(),
				"attempt", attempt+1)
			return nil
		}

		m.noteError(err)

		if !retryable(err) {
			m.sm.transition(StateFailed)
			return err
		}
		if attempt >= m.policy.MaxRetries {
			m.sm.transition(StateFailed)
			return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempt+1, err)
		}

		if terr := m.sm.transition(StateReconnecting); terr != nil {
			return ErrClosed
		}
		m.mu.Lock()
		m.stats.ReconnectCount++
		m.mu.Unlock()

		delay := m.policy.NextDelay(attempt, nil)
		m.logger.Warn("connect attempt failed, backing off",
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err)

		select {
		case <-ctx.Done():
			m.sm.disconnect()
			return ctx.Err()
		case <-time.After(delay):
		}

		if terr := m.sm.transition(StateConnecting); terr != nil {
			return ErrClosed
		}
	}
}

// attemptConnect performs one handshake: re-sign, dial, subscribe.
// The signed URL is single-use, so signing happens here, per attempt.
func (m *Manager) attemptConnect(ctx context.Context) error {
	creds, err := m.provider.Credentials(ctx)
	if err != nil {
		return fmt.Errorf("%w: fetching credentials: %v", ErrAuthenticationFailed, err)
	}

	signedURL, err := auth.SignWebSocketURL(m.broker.Endpoint, m.broker.Region, creds, m.now())
	if err != nil {
		// Expired or incomplete credentials cannot be fixed by retry.
		return err
	}

	sessionID := m.newSessionID()
	clientID := sessionID

	transport, err := m.dial(signedURL, clientID, m.broker)
	if err != nil {
		return classifyDialError(err)
	}

	topics := mqtt.Topics{
		DeviceType: m.identity.DeviceType,
		DeviceID:   m.identity.DeviceID(),
		GroupID:    m.identity.GroupID,
		UserID:     m.identity.UserID,
		SessionID:  sessionID,
	}

	m.mu.Lock()
	if m.transport != nil {
		m.transport.Close()
	}
	m.generation++
	gen := m.generation
	m.transport = transport
	m.topics = topics
	m.clientID = clientID
	m.mu.Unlock()

	// Sessions are clean: subscriptions must be reissued after every
	// handshake.
	for _, topic := range topics.SubscriptionTopics() {
		if err := transport.Subscribe(topic, m.qos, func(topic string, payload []byte) error {
			m.handleMessage(gen, topic, payload)
			return nil
		}); err != nil {
			transport.Close()
			return fmt.Errorf("subscribing %s: %w", topic, err)
		}
	}

	transport.SetOnDisconnect(func(err error) {
		m.onTransportDown(gen, err)
	})
	return nil
}

// classifyDialError maps transport dial failures onto the retry
// taxonomy. Authentication rejections are terminal; everything else
// is worth a retry.
func classifyDialError(err error) error {
	if errors.Is(err, mqtt.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrConnectTimeout, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not authorized") || strings.Contains(msg, "bad user name or password") {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return err
}

// retryable reports whether a connect failure is worth another
// attempt.
func retryable(err error) bool {
	if errors.Is(err, ErrAuthenticationFailed) ||
		errors.Is(err, auth.ErrCredentialsExpired) ||
		errors.Is(err, auth.ErrCredentialsIncomplete) {
		return false
	}
	return true
}

// onTransportDown handles an unexpected transport drop. Stale
// generations are ignored: a drop notification from a session already
// torn down must not restart reconnection.
func (m *Manager) onTransportDown(gen uint64, cause error) {
	m.mu.Lock()
	if m.closed || gen != m.generation {
		m.mu.Unlock()
		return
	}
	if m.reconnectCancel != nil {
		m.reconnectCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.reconnectCancel = cancel
	m.mu.Unlock()

	if err := m.sm.transition(StateReconnecting); err != nil {
		return
	}

	m.noteError(cause)
	m.mu.Lock()
	m.stats.ReconnectCount++
	m.mu.Unlock()

	// Backoff applies before the first re-attempt too. Every client of
	// a dropped broker lost the transport at the same instant; redialing
	// at t=0 would make them all arrive together.
	delay := m.policy.NextDelay(0, nil)
	m.logger.Warn("transport lost, reconnecting",
		"error", cause,
		"delay", delay.String())

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if err := m.sm.transition(StateConnecting); err != nil {
			return
		}
		if err := m.connectLoop(ctx); err != nil {
			m.logger.Error("reconnection abandoned", "error", err)
		}
	}()
}

// Disconnect tears the session down: cancels reconnection, fails all
// in-flight waits, closes the transport and the status channel. The
// Manager cannot be reused afterwards.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.generation++ // invalidate in-flight handlers
	if m.reconnectCancel != nil {
		m.reconnectCancel()
		m.reconnectCancel = nil
	}
	transport := m.transport
	m.transport = nil
	for id, ch := range m.pending {
		close(ch)
		delete(m.pending, id)
	}
	for topic, waiters := range m.rawWaiters {
		for _, ch := range waiters {
			close(ch)
		}
		delete(m.rawWaiters, topic)
	}
	for _, ch := range m.statusWaiters {
		close(ch)
	}
	m.statusWaiters = nil
	close(m.statusCh)
	m.mu.Unlock()

	m.sm.disconnect()

	if transport != nil {
		return transport.Close()
	}
	return nil
}

// noteError records the most recent failure for Statistics.
func (m *Manager) noteError(err error) {
	m.mu.Lock()
	m.stats.LastError = err.Error()
	m.mu.Unlock()
}

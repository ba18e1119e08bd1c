package connection

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/navilink-core/internal/protocol"
	"github.com/nerrad567/navilink-core/internal/status"
)

// RequestStatus publishes one status poll. Fire and forget: the
// response, if any, arrives on the delivery channel. This is what
// the Poller calls on each tick.
func (m *Manager) RequestStatus() error {
	frame := protocol.EncodeCommand(protocol.OpGetStatus, m.identity.DeviceID(), nil)

	m.mu.Lock()
	topic := m.topics.StatusRequest()
	m.mu.Unlock()

	return m.publish(topic, frame)
}

// GetStatus polls the device and waits for the next decoded status.
//
// Returns:
//   - status.DeviceStatus: The next normalized frame
//   - error: ErrCommandTimeout if none arrives in time, ErrClosed if
//     the manager shut down while waiting
func (m *Manager) GetStatus(ctx context.Context) (status.DeviceStatus, error) {
	ch := make(chan status.DeviceStatus, 1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return status.DeviceStatus{}, ErrClosed
	}
	m.statusWaiters = append(m.statusWaiters, ch)
	m.mu.Unlock()

	if err := m.RequestStatus(); err != nil {
		m.dropStatusWaiter(ch)
		return status.DeviceStatus{}, err
	}

	timer := time.NewTimer(m.commandTimeout)
	defer timer.Stop()

	select {
	case s, ok := <-ch:
		if !ok {
			return status.DeviceStatus{}, ErrClosed
		}
		return s, nil
	case <-timer.C:
		m.dropStatusWaiter(ch)
		return status.DeviceStatus{}, fmt.Errorf("%w: no status after %v", ErrCommandTimeout, m.commandTimeout)
	case <-ctx.Done():
		m.dropStatusWaiter(ch)
		return status.DeviceStatus{}, ctx.Err()
	}
}

func (m *Manager) dropStatusWaiter(ch chan status.DeviceStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.statusWaiters {
		if w == ch {
			m.statusWaiters = append(m.statusWaiters[:i], m.statusWaiters[i+1:]...)
			return
		}
	}
}

// GetDeviceInfo requests the device information table and returns the
// raw response payload.
func (m *Manager) GetDeviceInfo(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	requestTopic := m.topics.DeviceInfoRequest()
	responseTopic := m.topics.ResponseDeviceInfo()
	m.mu.Unlock()
	return m.requestRaw(ctx, protocol.OpGetDeviceInfo, requestTopic, responseTopic)
}

// GetReservations requests the programmed reservation schedule and
// returns the raw response payload.
func (m *Manager) GetReservations(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	requestTopic := m.topics.ReservationRequest()
	responseTopic := m.topics.Response()
	m.mu.Unlock()
	return m.requestRaw(ctx, protocol.OpGetReservations, requestTopic, responseTopic)
}

// requestRaw publishes a binary query on its command topic and waits
// for the next payload on the given response topic.
func (m *Manager) requestRaw(ctx context.Context, opcode protocol.Opcode, requestTopic, responseTopic string) ([]byte, error) {
	ch := make(chan []byte, 1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.rawWaiters[responseTopic] = append(m.rawWaiters[responseTopic], ch)
	m.mu.Unlock()

	frame := protocol.EncodeCommand(opcode, m.identity.DeviceID(), nil)
	if err := m.publish(requestTopic, frame); err != nil {
		m.dropRawWaiter(responseTopic, ch)
		return nil, err
	}

	timer := time.NewTimer(m.commandTimeout)
	defer timer.Stop()

	select {
	case payload, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return payload, nil
	case <-timer.C:
		m.dropRawWaiter(responseTopic, ch)
		return nil, fmt.Errorf("%w: %s after %v", ErrCommandTimeout, opcode, m.commandTimeout)
	case <-ctx.Done():
		m.dropRawWaiter(responseTopic, ch)
		return nil, ctx.Err()
	}
}

func (m *Manager) dropRawWaiter(topic string, ch chan []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	waiters := m.rawWaiters[topic]
	for i, w := range waiters {
		if w == ch {
			m.rawWaiters[topic] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(m.rawWaiters[topic]) == 0 {
		delete(m.rawWaiters, topic)
	}
}

// SetDHWMode switches the DHW operating mode and waits for the
// device's acknowledgement.
func (m *Manager) SetDHWMode(ctx context.Context, mode protocol.DHWMode) error {
	req, err := protocol.NewDHWModeRequest(m.identity, mode)
	if err != nil {
		return err
	}
	_, err = m.sendControl(ctx, req)
	return err
}

// SetTemperature sets the target DHW temperature.
//
// temperature is in display °F, as shown on the vendor app. The write
// calibration offset is subtracted before the value goes on the wire,
// where the device accepts 70-131°F.
func (m *Manager) SetTemperature(ctx context.Context, temperature int) error {
	req, err := protocol.NewTemperatureRequest(m.identity, m.calibration.ToRaw(temperature))
	if err != nil {
		return err
	}
	_, err = m.sendControl(ctx, req)
	return err
}

// sendControl publishes a control envelope and waits for the
// correlated acknowledgement. Each request gets its own session
// identifier, so concurrent control commands do not interfere.
func (m *Manager) sendControl(ctx context.Context, req protocol.ControlRequest) (*protocol.ControlResponse, error) {
	requestID := m.newSessionID()
	ch := make(chan *protocol.ControlResponse, 1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	clientID := m.clientID
	controlTopic := m.topics.Control()
	responseTopic := m.topics.Response()
	m.pending[requestID] = ch
	m.mu.Unlock()

	payload, err := protocol.EncodeControl(req, clientID, requestID, controlTopic, responseTopic)
	if err != nil {
		m.dropPending(requestID)
		return nil, err
	}
	if err := m.publish(controlTopic, payload); err != nil {
		m.dropPending(requestID)
		return nil, err
	}

	timer := time.NewTimer(m.commandTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		return resp, nil
	case <-timer.C:
		m.dropPending(requestID)
		return nil, fmt.Errorf("%w: %s after %v", ErrCommandTimeout, req.Mode, m.commandTimeout)
	case <-ctx.Done():
		m.dropPending(requestID)
		return nil, ctx.Err()
	}
}

func (m *Manager) dropPending(requestID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, requestID)
}

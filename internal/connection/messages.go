package connection

import (
	"github.com/nerrad567/navilink-core/internal/protocol"
	"github.com/nerrad567/navilink-core/internal/status"
)

// handleMessage routes one inbound payload. Decode failures are
// logged and dropped: a malformed frame must never kill the read
// loop or reach the delivery channel.
func (m *Manager) handleMessage(gen uint64, topic string, payload []byte) {
	m.mu.Lock()
	if m.closed || gen != m.generation {
		// Frame from a torn-down session; never deliver stale data.
		m.mu.Unlock()
		return
	}
	m.stats.MessagesReceived++
	topics := m.topics
	m.mu.Unlock()

	switch topic {
	case topics.ResponseStatus(), topics.DeviceResponse():
		m.handleStatusFrame(gen, payload)
	case topics.Response():
		m.handleControlResponse(gen, topic, payload)
	case topics.ResponseDeviceInfo():
		m.deliverRaw(gen, topic, payload)
	default:
		m.logger.Debug("ignoring message on unexpected topic", "topic", topic)
	}
}

func (m *Manager) handleStatusFrame(gen uint64, payload []byte) {
	raw, err := protocol.DecodeStatus(payload)
	if err != nil {
		m.logger.Warn("dropping undecodable status frame",
			"error", err,
			"bytes", len(payload))
		return
	}

	s := m.normalizer.Normalize(raw, m.now())
	m.deliverStatus(gen, s)
}

// deliverStatus hands a normalized status to the delivery channel and
// any one-shot waiters. A full channel drops the frame with a warning;
// the next poll supersedes it.
func (m *Manager) deliverStatus(gen uint64, s status.DeviceStatus) {
	m.mu.Lock()
	if m.closed || gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.latest = &s
	waiters := m.statusWaiters
	m.statusWaiters = nil

	// The channel send must happen under the mutex: Disconnect closes
	// statusCh under the same lock, and a send racing that close would
	// panic. The default arm keeps the send from ever blocking here.
	var dropped bool
	select {
	case m.statusCh <- s:
	default:
		dropped = true
	}
	m.mu.Unlock()

	for _, ch := range waiters {
		ch <- s // buffered, one slot per waiter
		close(ch)
	}
	if dropped {
		m.logger.Warn("status channel full, dropping frame")
	}
}

func (m *Manager) handleControlResponse(gen uint64, topic string, payload []byte) {
	resp, err := protocol.DecodeControlResponse(payload)
	if err != nil {
		m.logger.Warn("dropping undecodable control response", "error", err)
		return
	}

	m.mu.Lock()
	if m.closed || gen != m.generation {
		m.mu.Unlock()
		return
	}
	ch, ok := m.pending[resp.SessionID]
	if ok {
		delete(m.pending, resp.SessionID)
	}
	m.mu.Unlock()

	if ok {
		ch <- resp // buffered, one slot
		close(ch)
		return
	}
	// Not a correlated control ack; hand it to any raw waiter on the
	// same topic (reservation queries share it).
	m.deliverRaw(gen, topic, payload)
}

func (m *Manager) deliverRaw(gen uint64, topic string, payload []byte) {
	m.mu.Lock()
	if m.closed || gen != m.generation {
		m.mu.Unlock()
		return
	}
	waiters := m.rawWaiters[topic]
	delete(m.rawWaiters, topic)
	m.mu.Unlock()

	if len(waiters) == 0 {
		m.logger.Debug("unsolicited message", "topic", topic, "bytes", len(payload))
		return
	}
	for _, ch := range waiters {
		ch <- payload // buffered, one slot per waiter
		close(ch)
	}
}

// closeTransport shuts the active transport without touching the
// rest of the manager state.
func (m *Manager) closeTransport() {
	m.mu.Lock()
	transport := m.transport
	m.transport = nil
	m.mu.Unlock()
	if transport != nil {
		transport.Close()
	}
}

// publish sends one payload on the active transport.
func (m *Manager) publish(topic string, payload []byte) error {
	m.mu.Lock()
	transport := m.transport
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if transport == nil || !transport.IsConnected() {
		return ErrNotConnected
	}
	if err := transport.Publish(topic, payload, m.qos, false); err != nil {
		return err
	}

	m.mu.Lock()
	m.stats.MessagesSent++
	m.mu.Unlock()
	return nil
}

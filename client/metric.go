package client

import (
	"sync/atomic"
)

// SessionMetrics contains atomic metrics for a session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type SessionMetrics struct {
	// HandshakeCount indicates the number of completed handshakes.
	HandshakeCount atomic.Uint64
	// FrameSendCount indicates the number of FINS command frames sent.
	FrameSendCount atomic.Uint64
	// FrameRecvCount indicates the number of validated FINS response frames received.
	FrameRecvCount atomic.Uint64
	// TimeoutCount indicates the number of waits aborted by the response timeout.
	TimeoutCount atomic.Uint64
	// ErrCount indicates the number of failed session operations, timeouts included.
	ErrCount atomic.Uint64
}

func (m *SessionMetrics) incHandshakeCount() {
	m.HandshakeCount.Add(1)
}

func (m *SessionMetrics) incFrameSendCount() {
	m.FrameSendCount.Add(1)
}

func (m *SessionMetrics) incFrameRecvCount() {
	m.FrameRecvCount.Add(1)
}

func (m *SessionMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *SessionMetrics) incErrCount() {
	m.ErrCount.Add(1)
}

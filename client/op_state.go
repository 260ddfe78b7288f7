package client

import "sync/atomic"

// OpState is the lifecycle state of a session.
type OpState uint32

const (
	// ClosedState: no transport, or the transport has been released.
	ClosedState OpState = iota
	// ClosingState: the transport is being released.
	ClosingState
	// OpeningState: connecting and handshaking.
	OpeningState
	// OpenedState: handshake completed, commands may be sent.
	OpenedState
)

// String returns string representation of the state.
func (s OpState) String() string {
	switch s {
	case ClosedState:
		return "closed"
	case ClosingState:
		return "closing"
	case OpeningState:
		return "opening"
	case OpenedState:
		return "opened"
	default:
		return "unknown"
	}
}

// AtomicOpState holds an OpState and guards its transitions.
type AtomicOpState struct {
	state atomic.Uint32
}

func (st *AtomicOpState) String() string {
	return st.Get().String()
}

// Get returns the current state.
func (st *AtomicOpState) Get() OpState {
	return OpState(st.state.Load())
}

func (st *AtomicOpState) IsClosed() bool {
	return st.Get() == ClosedState
}

func (st *AtomicOpState) IsOpened() bool {
	return st.Get() == OpenedState
}

// ToOpening moves Closed to Opening.
func (st *AtomicOpState) ToOpening() bool {
	return st.state.CompareAndSwap(uint32(ClosedState), uint32(OpeningState))
}

// ToOpened moves Opening to Opened.
func (st *AtomicOpState) ToOpened() bool {
	if st.IsOpened() {
		return true
	}

	return st.state.CompareAndSwap(uint32(OpeningState), uint32(OpenedState))
}

// ToClosing moves Opened or Opening to Closing.
func (st *AtomicOpState) ToClosing() bool {
	if st.state.CompareAndSwap(uint32(OpenedState), uint32(ClosingState)) {
		return true
	}

	return st.state.CompareAndSwap(uint32(OpeningState), uint32(ClosingState))
}

// ToClosed moves Closing to Closed.
func (st *AtomicOpState) ToClosed() bool {
	if st.IsClosed() {
		return true
	}

	return st.state.CompareAndSwap(uint32(ClosingState), uint32(ClosedState))
}

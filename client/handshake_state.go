package client

// HandshakeState is the state of the node address handshake of a session.
type HandshakeState uint32

// Handshake states, in the order they are passed through.
const (
	// HandshakeIdle: nothing sent yet.
	HandshakeIdle HandshakeState = iota
	// HandshakeHeaderSent: the node address request has been written.
	HandshakeHeaderSent
	// HandshakeWaitingHeader: waiting for the response header.
	HandshakeWaitingHeader
	// HandshakeHeaderReceived: the response header has been read and checked.
	HandshakeHeaderReceived
	// HandshakeWaitingBody: waiting for the node addresses following the header.
	HandshakeWaitingBody
	// HandshakeComplete: both node addresses are known.
	HandshakeComplete
	// HandshakeFailed: the handshake was aborted; the session error tells why.
	HandshakeFailed
)

// IsComplete returns if the handshake has completed.
func (hs HandshakeState) IsComplete() bool { return hs == HandshakeComplete }

// IsFailed returns if the handshake has failed.
func (hs HandshakeState) IsFailed() bool { return hs == HandshakeFailed }

// String returns string representation of the state.
func (hs HandshakeState) String() string {
	switch hs {
	case HandshakeIdle:
		return "idle"
	case HandshakeHeaderSent:
		return "header-sent"
	case HandshakeWaitingHeader:
		return "waiting-header"
	case HandshakeHeaderReceived:
		return "header-received"
	case HandshakeWaitingBody:
		return "waiting-body"
	case HandshakeComplete:
		return "complete"
	case HandshakeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

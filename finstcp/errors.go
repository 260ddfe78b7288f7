package finstcp

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport indicates that the underlying send or receive operation failed.
	// The underlying transport error is wrapped and can be inspected with errors.Is/errors.As.
	ErrTransport = errors.New("fins/tcp: transport error")

	// ErrConnectionClosed indicates that the peer closed the stream before the expected bytes arrived.
	ErrConnectionClosed = errors.New("fins/tcp: connection closed")

	// ErrResponseTimeout indicates that the response deadline elapsed while awaiting a reply.
	ErrResponseTimeout = errors.New("fins/tcp: response timeout")
)

var (
	// ErrIllegalCommand indicates that the command field of a received header does not match
	// what the current protocol step expects.
	ErrIllegalCommand = errors.New("fins/tcp: illegal command")

	// ErrMalformedHeader indicates that a header is shorter than 16 bytes, carries the wrong magic,
	// or declares a length smaller than the fixed command and error code fields.
	ErrMalformedHeader = errors.New("fins/tcp: malformed header")

	// ErrFrameTooLarge indicates that a header declares a payload larger than the configured maximum frame size.
	ErrFrameTooLarge = errors.New("fins/tcp: frame too large")
)

// ServerError is returned when a received header carries a non-zero error code.
type ServerError struct {
	// Command is the command field of the header that carried the error code.
	Command Command
	// Code is the raw error code.
	Code uint32
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("fins/tcp: server error 0x%08X (%s) on %s", e.Code, ErrorCodeText(e.Code), e.Command)
}

// ErrorCodeText returns the description of a FINS/TCP header error code.
func ErrorCodeText(code uint32) string {
	switch code {
	case 0x00:
		return "normal"
	case 0x01:
		return "header is not FINS"
	case 0x02:
		return "data length too long"
	case 0x03:
		return "command not supported"
	case 0x20:
		return "all connections in use"
	case 0x21:
		return "specified node already connected"
	case 0x22:
		return "attempt to access a protected node from an unspecified IP address"
	case 0x23:
		return "client FINS node address out of range"
	case 0x24:
		return "same FINS node address used by client and server"
	case 0x25:
		return "all node addresses available for allocation in use"
	default:
		return "unknown error"
	}
}

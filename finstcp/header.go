package finstcp

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderSize is the size of the FINS/TCP header in bytes.
	HeaderSize = 16
	// LengthBase is the part of the length field taken by the command and error code fields.
	LengthBase = 8
)

// Magic is the literal that opens every FINS/TCP header.
var Magic = [4]byte{'F', 'I', 'N', 'S'}

// NodeAddress identifies a FINS node. Client and server node addresses are assigned by the
// node address handshake.
type NodeAddress uint8

// Command is the FINS/TCP header command field.
type Command uint32

const (
	// CmdNodeAddressRequest is sent by the client to request a node address.
	CmdNodeAddressRequest Command = 0
	// CmdNodeAddressResponse is the server's reply carrying the client and server node addresses.
	CmdNodeAddressResponse Command = 1
	// CmdFrameSend carries a FINS command or response frame.
	CmdFrameSend Command = 2
	// CmdFrameSendError is sent by a server that could not deliver a FINS frame.
	CmdFrameSendError Command = 3
	// CmdConnectionConfirm is sent by a server to confirm an established connection.
	CmdConnectionConfirm Command = 6
)

// String returns string representation of the command.
func (c Command) String() string {
	switch c {
	case CmdNodeAddressRequest:
		return "node-address-request"
	case CmdNodeAddressResponse:
		return "node-address-response"
	case CmdFrameSend:
		return "frame-send"
	case CmdFrameSendError:
		return "frame-send-error"
	case CmdConnectionConfirm:
		return "connection-confirm"
	default:
		return fmt.Sprintf("command(%d)", uint32(c))
	}
}

// Header is a decoded FINS/TCP header.
type Header struct {
	// Length is the byte count following the length field: command(4) + error code(4) + payload.
	Length uint32
	// Command is the header command.
	Command Command
	// ErrorCode is zero on requests and on successful responses.
	ErrorCode uint32
}

// PayloadLen returns the number of payload bytes following the header.
func (h Header) PayloadLen() (int, error) {
	if h.Length < LengthBase {
		return 0, fmt.Errorf("%w: length %d is smaller than %d", ErrMalformedHeader, h.Length, LengthBase)
	}

	return int(h.Length - LengthBase), nil
}

// Err returns a *ServerError when the header carries a non-zero error code.
func (h Header) Err() error {
	if h.ErrorCode == 0 {
		return nil
	}

	return &ServerError{Command: h.Command, Code: h.ErrorCode}
}

// AppendHeader appends the encoded header for cmd followed by payloadLen bytes of payload to dst.
func AppendHeader(dst []byte, cmd Command, payloadLen uint16) []byte {
	dst = append(dst, Magic[:]...)
	dst = binary.BigEndian.AppendUint32(dst, LengthBase+uint32(payloadLen))
	dst = binary.BigEndian.AppendUint32(dst, uint32(cmd))

	return binary.BigEndian.AppendUint32(dst, 0)
}

// EncodeHeader returns the 16-byte header for cmd followed by payloadLen bytes of payload.
// The error code is always zero.
//
// FINS frames never exceed a few kilobytes, so the payload length is bounded by uint16 and the
// length field can not overflow.
func EncodeHeader(cmd Command, payloadLen uint16) []byte {
	return AppendHeader(make([]byte, 0, HeaderSize), cmd, payloadLen)
}

// DecodeHeader decodes a FINS/TCP header and verifies the "FINS" magic.
//
// b must hold at least HeaderSize bytes; extra bytes are ignored.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: need %d bytes, got %d", ErrMalformedHeader, HeaderSize, len(b))
	}

	if [4]byte(b[:4]) != Magic {
		return Header{}, fmt.Errorf("%w: incorrect magic 0x%02X%02X%02X%02X, expected 0x46494E53 (\"FINS\")",
			ErrMalformedHeader, b[0], b[1], b[2], b[3])
	}

	return DecodeHeaderLenient(b)
}

// DecodeHeaderLenient decodes a FINS/TCP header by position only, without checking the magic bytes.
//
// Some legacy clients and servers never look at the magic; this variant keeps compatibility with them.
func DecodeHeaderLenient(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: need %d bytes, got %d", ErrMalformedHeader, HeaderSize, len(b))
	}

	return Header{
		Length:    binary.BigEndian.Uint32(b[4:8]),
		Command:   Command(binary.BigEndian.Uint32(b[8:12])),
		ErrorCode: binary.BigEndian.Uint32(b[12:16]),
	}, nil
}

// EncodeCommandEnvelope returns the 16-byte frame-send header for a FINS frame of payloadLen bytes.
func EncodeCommandEnvelope(payloadLen uint16) []byte {
	return EncodeHeader(CmdFrameSend, payloadLen)
}

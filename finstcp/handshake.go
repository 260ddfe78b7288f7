package finstcp

import (
	"encoding/binary"
	"fmt"
)

const (
	// HandshakeRequestSize is the size of a node address request frame, header included.
	HandshakeRequestSize = HeaderSize + handshakeRequestPayload
	// HandshakeResponseSize is the size of a node address response frame, header included.
	HandshakeResponseSize = HeaderSize + handshakeResponsePayload

	handshakeRequestPayload  = 4
	handshakeResponsePayload = 8

	// AnyNode asks the server to assign the client node address.
	AnyNode NodeAddress = 0

	clientNodeOffset = 19
	serverNodeOffset = 23
)

// EncodeHandshakeRequest returns the 20-byte node address request frame.
//
// clientNode is the node address the client asks for; AnyNode lets the server pick one.
// The header and the payload are encoded as one block so they can be sent with a single write.
func EncodeHandshakeRequest(clientNode NodeAddress) []byte {
	frame := make([]byte, 0, HandshakeRequestSize)
	frame = AppendHeader(frame, CmdNodeAddressRequest, handshakeRequestPayload)

	return binary.BigEndian.AppendUint32(frame, uint32(clientNode))
}

// DecodeHandshakeResponse extracts the client and server node addresses from a 24-byte
// node address response frame.
//
// The header is not interpreted here: callers decode and validate it with DecodeHeader first.
func DecodeHandshakeResponse(b []byte) (client NodeAddress, server NodeAddress, err error) {
	if len(b) < HandshakeResponseSize {
		return 0, 0, fmt.Errorf("%w: node address response needs %d bytes, got %d",
			ErrMalformedHeader, HandshakeResponseSize, len(b))
	}

	return NodeAddress(b[clientNodeOffset]), NodeAddress(b[serverNodeOffset]), nil
}

// EncodeHandshakeResponse returns the 24-byte node address response frame a server sends back.
//
// It is the counterpart of DecodeHandshakeResponse and is used by simulated servers.
func EncodeHandshakeResponse(client NodeAddress, server NodeAddress, errorCode uint32) []byte {
	frame := make([]byte, 0, HandshakeResponseSize)
	frame = AppendHeader(frame, CmdNodeAddressResponse, handshakeResponsePayload)
	binary.BigEndian.PutUint32(frame[12:16], errorCode)
	frame = binary.BigEndian.AppendUint32(frame, uint32(client))

	return binary.BigEndian.AppendUint32(frame, uint32(server))
}

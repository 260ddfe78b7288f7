package fins

import "fmt"

const (
	// HeaderSize is the size of the FINS control prefix in bytes.
	HeaderSize = 10

	// DefaultGatewayCount is the permissible number of bridges a frame may pass.
	DefaultGatewayCount byte = 0x02
)

// ICF is the information control field, the first byte of every FINS frame.
type ICF byte

const (
	// ICFRequest is a command that expects a response.
	ICFRequest ICF = 0x80
	// ICFRequestNoResponse is a command that does not expect a response.
	ICFRequestNoResponse ICF = 0x81
	// ICFResponse is a response frame.
	ICFResponse ICF = 0xC0
	// ICFResponseNoResponse is a response frame flagged as not requiring a response.
	ICFResponseNoResponse ICF = 0xC1

	icfBridges          ICF = 1 << 7
	icfResponseBit      ICF = 1 << 6
	icfNoResponseBit    ICF = 1 << 0
	icfReservedBitsMask ICF = 0b00111110
)

// IsRequest reports whether the frame is a command rather than a response.
func (icf ICF) IsRequest() bool { return icf&icfResponseBit == 0 }

// RequiresResponse reports whether the sender expects a response.
func (icf ICF) RequiresResponse() bool { return icf&icfNoResponseBit == 0 }

// Validate reports an error when the bridge bit is cleared or reserved bits are set.
func (icf ICF) Validate() error {
	if icf&icfBridges == 0 || icf&icfReservedBitsMask != 0 {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidICF, byte(icf))
	}

	return nil
}

// Address is the FINS address of a node: network, node and unit.
type Address struct {
	Network byte
	Node    byte
	Unit    byte
}

// NodeAddress returns the local-network address of node, network and unit zero.
func NodeAddress(node byte) Address {
	return Address{Node: node}
}

// String returns string representation of the address, e.g. "0.7.0".
func (a Address) String() string {
	return fmt.Sprintf("%d.%d.%d", a.Network, a.Node, a.Unit)
}

// Header is the FINS control prefix.
type Header struct {
	ICF ICF
	// GCT is the gateway count.
	GCT byte
	Dst Address
	Src Address
	// SID is the service ID chosen by the requester and echoed by the responder.
	SID byte
}

// NewRequestHeader returns the header of a command from src to dst that expects a response.
func NewRequestHeader(dst Address, src Address, sid byte) Header {
	return Header{
		ICF: ICFRequest,
		GCT: DefaultGatewayCount,
		Dst: dst,
		Src: src,
		SID: sid,
	}
}

// ResponseHeader returns the header answering h: addresses swapped, SID echoed.
func (h Header) ResponseHeader() Header {
	return Header{
		ICF: ICFResponse,
		GCT: h.GCT,
		Dst: h.Src,
		Src: h.Dst,
		SID: h.SID,
	}
}

// AppendTo appends the 10-byte encoding of h to dst.
func (h Header) AppendTo(dst []byte) []byte {
	return append(dst,
		byte(h.ICF), 0x00, h.GCT,
		h.Dst.Network, h.Dst.Node, h.Dst.Unit,
		h.Src.Network, h.Src.Node, h.Src.Unit,
		h.SID,
	)
}

// Encode returns the 10-byte encoding of h.
func (h Header) Encode() []byte {
	return h.AppendTo(make([]byte, 0, HeaderSize))
}

// DecodeHeader decodes the control prefix at the start of b.
// The reserved byte is ignored and the ICF is returned as is.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header needs %d bytes, got %d", ErrShortFrame, HeaderSize, len(b))
	}

	return Header{
		ICF: ICF(b[0]),
		GCT: b[2],
		Dst: Address{Network: b[3], Node: b[4], Unit: b[5]},
		Src: Address{Network: b[6], Node: b[7], Unit: b[8]},
		SID: b[9],
	}, nil
}

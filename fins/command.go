package fins

import "encoding/binary"

// Command codes.
const (
	// MRCMemoryArea is the main request code of the memory area commands.
	MRCMemoryArea byte = 0x01
	// SRCMemoryAreaRead is the sub request code of the memory area read command.
	SRCMemoryAreaRead byte = 0x01
)

const (
	// ReadMemoryAreaSize is the size of an encoded memory area read command frame.
	ReadMemoryAreaSize = HeaderSize + 2 + 4 + 2

	// DefaultStartAddress is the DM word read when no address is configured.
	DefaultStartAddress uint16 = 0x0064
	// DefaultWordCount is the number of words read when no count is configured.
	DefaultWordCount uint16 = 0x0096
)

// ReadMemoryAreaRequest is a memory area read command.
type ReadMemoryAreaRequest struct {
	Header  Header
	Address MemoryAddress
	// Count is the number of items to read: words for word areas, bits for bit areas.
	Count uint16
}

// Encode returns the command frame: control prefix, MRC, SRC, address and item count.
func (r ReadMemoryAreaRequest) Encode() []byte {
	frame := make([]byte, 0, ReadMemoryAreaSize)
	frame = r.Header.AppendTo(frame)
	frame = append(frame, MRCMemoryArea, SRCMemoryAreaRead)
	frame = r.Address.AppendTo(frame)

	return binary.BigEndian.AppendUint16(frame, r.Count)
}

// EncodeReadMemoryArea returns a memory area read command frame from src to dst.
func EncodeReadMemoryArea(dst Address, src Address, sid byte, addr MemoryAddress, count uint16) []byte {
	return ReadMemoryAreaRequest{
		Header:  NewRequestHeader(dst, src, sid),
		Address: addr,
		Count:   count,
	}.Encode()
}

// EncodeReadDMCommand returns the 18-byte frame reading wordCount words of the DM area from startAddr.
//
// destNode and srcNode are the server and client node addresses negotiated by the FINS/TCP handshake;
// networks and units are zero.
func EncodeReadDMCommand(destNode byte, srcNode byte, sid byte, startAddr uint16, wordCount uint16) []byte {
	return EncodeReadMemoryArea(NodeAddress(destNode), NodeAddress(srcNode), sid, DM(startAddr), wordCount)
}

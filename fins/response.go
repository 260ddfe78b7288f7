package fins

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-fins/internal/util"
)

// MinResponseSize is the size of the shortest valid response: control prefix, MRC, SRC, MRES, SRES.
const MinResponseSize = HeaderSize + 4

// Response is a decoded FINS response frame.
type Response struct {
	Header Header
	MRC    byte
	SRC    byte
	// EndCode is the big-endian MRES/SRES pair.
	EndCode uint16
	// Data is the command specific payload following the end code.
	Data []byte
}

// DecodeResponse decodes a response frame. Data is copied out of b.
func DecodeResponse(b []byte) (*Response, error) {
	if len(b) < MinResponseSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrShortFrame, len(b), MinResponseSize)
	}

	header, err := DecodeHeader(b)
	if err != nil {
		return nil, err
	}

	return &Response{
		Header:  header,
		MRC:     b[10],
		SRC:     b[11],
		EndCode: binary.BigEndian.Uint16(b[12:14]),
		Data:    util.CloneSlice(b[MinResponseSize:], 0),
	}, nil
}

// Err returns an *EndCodeError when the end code reports a failure.
//
// Bit 7 of MRES and bits 7 and 6 of SRES only flag relay and CPU unit warnings and are ignored.
func (r *Response) Err() error {
	mres := byte(r.EndCode>>8) & 0x7F
	sres := byte(r.EndCode) & 0x3F
	if mres == 0 && sres == 0 {
		return nil
	}

	return &EndCodeError{MRES: mres, SRES: sres}
}

// Words interprets Data as big-endian 16-bit words. A trailing odd byte is ignored.
func (r *Response) Words() []uint16 {
	words := make([]uint16, len(r.Data)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(r.Data[i*2:])
	}

	return words
}

// ValidateResponse checks that response answers request.
//
// It fails with ErrShortFrame when the response is shorter than MinResponseSize, with
// ErrIllegalSourceAddress when the response source address (SNA, SA1, SA2) is not the request
// destination address (DNA, DA1, DA2), and with ErrIllegalSID when the service IDs differ.
func ValidateResponse(request []byte, response []byte) error {
	if len(request) < HeaderSize {
		return fmt.Errorf("%w: request of %d bytes", ErrShortFrame, len(request))
	}
	if len(response) < MinResponseSize {
		return fmt.Errorf("%w: %d bytes, need at least %d", ErrShortFrame, len(response), MinResponseSize)
	}

	if request[3] != response[6] || request[4] != response[7] || request[5] != response[8] {
		return fmt.Errorf("%w: got %d.%d.%d, expected %d.%d.%d", ErrIllegalSourceAddress,
			response[6], response[7], response[8], request[3], request[4], request[5])
	}

	if request[9] != response[9] {
		return fmt.Errorf("%w: got %d, expected %d", ErrIllegalSID, response[9], request[9])
	}

	return nil
}

// EncodeReadMemoryAreaResponse returns the response frame a PLC sends for request, carrying data.
//
// It is used by simulated servers.
func EncodeReadMemoryAreaResponse(request Header, endCode uint16, data []byte) []byte {
	frame := make([]byte, 0, MinResponseSize+len(data))
	frame = request.ResponseHeader().AppendTo(frame)
	frame = append(frame, MRCMemoryArea, SRCMemoryAreaRead)
	frame = binary.BigEndian.AppendUint16(frame, endCode)

	return append(frame, data...)
}

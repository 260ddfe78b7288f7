package fins

import (
	"errors"
	"fmt"
)

var (
	// ErrShortFrame indicates that a response frame is shorter than the minimum valid FINS response.
	ErrShortFrame = errors.New("fins: frame too short")

	// ErrIllegalSourceAddress indicates that the source address of a response does not reflect the
	// destination address of the request.
	ErrIllegalSourceAddress = errors.New("fins: illegal source address")

	// ErrIllegalSID indicates that the service ID of a response differs from the request's.
	ErrIllegalSID = errors.New("fins: illegal SID")

	// ErrInvalidICF indicates that an information control field has reserved bits set.
	ErrInvalidICF = errors.New("fins: invalid information control field")
)

// EndCodeError is reported by Response.Err when the PLC answered with a non-zero end code.
type EndCodeError struct {
	// MRES is the main response code.
	MRES byte
	// SRES is the sub response code.
	SRES byte
}

func (e *EndCodeError) Error() string {
	return fmt.Sprintf("fins: end code %02X%02X (%s)", e.MRES, e.SRES, EndCodeText(e.MRES))
}

// EndCodeText describes the main response code of a FINS end code.
func EndCodeText(mres byte) string {
	// bit 7 flags a relay error and does not change the main code
	switch mres & 0x7F {
	case 0x00:
		return "normal completion"
	case 0x01:
		return "local node error"
	case 0x02:
		return "destination node error"
	case 0x03:
		return "communications controller error"
	case 0x04:
		return "not executable"
	case 0x05:
		return "routing error"
	case 0x10:
		return "command format error"
	case 0x11:
		return "parameter error"
	case 0x20:
		return "read not possible"
	case 0x21:
		return "write not possible"
	case 0x22:
		return "not executable in current mode"
	case 0x23:
		return "no unit"
	case 0x24:
		return "start/stop not possible"
	case 0x25:
		return "unit error"
	case 0x26:
		return "command error"
	case 0x30:
		return "access right error"
	case 0x40:
		return "abort"
	default:
		return "unknown end code"
	}
}

package fins

import (
	"fmt"
	"strings"
)

// MemoryArea is a FINS memory area code.
type MemoryArea byte

// Word and bit area codes of CS/CJ series PLCs.
const (
	AreaDMBit  MemoryArea = 0x02
	AreaCIOBit MemoryArea = 0x30
	AreaWRBit  MemoryArea = 0x31
	AreaHRBit  MemoryArea = 0x32
	AreaARBit  MemoryArea = 0x33
	AreaDM     MemoryArea = 0x82
	AreaCIO    MemoryArea = 0xB0
	AreaWR     MemoryArea = 0xB1
	AreaHR     MemoryArea = 0xB2
	AreaAR     MemoryArea = 0xB3
)

// IsWordArea reports whether the area is addressed in 16-bit words.
func (a MemoryArea) IsWordArea() bool {
	switch a {
	case AreaDM, AreaCIO, AreaWR, AreaHR, AreaAR:
		return true
	default:
		return false
	}
}

// IsBitArea reports whether the area is addressed in single bits.
func (a MemoryArea) IsBitArea() bool {
	switch a {
	case AreaDMBit, AreaCIOBit, AreaWRBit, AreaHRBit, AreaARBit:
		return true
	default:
		return false
	}
}

// String returns the conventional area prefix, e.g. "D" for the DM area.
func (a MemoryArea) String() string {
	switch a {
	case AreaDM, AreaDMBit:
		return "D"
	case AreaCIO, AreaCIOBit:
		return "CIO"
	case AreaWR, AreaWRBit:
		return "W"
	case AreaHR, AreaHRBit:
		return "H"
	case AreaAR, AreaARBit:
		return "A"
	default:
		return fmt.Sprintf("area(0x%02X)", byte(a))
	}
}

// ParseWordArea returns the word area named by name: "DM", "CIO", "WR", "HR", "AR", or the
// single-letter prefixes "D", "W", "H", "A". Matching is case-insensitive.
func ParseWordArea(name string) (MemoryArea, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DM", "D":
		return AreaDM, nil
	case "CIO":
		return AreaCIO, nil
	case "WR", "W":
		return AreaWR, nil
	case "HR", "H":
		return AreaHR, nil
	case "AR", "A":
		return AreaAR, nil
	default:
		return 0, fmt.Errorf("unknown memory area %q", name)
	}
}

// MemoryAddress addresses a word, or a bit within a word, of a memory area.
type MemoryAddress struct {
	Area   MemoryArea
	Offset uint16
	Bit    byte
}

// DM returns the address of word offset in the DM area.
func DM(offset uint16) MemoryAddress {
	return MemoryAddress{Area: AreaDM, Offset: offset}
}

// String returns the address in PLC notation, "D100" or "W3.05" for a bit.
func (m MemoryAddress) String() string {
	if m.Area.IsBitArea() {
		return fmt.Sprintf("%s%d.%02d", m.Area, m.Offset, m.Bit)
	}

	return fmt.Sprintf("%s%d", m.Area, m.Offset)
}

// AppendTo appends the 4-byte encoding of m: area code, big-endian offset, bit.
func (m MemoryAddress) AppendTo(dst []byte) []byte {
	return append(dst, byte(m.Area), byte(m.Offset>>8), byte(m.Offset), m.Bit)
}

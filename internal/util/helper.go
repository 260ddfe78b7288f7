package util

import (
	"encoding/hex"
	"strings"
)

// CloneSlice clones slice with cloneSize.
// This function will use src length as the clone size if cloneSize is 0.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// HexString renders data as space separated upper-case hex octets, e.g. "46 49 4E 53".
// It is meant for debug logging of raw frames.
func HexString(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(data)*3 - 1)
	buf := make([]byte, 2)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		hex.Encode(buf, []byte{b})
		sb.WriteString(strings.ToUpper(string(buf)))
	}

	return sb.String()
}

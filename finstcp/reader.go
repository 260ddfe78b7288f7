package finstcp

import (
	"errors"
	"fmt"
	"io"
)

// ReadExact reads exactly n bytes from r.
//
// Short reads are accumulated until n bytes have been collected. The result is all-or-nothing:
// on failure the partial data is discarded and only an error is returned.
//
// A read that returns no data and no error, io.EOF, or io.ErrUnexpectedEOF fails with
// ErrConnectionClosed. Any other read error fails with ErrTransport wrapping the cause.
func ReadExact(r io.Reader, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative read length %d", ErrTransport, n)
	}

	buf := make([]byte, n)
	if err := ReadExactInto(r, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// ReadExactInto fills buf completely from r. See ReadExact for the error semantics.
//
// On failure the content of buf is unspecified and must not be used.
func ReadExactInto(r io.Reader, buf []byte) error {
	offset := 0
	remaining := len(buf)

	for remaining > 0 {
		n, err := r.Read(buf[offset:])
		if n > 0 {
			offset += n
			remaining -= n
			if remaining == 0 {
				// a reader may return the last chunk together with io.EOF
				return nil
			}
		}

		switch {
		case err == nil && n == 0:
			return fmt.Errorf("%w: read returned no data after %d of %d bytes", ErrConnectionClosed, offset, len(buf))
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return fmt.Errorf("%w: after %d of %d bytes", ErrConnectionClosed, offset, len(buf))
		case err != nil:
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
	}

	return nil
}

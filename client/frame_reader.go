package client

import (
	"fmt"
	"io"

	"github.com/arloliu/go-fins/finstcp"
)

// frameReader reads FINS/TCP frames from a transport in two steps: the fixed 16-byte header, then
// the payload whose size the header declares.
//
// frameReader is NOT goroutine-safe, consistent with the single-receiver design of a session.
type frameReader struct {
	maxPayload   int
	lenientMagic bool
	headerBuf    [finstcp.HeaderSize]byte
}

// readHeader reads and checks one header. expect is the command the current protocol step accepts.
//
// A non-zero error code fails with *finstcp.ServerError, a different command with finstcp.ErrIllegalCommand.
// The raw header bytes are only valid until the next call.
func (fr *frameReader) readHeader(r io.Reader, expect finstcp.Command) (finstcp.Header, []byte, error) {
	raw := fr.headerBuf[:]
	if err := finstcp.ReadExactInto(r, raw); err != nil {
		return finstcp.Header{}, nil, fmt.Errorf("read header: %w", err)
	}

	var header finstcp.Header
	var err error
	if fr.lenientMagic {
		header, err = finstcp.DecodeHeaderLenient(raw)
	} else {
		header, err = finstcp.DecodeHeader(raw)
	}
	if err != nil {
		return finstcp.Header{}, raw, err
	}

	if err := header.Err(); err != nil {
		return header, raw, err
	}

	if header.Command != expect {
		return header, raw, fmt.Errorf("%w: received %s, expected %s", finstcp.ErrIllegalCommand, header.Command, expect)
	}

	return header, raw, nil
}

// readPayload reads the payload announced by header, rejecting payloads longer than the configured maximum.
func (fr *frameReader) readPayload(r io.Reader, header finstcp.Header) ([]byte, error) {
	n, err := header.PayloadLen()
	if err != nil {
		return nil, err
	}

	if n > fr.maxPayload {
		return nil, fmt.Errorf("%w: %d bytes exceeds maximum %d", finstcp.ErrFrameTooLarge, n, fr.maxPayload)
	}

	payload, err := finstcp.ReadExact(r, n)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	return payload, nil
}

// Package finstcp implements the FINS/TCP envelope that carries FINS frames over a TCP stream.
//
// Every FINS/TCP frame starts with a fixed 16-byte header, all integers big-endian:
//
//	offset  size  field
//	0       4     magic, the literal bytes "FINS"
//	4       4     length, byte count from offset 8 to the end of the frame
//	8       4     command (0 = node address request, 1 = node address response, 2 = frame send)
//	12      4     error code, 0 on requests, set by the server on responses
//	16      -     payload
//
// A client must complete the node address handshake (command 0 answered by command 1) before
// any FINS frame (command 2) may be sent. The package provides the pure encode/decode functions for
// both steps, and ReadExact, which reassembles fixed-size chunks from a stream that may deliver
// short reads.
//
// The session state machine that drives these pieces lives in the client package.
package finstcp

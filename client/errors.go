package client

import "errors"

var (
	// ErrConnConfigNil indicates that a nil SessionConfig was provided.
	ErrConnConfigNil = errors.New("session config is nil")

	// ErrSessionOpened indicates that Open was called on a session that is not closed.
	ErrSessionOpened = errors.New("session already opened")

	// ErrSessionNotOpened indicates that a command was issued on a session that has not completed the handshake.
	ErrSessionNotOpened = errors.New("session not opened")

	// ErrTransportNil indicates that OpenTransport was called with a nil transport.
	ErrTransportNil = errors.New("transport is nil")

	// ErrDuplicateTarget indicates that two group targets share a name.
	ErrDuplicateTarget = errors.New("duplicate target name")
)

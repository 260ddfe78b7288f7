// Package finstest provides a simulated FINS/TCP server for tests.
package finstest

import (
	"encoding/binary"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-fins/fins"
	"github.com/arloliu/go-fins/finstcp"
)

// Behavior selects how the server answers.
type Behavior int

const (
	// Normal answers the handshake and every read command correctly.
	Normal Behavior = iota
	// Silent reads the handshake request and never answers.
	Silent
	// SilentAfterHandshake completes the handshake and never answers a command.
	SilentAfterHandshake
	// WrongSID answers commands with a service ID one higher than requested.
	WrongSID
	// WrongSource answers commands from a node other than the server node.
	WrongSource
	// WrongHandshakeCommand answers the handshake with a frame-send header.
	WrongHandshakeCommand
	// BadMagic answers the handshake and commands with headers carrying "SNIF" as magic.
	BadMagic
	// HandshakeError answers the handshake with the configured error code.
	HandshakeError
	// CloseAfterHandshake completes the handshake and closes the connection.
	CloseAfterHandshake
	// Oversize answers commands with a header declaring a 64 KiB payload.
	Oversize
)

// Server is a loopback FINS/TCP server. It is closed by the test cleanup.
type Server struct {
	t  testing.TB
	ln net.Listener

	clientNode finstcp.NodeAddress
	serverNode finstcp.NodeAddress
	behavior   Behavior
	errorCode  uint32
	endCode    uint16
	chunkSize  int
	data       []byte

	mu       sync.Mutex
	closed   bool
	received [][]byte
	conns    map[net.Conn]struct{}

	disconnects chan struct{}
	wg          sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithNodes sets the node addresses the server hands out. The client node is only used when the
// client asks for node 0. Defaults: client 5, server 7.
func WithNodes(client, server finstcp.NodeAddress) Option {
	return func(s *Server) { s.clientNode, s.serverNode = client, server }
}

// WithBehavior sets how the server answers.
func WithBehavior(b Behavior) Option {
	return func(s *Server) { s.behavior = b }
}

// WithErrorCode sets the header error code sent by HandshakeError.
func WithErrorCode(code uint32) Option {
	return func(s *Server) { s.errorCode = code }
}

// WithEndCode sets the end code of command responses.
func WithEndCode(code uint16) Option {
	return func(s *Server) { s.endCode = code }
}

// WithData sets the response data. By default each requested word holds its own address offset.
func WithData(data []byte) Option {
	return func(s *Server) { s.data = data }
}

// WithChunkSize makes the server write every frame in chunks of n bytes.
func WithChunkSize(n int) Option {
	return func(s *Server) { s.chunkSize = n }
}

// NewServer starts a server on a loopback port.
func NewServer(t testing.TB, opts ...Option) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &Server{
		t:           t,
		ln:          ln,
		clientNode:  5,
		serverNode:  7,
		errorCode:   0x21,
		conns:       make(map[net.Conn]struct{}),
		disconnects: make(chan struct{}, 64),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.acceptLoop()

	t.Cleanup(s.Close)

	return s
}

// Host returns the listening host.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.ln.Addr().String())
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.ln.Addr().String())
	n, _ := strconv.Atoi(port)

	return n
}

// Received returns a copy of every frame received so far, header included, in arrival order.
func (s *Server) Received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]byte, len(s.received))
	copy(out, s.received)

	return out
}

// Disconnects receives one value each time a client closes its side of a connection.
func (s *Server) Disconnects() <-chan struct{} {
	return s.disconnects
}

// Close stops the server and closes open connections.
func (s *Server) Close() {
	_ = s.ln.Close()

	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()

			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	req, err := finstcp.ReadExact(conn, finstcp.HandshakeRequestSize)
	if err != nil {
		return
	}
	s.record(req)

	if s.behavior == Silent {
		s.drain(conn)
		return
	}

	client := finstcp.NodeAddress(binary.BigEndian.Uint32(req[16:20]))
	if client == finstcp.AnyNode {
		client = s.clientNode
	}

	rsp := finstcp.EncodeHandshakeResponse(client, s.serverNode, 0)
	switch s.behavior {
	case WrongHandshakeCommand:
		binary.BigEndian.PutUint32(rsp[8:12], uint32(finstcp.CmdFrameSend))
	case BadMagic:
		copy(rsp[0:4], "SNIF")
	case HandshakeError:
		binary.BigEndian.PutUint32(rsp[12:16], s.errorCode)
	}

	if !s.write(conn, rsp) {
		return
	}

	switch s.behavior {
	case CloseAfterHandshake, HandshakeError, WrongHandshakeCommand:
		return
	case SilentAfterHandshake:
		s.drain(conn)
		return
	}

	for {
		header, err := finstcp.ReadExact(conn, finstcp.HeaderSize)
		if err != nil {
			s.disconnected(err)
			return
		}

		h, err := finstcp.DecodeHeader(header)
		if err != nil {
			return
		}
		n, err := h.PayloadLen()
		if err != nil {
			return
		}

		frame, err := finstcp.ReadExact(conn, n)
		if err != nil {
			s.disconnected(err)
			return
		}
		s.record(append(header, frame...))

		if !s.write(conn, s.respond(frame)) {
			return
		}
	}
}

func (s *Server) respond(cmd []byte) []byte {
	reqHeader, err := fins.DecodeHeader(cmd)
	if err != nil {
		s.t.Errorf("decode command header: %v", err)
		return nil
	}

	switch s.behavior {
	case WrongSID:
		reqHeader.SID++
	case WrongSource:
		reqHeader.Dst.Node++
	case Oversize:
		return finstcp.EncodeCommandEnvelope(0xFFFF)
	}

	data := s.data
	if data == nil && len(cmd) >= fins.ReadMemoryAreaSize {
		offset := binary.BigEndian.Uint16(cmd[13:15])
		count := binary.BigEndian.Uint16(cmd[16:18])
		data = make([]byte, 0, int(count)*2)
		for i := range count {
			data = binary.BigEndian.AppendUint16(data, offset+i)
		}
	}

	payload := fins.EncodeReadMemoryAreaResponse(reqHeader, s.endCode, data)
	frame := finstcp.EncodeCommandEnvelope(uint16(len(payload)))
	if s.behavior == BadMagic {
		copy(frame[0:4], "SNIF")
	}

	return append(frame, payload...)
}

func (s *Server) write(conn net.Conn, frame []byte) bool {
	if s.chunkSize <= 0 {
		_, err := conn.Write(frame)
		return err == nil
	}

	for len(frame) > 0 {
		n := min(s.chunkSize, len(frame))
		if _, err := conn.Write(frame[:n]); err != nil {
			return false
		}
		frame = frame[n:]
		time.Sleep(time.Millisecond)
	}

	return true
}

// drain reads until the client goes away.
func (s *Server) drain(conn net.Conn) {
	buf := make([]byte, 64)
	for {
		if _, err := conn.Read(buf); err != nil {
			s.disconnected(err)
			return
		}
	}
}

func (s *Server) disconnected(err error) {
	if errors.Is(err, net.ErrClosed) {
		// closed by Close, not by the client
		return
	}

	select {
	case s.disconnects <- struct{}{}:
	default:
	}
}

func (s *Server) record(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received = append(s.received, frame)
}

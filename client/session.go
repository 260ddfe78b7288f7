package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/arloliu/go-fins/fins"
	"github.com/arloliu/go-fins/finstcp"
	"github.com/arloliu/go-fins/internal/util"
	"github.com/arloliu/go-fins/logger"
)

// Transport is the byte stream a session runs over. Every net.Conn is a Transport.
//
// Transports that also implement SetDeadline(time.Time) error have their blocking I/O bounded by
// deadlines; any other transport is closed when a wait times out.
type Transport interface {
	io.ReadWriteCloser
}

// ReadRequest describes one memory area read.
type ReadRequest struct {
	Address fins.MemoryAddress
	// Count is the number of items to read: words for word areas, bits for bit areas.
	Count uint16
}

// DefaultReadRequest returns the request reading 150 words of the DM area from D100.
func DefaultReadRequest() ReadRequest {
	return ReadRequest{Address: fins.DM(fins.DefaultStartAddress), Count: fins.DefaultWordCount}
}

// Result is the outcome of a successful memory area read.
type Result struct {
	// SessionID is the id of the session that performed the read.
	SessionID string
	// ClientNode and ServerNode are the node addresses negotiated by the handshake.
	ClientNode finstcp.NodeAddress
	ServerNode finstcp.NodeAddress
	// SID is the service ID of the exchange.
	SID byte
	// Request is the read that was issued.
	Request ReadRequest
	// Command is the encoded FINS command frame sent to the server.
	Command []byte
	// Payload is the raw FINS response frame, without the FINS/TCP header.
	Payload []byte
	// Response is the decoded response frame.
	Response *fins.Response
}

// Words returns the response data as big-endian 16-bit words.
func (r *Result) Words() []uint16 {
	if r == nil || r.Response == nil {
		return nil
	}

	return r.Response.Words()
}

// Session is a FINS/TCP client session.
//
// A session owns its transport exclusively. It runs one exchange at a time: Open, ReadMemoryArea and Close
// are serialized, and a second ReadMemoryArea waits until the previous one returned.
// Any failure after the transport is established closes the session; a closed session can be opened again.
type Session struct {
	id     string
	cfg    *SessionConfig
	logger logger.Logger

	opState AtomicOpState
	metrics SessionMetrics

	// mu serializes the protocol steps and guards the fields below.
	mu         sync.Mutex
	transport  Transport
	sup        *supervisor
	reader     frameReader
	hsState    HandshakeState
	sid        uint8
	clientNode finstcp.NodeAddress
	serverNode finstcp.NodeAddress
}

// NewSession creates a closed session for cfg.
func NewSession(cfg *SessionConfig) (*Session, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}

	id := uuid.NewString()

	return &Session{
		id:     id,
		cfg:    cfg,
		logger: cfg.Logger().With("session", id, "remote", cfg.Address()),
		reader: frameReader{
			maxPayload:   cfg.MaxFrameSize(),
			lenientMagic: cfg.LenientMagic(),
		},
	}, nil
}

// ID returns the unique id of the session, used in its log records.
func (s *Session) ID() string {
	return s.id
}

// Config returns the session configuration.
func (s *Session) Config() *SessionConfig {
	return s.cfg
}

// OpState returns the lifecycle state of the session.
func (s *Session) OpState() OpState {
	return s.opState.Get()
}

// HandshakeState returns the state of the latest handshake.
func (s *Session) HandshakeState() HandshakeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hsState
}

// Nodes returns the client and server node addresses negotiated by the handshake.
// ok is false while the handshake has not completed.
func (s *Session) Nodes() (client finstcp.NodeAddress, server finstcp.NodeAddress, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clientNode, s.serverNode, s.hsState.IsComplete()
}

// SID returns the service ID of the latest command, 0 before the first one.
func (s *Session) SID() byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sid
}

// Metrics returns the session metrics.
func (s *Session) Metrics() *SessionMetrics {
	return &s.metrics
}

// Open connects to the configured server and performs the node address handshake.
//
// The connect is bounded by the connect timeout and ctx, the handshake reply by the response timeout and ctx.
// Dial failures wrap finstcp.ErrTransport.
func (s *Session) Open(ctx context.Context) error {
	if !s.opState.ToOpening() {
		return ErrSessionOpened
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout())
	defer cancel()

	s.logger.Debug("connect to server", "method", "Open", "timeout", s.cfg.ConnectTimeout())

	conn, err := s.cfg.getDialer().DialContext(dialCtx, "tcp", s.cfg.Address())
	if err != nil {
		s.metrics.incErrCount()
		s.opState.ToClosing()
		s.opState.ToClosed()
		s.logger.Error("failed to connect", "method", "Open", "error", err)

		return fmt.Errorf("%w: dial %s: %w", finstcp.ErrTransport, s.cfg.Address(), err)
	}

	return s.open(ctx, conn)
}

// OpenTransport performs the node address handshake over a transport the caller already established.
//
// The session takes ownership of t and closes it on failure and on Close.
func (s *Session) OpenTransport(ctx context.Context, t Transport) error {
	if t == nil {
		return ErrTransportNil
	}

	if !s.opState.ToOpening() {
		return ErrSessionOpened
	}

	return s.open(ctx, t)
}

func (s *Session) open(ctx context.Context, t Transport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opState.Get() != OpeningState {
		// closed while connecting
		_ = t.Close()
		return ErrSessionNotOpened
	}

	s.transport = t
	s.sup = newSupervisor(t, s.cfg.ResponseTimeout())
	s.sid = 0

	if err := s.handshake(ctx); err != nil {
		s.fail("handshake", err)
		return err
	}

	s.opState.ToOpened()
	s.metrics.incHandshakeCount()
	s.logger.Info("handshake completed", "clientNode", s.clientNode, "serverNode", s.serverNode)

	return nil
}

// handshake requests a client node address and learns the server node address.
func (s *Session) handshake(ctx context.Context) (err error) {
	s.hsState = HandshakeIdle
	s.clientNode, s.serverNode = 0, 0

	defer func() {
		if err != nil {
			s.hsState = HandshakeFailed
		}
	}()

	req := finstcp.EncodeHandshakeRequest(s.cfg.ClientNode())
	s.traceFrame("send node address request", req)

	s.sup.arm(ctx)
	_, err = s.transport.Write(req)
	if err = s.sup.disarm(err); err != nil {
		return fmt.Errorf("send node address request: %w", wrapWriteErr(err))
	}
	s.hsState = HandshakeHeaderSent

	s.sup.arm(ctx)
	frame, err := s.readHandshakeResponse()
	if err = s.sup.disarm(err); err != nil {
		return err
	}
	s.traceFrame("node address response received", frame)

	client, server, err := finstcp.DecodeHandshakeResponse(frame)
	if err != nil {
		return err
	}

	s.clientNode, s.serverNode = client, server
	s.hsState = HandshakeComplete

	return nil
}

// readHandshakeResponse runs under an armed supervisor and returns the whole 24-byte response frame.
func (s *Session) readHandshakeResponse() ([]byte, error) {
	s.hsState = HandshakeWaitingHeader

	header, raw, err := s.reader.readHeader(s.transport, finstcp.CmdNodeAddressResponse)
	if err != nil {
		return nil, fmt.Errorf("read node address response header: %w", err)
	}
	s.hsState = HandshakeHeaderReceived

	frame := make([]byte, 0, finstcp.HandshakeResponseSize)
	frame = append(frame, raw...)

	s.hsState = HandshakeWaitingBody
	payload, err := s.reader.readPayload(s.transport, header)
	if err != nil {
		return nil, fmt.Errorf("read node address response body: %w", err)
	}

	return append(frame, payload...), nil
}

// ReadMemoryArea reads req.Count items from the PLC memory starting at req.Address.
//
// The session must be opened. The service ID is incremented before the command is sent and wraps from 255 to 0.
// The response must come from the server node and echo the service ID; its FINS end code is not
// interpreted here, see fins.Response.Err.
//
// Any failure closes the session.
func (s *Session) ReadMemoryArea(ctx context.Context, req ReadRequest) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opState.IsOpened() {
		return nil, ErrSessionNotOpened
	}

	result, err := s.exchange(ctx, req)
	if err != nil {
		s.fail("ReadMemoryArea", err)
		return nil, err
	}

	return result, nil
}

func (s *Session) exchange(ctx context.Context, req ReadRequest) (*Result, error) {
	s.sid++

	dst := fins.NodeAddress(byte(s.serverNode))
	src := fins.NodeAddress(byte(s.clientNode))
	cmd := fins.EncodeReadMemoryArea(dst, src, s.sid, req.Address, req.Count)
	envelope := finstcp.EncodeCommandEnvelope(uint16(len(cmd)))

	if s.logger.Level() == logger.DebugLevel {
		s.logger.Debug("send read memory area command",
			"sid", s.sid, "address", req.Address.String(), "count", req.Count,
			"envelope", util.HexString(envelope), "frame", util.HexString(cmd))
	}

	s.sup.arm(ctx)
	bufs := net.Buffers{envelope, cmd}
	_, err := bufs.WriteTo(s.transport)
	if err = s.sup.disarm(err); err != nil {
		return nil, fmt.Errorf("send read memory area command: %w", wrapWriteErr(err))
	}
	s.metrics.incFrameSendCount()

	s.sup.arm(ctx)
	payload, err := s.readCommandResponse()
	if err = s.sup.disarm(err); err != nil {
		return nil, err
	}

	if s.logger.Level() == logger.DebugLevel {
		s.logger.Debug("response received", "sid", s.sid, "frame", util.HexString(payload))
	}

	if err := fins.ValidateResponse(cmd, payload); err != nil {
		return nil, err
	}

	resp, err := fins.DecodeResponse(payload)
	if err != nil {
		return nil, err
	}
	s.metrics.incFrameRecvCount()

	return &Result{
		SessionID:  s.id,
		ClientNode: s.clientNode,
		ServerNode: s.serverNode,
		SID:        s.sid,
		Request:    req,
		Command:    cmd,
		Payload:    payload,
		Response:   resp,
	}, nil
}

// readCommandResponse runs under an armed supervisor and returns the FINS response frame.
func (s *Session) readCommandResponse() ([]byte, error) {
	header, _, err := s.reader.readHeader(s.transport, finstcp.CmdFrameSend)
	if err != nil {
		return nil, fmt.Errorf("read response header: %w", err)
	}

	payload, err := s.reader.readPayload(s.transport, header)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return payload, nil
}

// Close releases the transport. Closing a closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opState.ToClosing() {
		return nil
	}

	err := s.closeTransport()
	s.opState.ToClosed()
	s.logger.Debug("session closed", "method", "Close")

	return err
}

// fail records err, releases the transport and moves the session to the closed state. s.mu must be held.
func (s *Session) fail(method string, err error) {
	s.metrics.incErrCount()
	if errors.Is(err, finstcp.ErrResponseTimeout) {
		s.metrics.incTimeoutCount()
	}

	s.logger.Error("session failed", "method", method, "error", err)

	s.opState.ToClosing()
	_ = s.closeTransport()
	s.opState.ToClosed()
}

func (s *Session) closeTransport() error {
	if s.transport == nil {
		return nil
	}

	err := s.transport.Close()
	s.transport = nil
	s.sup = nil

	if err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("failed to close transport", "error", err)
		return fmt.Errorf("%w: %w", finstcp.ErrTransport, err)
	}

	return nil
}

func (s *Session) traceFrame(msg string, frame []byte) {
	if s.logger.Level() == logger.DebugLevel {
		s.logger.Debug(msg, "frame", util.HexString(frame))
	}
}

// wrapWriteErr tags raw write failures with finstcp.ErrTransport; errors already classified pass through.
func wrapWriteErr(err error) error {
	if errors.Is(err, finstcp.ErrTransport) || errors.Is(err, finstcp.ErrResponseTimeout) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %w", finstcp.ErrTransport, err)
}

// RunSession opens a session for cfg, performs exactly one memory area read and closes the session.
func RunSession(ctx context.Context, cfg *SessionConfig, req ReadRequest) (*Result, error) {
	s, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}

	if err := s.Open(ctx); err != nil {
		return nil, err
	}

	result, err := s.ReadMemoryArea(ctx, req)
	if cerr := s.Close(); err == nil && cerr != nil {
		return nil, cerr
	}

	return result, err
}

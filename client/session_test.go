package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-fins/fins"
	"github.com/arloliu/go-fins/finstcp"
	"github.com/arloliu/go-fins/internal/finstest"
	"github.com/arloliu/go-fins/logger"
)

func newTestConfig(t *testing.T, srv *finstest.Server, opts ...ConnOption) *SessionConfig {
	t.Helper()

	opts = append([]ConnOption{WithResponseTimeout(300 * time.Millisecond)}, opts...)
	cfg, err := NewSessionConfig(srv.Host(), srv.Port(), opts...)
	require.NoError(t, err)

	return cfg
}

func newOpenedSession(t *testing.T, srv *finstest.Server, opts ...ConnOption) *Session {
	t.Helper()

	s, err := NewSession(newTestConfig(t, srv, opts...))
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func waitDisconnect(t *testing.T, srv *finstest.Server) {
	t.Helper()

	select {
	case <-srv.Disconnects():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not observe the client closing the connection")
	}
}

type dialerFunc func(ctx context.Context, network string, address string) (net.Conn, error)

func (f dialerFunc) DialContext(ctx context.Context, network string, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

func TestRunSession_Success(t *testing.T) {
	require := require.New(t)

	srv := finstest.NewServer(t, finstest.WithNodes(5, 7))

	result, err := RunSession(context.Background(), newTestConfig(t, srv), DefaultReadRequest())
	require.NoError(err)

	require.Equal(finstcp.NodeAddress(5), result.ClientNode)
	require.Equal(finstcp.NodeAddress(7), result.ServerNode)
	require.Equal(byte(1), result.SID)
	require.NotEmpty(result.SessionID)

	expected := []byte{
		0x80, 0x00, 0x02, 0x00, 0x07, 0x00, 0x00, 0x05, 0x00, 0x01,
		0x01, 0x01, 0x82, 0x00, 0x64, 0x00, 0x00, 0x96,
	}
	require.Equal(expected, result.Command)

	require.NoError(result.Response.Err())
	words := result.Words()
	require.Len(words, 150)
	require.Equal(uint16(100), words[0])
	require.Equal(uint16(249), words[149])

	frames := srv.Received()
	require.Len(frames, 2)
	require.Equal(finstcp.EncodeHandshakeRequest(finstcp.AnyNode), frames[0])
	require.Equal(append(finstcp.EncodeCommandEnvelope(18), expected...), frames[1])

	waitDisconnect(t, srv)
}

func TestRunSession_ChunkedDelivery(t *testing.T) {
	require := require.New(t)

	single := finstest.NewServer(t)
	chunked := finstest.NewServer(t, finstest.WithChunkSize(3))

	want, err := RunSession(context.Background(), newTestConfig(t, single), DefaultReadRequest())
	require.NoError(err)

	got, err := RunSession(context.Background(), newTestConfig(t, chunked, WithResponseTimeout(5*time.Second)), DefaultReadRequest())
	require.NoError(err)

	require.Equal(want.Payload, got.Payload)
}

func TestSession_RequestedClientNode(t *testing.T) {
	require := require.New(t)

	srv := finstest.NewServer(t, finstest.WithNodes(5, 7))
	s := newOpenedSession(t, srv, WithClientNode(9))

	client, server, ok := s.Nodes()
	require.True(ok)
	require.Equal(finstcp.NodeAddress(9), client)
	require.Equal(finstcp.NodeAddress(7), server)
	require.Equal(HandshakeComplete, s.HandshakeState())
	require.Equal(finstcp.EncodeHandshakeRequest(9), srv.Received()[0])
}

func TestSession_SequentialReads(t *testing.T) {
	require := require.New(t)

	srv := finstest.NewServer(t)
	s := newOpenedSession(t, srv)

	for i := 1; i <= 3; i++ {
		result, err := s.ReadMemoryArea(context.Background(), ReadRequest{Address: fins.DM(uint16(i * 10)), Count: 2})
		require.NoError(err)
		require.Equal(byte(i), result.SID)
		require.Equal([]uint16{uint16(i * 10), uint16(i*10 + 1)}, result.Words())
	}

	require.Equal(uint64(1), s.Metrics().HandshakeCount.Load())
	require.Equal(uint64(3), s.Metrics().FrameSendCount.Load())
	require.Equal(uint64(3), s.Metrics().FrameRecvCount.Load())
	require.Equal(uint64(0), s.Metrics().ErrCount.Load())
}

func TestSession_SIDWraps(t *testing.T) {
	require := require.New(t)

	srv := finstest.NewServer(t)
	s := newOpenedSession(t, srv)

	s.mu.Lock()
	s.sid = 254
	s.mu.Unlock()

	result, err := s.ReadMemoryArea(context.Background(), DefaultReadRequest())
	require.NoError(err)
	require.Equal(byte(255), result.SID)

	result, err = s.ReadMemoryArea(context.Background(), DefaultReadRequest())
	require.NoError(err)
	require.Equal(byte(0), result.SID)
	require.Equal(byte(0), s.SID())
}

func TestSession_HandshakeTimeout(t *testing.T) {
	require := require.New(t)

	srv := finstest.NewServer(t, finstest.WithBehavior(finstest.Silent))
	s, err := NewSession(newTestConfig(t, srv, WithResponseTimeout(50*time.Millisecond)))
	require.NoError(err)

	err = s.Open(context.Background())
	require.ErrorIs(err, finstcp.ErrResponseTimeout)
	require.Equal(ClosedState, s.OpState())
	require.Equal(HandshakeFailed, s.HandshakeState())
	require.Equal(uint64(1), s.Metrics().TimeoutCount.Load())

	waitDisconnect(t, srv)
}

func TestSession_ResponseTimeout(t *testing.T) {
	require := require.New(t)

	srv := finstest.NewServer(t, finstest.WithBehavior(finstest.SilentAfterHandshake))
	s := newOpenedSession(t, srv, WithResponseTimeout(50*time.Millisecond))

	_, err := s.ReadMemoryArea(context.Background(), DefaultReadRequest())
	require.ErrorIs(err, finstcp.ErrResponseTimeout)
	require.Equal(ClosedState, s.OpState())

	waitDisconnect(t, srv)

	_, err = s.ReadMemoryArea(context.Background(), DefaultReadRequest())
	require.ErrorIs(err, ErrSessionNotOpened)
}

func TestSession_ContextCancel(t *testing.T) {
	require := require.New(t)

	srv := finstest.NewServer(t, finstest.WithBehavior(finstest.SilentAfterHandshake))
	s := newOpenedSession(t, srv, WithResponseTimeout(10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	start := time.Now()
	_, err := s.ReadMemoryArea(ctx, DefaultReadRequest())
	require.ErrorIs(err, context.Canceled)
	require.Less(time.Since(start), 5*time.Second)
	require.Equal(ClosedState, s.OpState())
}

func TestSession_ResponseValidation(t *testing.T) {
	tests := []struct {
		name     string
		behavior finstest.Behavior
		wantErr  error
	}{
		{name: "wrong SID", behavior: finstest.WrongSID, wantErr: fins.ErrIllegalSID},
		{name: "wrong source", behavior: finstest.WrongSource, wantErr: fins.ErrIllegalSourceAddress},
		{name: "oversize frame", behavior: finstest.Oversize, wantErr: finstcp.ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			srv := finstest.NewServer(t, finstest.WithBehavior(tt.behavior))
			s := newOpenedSession(t, srv)

			_, err := s.ReadMemoryArea(context.Background(), DefaultReadRequest())
			require.ErrorIs(err, tt.wantErr)
			require.Equal(ClosedState, s.OpState())
			require.Equal(uint64(1), s.Metrics().ErrCount.Load())
			require.Equal(uint64(0), s.Metrics().FrameRecvCount.Load())

			waitDisconnect(t, srv)
		})
	}
}

func TestSession_HandshakeFailures(t *testing.T) {
	t.Run("wrong command", func(t *testing.T) {
		srv := finstest.NewServer(t, finstest.WithBehavior(finstest.WrongHandshakeCommand))
		s, err := NewSession(newTestConfig(t, srv))
		require.NoError(t, err)

		err = s.Open(context.Background())
		require.ErrorIs(t, err, finstcp.ErrIllegalCommand)
		require.Equal(t, HandshakeFailed, s.HandshakeState())
	})

	t.Run("server error code", func(t *testing.T) {
		require := require.New(t)

		srv := finstest.NewServer(t, finstest.WithBehavior(finstest.HandshakeError), finstest.WithErrorCode(0x24))
		s, err := NewSession(newTestConfig(t, srv))
		require.NoError(err)

		err = s.Open(context.Background())

		var serverErr *finstcp.ServerError
		require.True(errors.As(err, &serverErr))
		require.Equal(uint32(0x24), serverErr.Code)
		require.Equal(ClosedState, s.OpState())
	})

	t.Run("dial failure", func(t *testing.T) {
		require := require.New(t)

		dialErr := errors.New("connection refused")
		cfg, err := NewSessionConfig("127.0.0.1", DefaultPort, WithDialer(dialerFunc(
			func(context.Context, string, string) (net.Conn, error) { return nil, dialErr },
		)))
		require.NoError(err)

		s, err := NewSession(cfg)
		require.NoError(err)

		err = s.Open(context.Background())
		require.ErrorIs(err, finstcp.ErrTransport)
		require.ErrorIs(err, dialErr)
		require.Equal(ClosedState, s.OpState())
	})
}

func TestSession_Magic(t *testing.T) {
	t.Run("strict rejects", func(t *testing.T) {
		srv := finstest.NewServer(t, finstest.WithBehavior(finstest.BadMagic))
		_, err := RunSession(context.Background(), newTestConfig(t, srv), DefaultReadRequest())
		require.ErrorIs(t, err, finstcp.ErrMalformedHeader)
	})

	t.Run("lenient accepts", func(t *testing.T) {
		srv := finstest.NewServer(t, finstest.WithBehavior(finstest.BadMagic))
		result, err := RunSession(context.Background(), newTestConfig(t, srv, WithLenientMagic()), DefaultReadRequest())
		require.NoError(t, err)
		require.Len(t, result.Words(), 150)
	})
}

func TestSession_PeerClosesAfterHandshake(t *testing.T) {
	require := require.New(t)

	srv := finstest.NewServer(t, finstest.WithBehavior(finstest.CloseAfterHandshake))
	s := newOpenedSession(t, srv)

	_, err := s.ReadMemoryArea(context.Background(), DefaultReadRequest())
	require.Error(err)
	require.True(errors.Is(err, finstcp.ErrConnectionClosed) || errors.Is(err, finstcp.ErrTransport), err.Error())
	require.Equal(ClosedState, s.OpState())
}

func TestSession_EndCodeIsReported(t *testing.T) {
	require := require.New(t)

	srv := finstest.NewServer(t, finstest.WithEndCode(0x0401), finstest.WithData([]byte{}))

	result, err := RunSession(context.Background(), newTestConfig(t, srv), DefaultReadRequest())
	require.NoError(err)

	var endErr *fins.EndCodeError
	require.True(errors.As(result.Response.Err(), &endErr))
	require.Equal(byte(0x04), endErr.MRES)
	require.Equal(byte(0x01), endErr.SRES)
}

func TestSession_OpenStates(t *testing.T) {
	require := require.New(t)

	srv := finstest.NewServer(t)
	s := newOpenedSession(t, srv)

	require.Equal(OpenedState, s.OpState())
	require.ErrorIs(s.Open(context.Background()), ErrSessionOpened)

	require.NoError(s.Close())
	require.NoError(s.Close())
	require.Equal(ClosedState, s.OpState())

	// a closed session can be opened again
	require.NoError(s.Open(context.Background()))
	result, err := s.ReadMemoryArea(context.Background(), DefaultReadRequest())
	require.NoError(err)
	require.Equal(byte(1), result.SID)
}

func TestSession_OpenTransport(t *testing.T) {
	require := require.New(t)

	cfg, err := NewSessionConfig("127.0.0.1", DefaultPort, WithResponseTimeout(time.Second))
	require.NoError(err)

	s, err := NewSession(cfg)
	require.NoError(err)
	require.ErrorIs(s.OpenTransport(context.Background(), nil), ErrTransportNil)

	client, server := net.Pipe()
	defer server.Close()

	go func() {
		if _, err := finstcp.ReadExact(server, finstcp.HandshakeRequestSize); err != nil {
			return
		}
		_, _ = server.Write(finstcp.EncodeHandshakeResponse(3, 1, 0))
	}()

	require.NoError(s.OpenTransport(context.Background(), client))

	clientNode, serverNode, ok := s.Nodes()
	require.True(ok)
	require.Equal(finstcp.NodeAddress(3), clientNode)
	require.Equal(finstcp.NodeAddress(1), serverNode)
	require.NoError(s.Close())
}

func TestSession_LogsHandshake(t *testing.T) {
	require := require.New(t)

	srv := finstest.NewServer(t)

	m := logger.NewMockLogger()
	m.On("With", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(m)
	m.On("Level").Return(logger.InfoLevel)
	m.On("Debug", mock.Anything, mock.Anything).Maybe()
	m.On("Info", "handshake completed", mock.Anything).Once()

	_, err := RunSession(context.Background(), newTestConfig(t, srv, WithLogger(m)), DefaultReadRequest())
	require.NoError(err)

	m.AssertExpectations(t)
}

func TestNewSession_NilConfig(t *testing.T) {
	_, err := NewSession(nil)
	require.ErrorIs(t, err, ErrConnConfigNil)
}

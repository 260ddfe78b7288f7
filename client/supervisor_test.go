package client

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-fins/finstcp"
)

// pipeTransport is a transport without deadline support; Close unblocks a pending Read.
type pipeTransport struct {
	r      *io.PipeReader
	w      *io.PipeWriter
	closed atomic.Bool
}

func newPipeTransport() *pipeTransport {
	r, w := io.Pipe()
	return &pipeTransport{r: r, w: w}
}

func (p *pipeTransport) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeTransport) Write(b []byte) (int, error) { return p.w.Write(b) }

func (p *pipeTransport) Close() error {
	p.closed.Store(true)
	return p.r.Close()
}

func TestSupervisor_TimeoutAbortsRead(t *testing.T) {
	require := require.New(t)

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sup := newSupervisor(client, 50*time.Millisecond)

	start := time.Now()
	sup.arm(context.Background())
	_, err := client.Read(make([]byte, 1))
	err = sup.disarm(err)

	require.ErrorIs(err, finstcp.ErrResponseTimeout)
	require.Less(time.Since(start), 2*time.Second)
}

func TestSupervisor_ContextCancelAbortsRead(t *testing.T) {
	require := require.New(t)

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sup := newSupervisor(client, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	sup.arm(ctx)
	_, err := client.Read(make([]byte, 1))
	err = sup.disarm(err)

	require.ErrorIs(err, context.Canceled)
	require.NotErrorIs(err, finstcp.ErrResponseTimeout)
}

func TestSupervisor_ContextDeadlineShortensTimeout(t *testing.T) {
	require := require.New(t)

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sup := newSupervisor(client, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	sup.arm(ctx)
	_, err := client.Read(make([]byte, 1))
	err = sup.disarm(err)

	require.Error(err)
	require.True(errors.Is(err, finstcp.ErrResponseTimeout) || errors.Is(err, context.DeadlineExceeded), err.Error())
	require.Less(time.Since(start), 2*time.Second)
}

func TestSupervisor_ClosesTransportWithoutDeadline(t *testing.T) {
	require := require.New(t)

	transport := newPipeTransport()
	sup := newSupervisor(transport, 30*time.Millisecond)

	sup.arm(context.Background())
	_, err := transport.Read(make([]byte, 1))
	err = sup.disarm(err)

	require.ErrorIs(err, finstcp.ErrResponseTimeout)
	require.True(transport.closed.Load())
}

func TestSupervisor_DisarmClearsDeadline(t *testing.T) {
	require := require.New(t)

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sup := newSupervisor(client, 30*time.Millisecond)
	buf := make([]byte, 1)

	go func() { _, _ = server.Write([]byte{0x01}) }()

	sup.arm(context.Background())
	_, err := client.Read(buf)
	require.NoError(sup.disarm(err))

	// well past the previous deadline
	time.Sleep(60 * time.Millisecond)

	go func() { _, _ = server.Write([]byte{0x02}) }()

	_, err = client.Read(buf)
	require.NoError(err)
	require.Equal(byte(0x02), buf[0])
}

func TestSupervisor_PassesThroughOtherErrors(t *testing.T) {
	require := require.New(t)

	client, server := net.Pipe()
	defer client.Close()

	sup := newSupervisor(client, time.Second)

	sup.arm(context.Background())
	_ = server.Close()
	err := finstcp.ReadExactInto(client, make([]byte, 4))
	err = sup.disarm(err)

	require.ErrorIs(err, finstcp.ErrConnectionClosed)
	require.NotErrorIs(err, finstcp.ErrResponseTimeout)
}

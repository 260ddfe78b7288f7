package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/arloliu/go-fins/finstcp"
	"github.com/arloliu/go-fins/internal/pool"
)

// deadliner is implemented by transports that can bound blocking I/O, such as net.Conn.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// aLongTimeAgo is a non-zero time in the past, used to abort pending I/O immediately.
var aLongTimeAgo = time.Unix(1, 0)

// supervisor bounds the blocking I/O of one protocol step.
//
// arm starts the deadline and disarm cancels it. When the deadline elapses, or the context passed to
// arm is done, before disarm is called, the pending I/O is aborted: transports implementing
// SetDeadline get a deadline in the past, any other transport is closed.
//
// supervisor is not goroutine-safe; arm and disarm must be called in pairs from the session goroutine.
type supervisor struct {
	transport Transport
	timeout   time.Duration

	wg    sync.WaitGroup
	done  chan struct{}
	bound time.Duration
	// cause is written by the watcher goroutine and read after wg.Wait.
	cause error
}

func newSupervisor(transport Transport, timeout time.Duration) *supervisor {
	return &supervisor{transport: transport, timeout: timeout}
}

// arm schedules the deadline: the configured timeout, shortened to the context deadline if that comes first.
func (s *supervisor) arm(ctx context.Context) {
	bound := s.timeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < bound {
			bound = max(until, 0)
		}
	}

	s.bound = bound
	s.cause = nil
	s.done = make(chan struct{})

	if dt, ok := s.transport.(deadliner); ok {
		_ = dt.SetDeadline(time.Now().Add(bound))
	}

	s.wg.Add(1)
	go s.watch(ctx, bound, s.done)
}

func (s *supervisor) watch(ctx context.Context, bound time.Duration, done <-chan struct{}) {
	defer s.wg.Done()

	timer := pool.GetTimer(bound)
	defer pool.PutTimer(timer)

	select {
	case <-done:
		return
	case <-timer.C:
		s.cause = finstcp.ErrResponseTimeout
	case <-ctx.Done():
		s.cause = ctx.Err()
	}

	s.abort()
}

func (s *supervisor) abort() {
	if dt, ok := s.transport.(deadliner); ok {
		if err := dt.SetDeadline(aLongTimeAgo); err == nil {
			return
		}
	}
	_ = s.transport.Close()
}

// disarm cancels the deadline and maps err, the outcome of the supervised I/O.
//
// A nil err stays nil even if the deadline fired right after the I/O completed. Otherwise an expired
// deadline is reported as finstcp.ErrResponseTimeout and a done context as the context error.
func (s *supervisor) disarm(err error) error {
	close(s.done)
	s.wg.Wait()

	if dt, ok := s.transport.(deadliner); ok {
		_ = dt.SetDeadline(time.Time{})
	}

	if err == nil {
		return nil
	}

	switch {
	case errors.Is(s.cause, finstcp.ErrResponseTimeout), s.cause == nil && isTimeout(err):
		return fmt.Errorf("%w after %s", finstcp.ErrResponseTimeout, s.bound)
	case s.cause != nil:
		return fmt.Errorf("%w: %w", s.cause, err)
	default:
		return err
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

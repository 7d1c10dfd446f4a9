package modem

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"i4.energy/across/fotaflash/at"
)

// Session owns one live connection to the module for the duration of a run.
//
// A background goroutine continuously pulls bytes from the port into the
// receive ring; the session is its sole producer, and the matcher driven by
// the workflow is the sole consumer. Outbound traffic is synchronous per
// call. Exactly one Session exists per invocation.
type Session struct {
	config Config
	port   Port
	rx     *Ring

	running atomic.Bool
	done    chan struct{}
	closed  bool
}

// New dials the transport and starts the receive loop. The returned session
// is ready for command exchanges immediately.
func New(ctx context.Context, config Config) (*Session, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	port, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}

	s := &Session{
		config: config,
		port:   port,
		rx:     NewRing(config.QueueSize),
		done:   make(chan struct{}),
	}
	s.running.Store(true)
	go s.readLoop()

	return s, nil
}

// Rx returns the receive ring the reader goroutine fills. The matcher and
// the transfer protocols consume from it.
func (s *Session) Rx() *Ring {
	return s.rx
}

// readLoop runs for the session lifetime. Each Read is bounded by the port's
// read timeout, so the loop observes a stop request promptly even when the
// module is silent. Bytes that arrive are pushed into the ring, retrying
// with a short yield while the ring is momentarily full; the consumer drains
// on its own schedule, so the retry is bounded back-pressure, not deadlock.
func (s *Session) readLoop() {
	defer close(s.done)

	buf := make([]byte, s.config.ReadBufSize)
	for s.running.Load() {
		n, err := s.port.Read(buf)
		if err != nil {
			// Port closed or failed underneath us; a stop request
			// closing the port lands here too.
			return
		}
		if n == 0 {
			continue
		}

		p := buf[:n]
		for len(p) > 0 && s.running.Load() {
			w := s.rx.PutBulk(p)
			if w == 0 {
				time.Sleep(time.Millisecond)
				continue
			}
			p = p[w:]
		}
	}
}

// SendCommand writes cmd with the canonical CRLF terminator in one bounded
// write. It is fire-and-forget: whether the exchange succeeds is decided by
// the matcher waits that follow.
func (s *Session) SendCommand(cmd string) error {
	wire := strings.TrimSpace(cmd) + at.CRLF
	if err := s.write([]byte(wire), s.config.WriteTimeout); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	return nil
}

// WriteAndDrain writes the whole buffer within writeTimeout and then waits,
// up to drainTimeout, for the driver to flush it onto the wire. Callers that
// rely on "bytes left the host" must use this instead of a bare write: the
// driver accepting the buffer says nothing about transmission.
func (s *Session) WriteAndDrain(p []byte, writeTimeout, drainTimeout time.Duration) error {
	if err := s.write(p, writeTimeout); err != nil {
		return err
	}

	drained := make(chan error, 1)
	go func() {
		drained <- s.port.Drain()
	}()

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()

	select {
	case err := <-drained:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDrainTimeout, err)
		}
		return nil
	case <-timer.C:
		// Discard pending output so the blocked Drain returns instead
		// of leaking.
		s.port.ResetOutputBuffer()
		return ErrDrainTimeout
	}
}

// write issues one full-buffer write bounded by timeout. On expiry the
// pending output is cancelled, not abandoned.
func (s *Session) write(p []byte, timeout time.Duration) error {
	type result struct {
		n   int
		err error
	}
	written := make(chan result, 1)
	go func() {
		n, err := s.port.Write(p)
		written <- result{n, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-written:
		if res.err != nil {
			return fmt.Errorf("write port: %w", res.err)
		}
		if res.n != len(p) {
			return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, res.n, len(p))
		}
		return nil
	case <-timer.C:
		s.port.ResetOutputBuffer()
		return fmt.Errorf("%w: write did not complete in %v", ErrTimeout, timeout)
	}
}

// Close requests the reader to stop, waits for it within a bound, and
// releases the port. Closing the port also releases a read still in flight,
// so shutdown is deterministic either way.
func (s *Session) Close() error {
	if s.closed {
		return ErrAlreadyClosed
	}
	s.closed = true
	s.running.Store(false)

	timer := time.NewTimer(s.config.CloseTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		// Reader still blocked in Read; closing the port below will
		// release it.
	}

	return s.port.Close()
}

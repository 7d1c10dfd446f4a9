package modem

import (
	"context"
	"io"
	"sync"
	"time"
)

// TestPort is a test helper that simulates a serial port using channels.
// Reads block until data is injected or the configured read timeout expires,
// mirroring a real port's timeout profile, so the session's reader loop
// behaves exactly as it does against hardware.
//
// OnWrite and OnDrain let tests script a device: a handler can inspect each
// written command and inject the module's reply.
type TestPort struct {
	mu          sync.Mutex
	readChan    chan []byte
	pending     []byte
	readTimeout time.Duration
	writes      [][]byte
	closed      bool

	// OnWrite, when set, observes every buffer written to the port.
	OnWrite func(p []byte)
	// OnDrain, when set, replaces the default no-op Drain.
	OnDrain func() error
}

// NewTestPort creates a test port with a short default read timeout.
func NewTestPort() *TestPort {
	return &TestPort{
		readChan:    make(chan []byte, 64),
		readTimeout: 10 * time.Millisecond,
	}
}

// Inject queues data for the port to deliver on subsequent reads, simulating
// bytes arriving from the module.
func (t *TestPort) Inject(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- append([]byte(nil), data...)
	}
}

func (t *TestPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	if len(t.pending) > 0 {
		n := copy(p, t.pending)
		t.pending = t.pending[n:]
		t.mu.Unlock()
		return n, nil
	}
	timeout := t.readTimeout
	t.mu.Unlock()

	select {
	case data, ok := <-t.readChan:
		if !ok {
			return 0, io.EOF
		}
		n := copy(p, data)
		if n < len(data) {
			t.mu.Lock()
			t.pending = append(t.pending, data[n:]...)
			t.mu.Unlock()
		}
		return n, nil
	case <-time.After(timeout):
		return 0, nil
	}
}

func (t *TestPort) Write(p []byte) (int, error) {
	buf := append([]byte(nil), p...)
	t.mu.Lock()
	t.writes = append(t.writes, buf)
	handler := t.OnWrite
	t.mu.Unlock()
	if handler != nil {
		handler(buf)
	}
	return len(p), nil
}

// Writes returns a copy of every buffer written so far.
func (t *TestPort) Writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.writes))
	copy(out, t.writes)
	return out
}

func (t *TestPort) SetReadTimeout(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readTimeout = d
	return nil
}

func (t *TestPort) Drain() error {
	if t.OnDrain != nil {
		return t.OnDrain()
	}
	return nil
}

func (t *TestPort) ResetInputBuffer() error { return nil }

func (t *TestPort) ResetOutputBuffer() error { return nil }

func (t *TestPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// PortDialer hands out a pre-built Port, letting tests run a full session
// over a TestPort or a mock.
type PortDialer struct {
	Port Port
}

// Dial returns the wrapped port.
func (d PortDialer) Dial(ctx context.Context) (Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Port, nil
}

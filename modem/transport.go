package modem

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -source=transport.go -destination=port_mock.go -package=modem

// Port represents an established, bidirectional byte stream to a modem.
//
// Beyond plain I/O it exposes the control primitives the transfer protocols
// depend on: a bounded per-read timeout so the reader goroutine never blocks
// indefinitely, Drain to wait until written bytes have actually left the
// host, and buffer resets used to cancel pending output on timeout.
// go.bug.st/serial ports satisfy Port directly; tests substitute fakes.
type Port interface {
	io.ReadWriteCloser

	// SetReadTimeout bounds every subsequent Read. An expired read returns
	// (0, nil) rather than an error.
	SetReadTimeout(t time.Duration) error
	// Drain blocks until all written bytes have been transmitted.
	Drain() error
	// ResetInputBuffer discards received data not yet read.
	ResetInputBuffer() error
	// ResetOutputBuffer discards written data not yet transmitted. It also
	// releases a Write or Drain blocked on that data.
	ResetOutputBuffer() error
}

// Dialer opens a Port to a modem.
//
// Dialer abstracts how the connection is created (a serial port in
// production, a scriptable fake in tests) and is used during session
// construction only.
type Dialer interface {
	// Dial creates and returns a connected Port. It should respect
	// cancellation and deadlines provided by the context, and return an
	// error if the transport cannot be established.
	Dial(ctx context.Context) (Port, error)
}

// SerialDialer opens a modem over a local serial port using go.bug.st/serial.
//
// The port is configured for 8 data bits, no parity and one stop bit, with
// DTR and RTS asserted so the module sees an active host, and a short fixed
// read timeout so the session's reader loop turns over promptly even when
// the module is silent.
type SerialDialer struct {
	PortName string
	BaudRate int

	// ReadTimeout overrides the default per-read timeout when positive.
	ReadTimeout time.Duration
}

const defaultReadTimeout = 200 * time.Millisecond

// Dial opens and configures the serial port.
func (d SerialDialer) Dial(ctx context.Context) (Port, error) {
	if ctx == nil {
		return nil, fmt.Errorf("fota: context is nil")
	}
	if d.PortName == "" {
		return nil, fmt.Errorf("fota: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: d.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			DTR: true,
			RTS: true,
		},
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrPortUnavailable, d.PortName, err)
	}

	readTimeout := d.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("%w: configure %s: %v", ErrPortUnavailable, d.PortName, err)
	}

	return port, nil
}

package modem

import "errors"

var (
	// ErrNoDialer is returned when a Session is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// establish a connection to the modem.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrPortUnavailable is returned when the serial port cannot be opened
	// or configured.
	ErrPortUnavailable = errors.New("serial port unavailable")

	// ErrAlreadyClosed is returned when Close is called on a Session that
	// has already been closed.
	ErrAlreadyClosed = errors.New("session already closed")

	// ErrTimeout is returned when no matching response arrives within the
	// caller's budget. It is the dominant failure across command waits,
	// numeric-field waits, data-segment reads and the update monitor.
	ErrTimeout = errors.New("timed out waiting for response")

	// ErrProtocol is returned when the module reports an explicit error
	// token or an unexpected status value.
	ErrProtocol = errors.New("module reported error")

	// ErrShortWrite is returned when the port accepted fewer bytes than
	// requested within the write timeout.
	ErrShortWrite = errors.New("short write to port")

	// ErrDrainTimeout is returned when written bytes were accepted by the
	// driver but not flushed onto the wire in time. Callers relying on
	// "bytes left the host" must treat this as a failed transfer even
	// though the write itself completed.
	ErrDrainTimeout = errors.New("port output did not drain in time")
)

package modem

import (
	"context"
	"errors"
	"testing"
)

func TestSerialDialer_Dial_EmptyPortName(t *testing.T) {
	dialer := SerialDialer{
		PortName: "",
	}

	ctx := context.Background()
	port, err := dialer.Dial(ctx)

	if err == nil {
		t.Error("expected error for empty port name")
	}
	if port != nil {
		t.Error("expected nil port for empty port name")
	}
	if err.Error() != "fota: serial port name is required" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSerialDialer_Dial_NilContext(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/ttyUSB0",
	}

	port, err := dialer.Dial(nil)

	if err == nil {
		t.Error("expected error for nil context")
	}
	if port != nil {
		t.Error("expected nil port for nil context")
	}
	if err.Error() != "fota: context is nil" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSerialDialer_Dial_ContextCanceled(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/ttyUSB0",
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	port, err := dialer.Dial(ctx)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if port != nil {
		t.Error("expected nil port for canceled context")
	}
}

func TestSerialDialer_Dial_NonexistentPort(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/does-not-exist",
		BaudRate: 115200,
	}

	port, err := dialer.Dial(context.Background())

	if !errors.Is(err, ErrPortUnavailable) {
		t.Errorf("expected ErrPortUnavailable, got: %v", err)
	}
	if port != nil {
		t.Error("expected nil port for nonexistent device")
	}
}

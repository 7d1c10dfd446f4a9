package fota

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"i4.energy/across/fotaflash/at"
	"i4.energy/across/fotaflash/modem"
)

// memStore stages the image in memory instead of a file.
type memStore struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (s *memStore) Create() (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Reset()
	return nopWriteCloser{&s.buf}, nil
}

func (s *memStore) Open() (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return io.NopCloser(bytes.NewReader(s.buf.Bytes())), nil
}

func (s *memStore) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

// scriptDevice emulates a module on the far side of a TestPort: every
// command written to the port triggers the canned reply a real module would
// send, including the mixed line/binary download stream, the bare upload
// prompt and the post-reset notifications.
type scriptDevice struct {
	port  *modem.TestPort
	image []byte

	mu         sync.Mutex
	inTransfer bool
	uploaded   []byte
}

func newScriptDevice(image []byte) *scriptDevice {
	d := &scriptDevice{port: modem.NewTestPort(), image: image}
	d.port.OnWrite = d.handle
	return d
}

func (d *scriptDevice) handle(p []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inTransfer {
		d.uploaded = append(d.uploaded, p...)
		if len(d.uploaded) >= len(d.image) {
			d.inTransfer = false
			d.port.Inject([]byte("OK\r\n"))
		}
		return
	}

	cmd := strings.TrimSpace(string(p))
	switch {
	case cmd == at.CmdAT, cmd == at.CmdHTTPInit, cmd == at.CmdHTTPSSLCfg,
		cmd == at.CmdHTTPTerm, strings.HasPrefix(cmd, `AT+HTTPPARA="URL"`),
		cmd == at.LFOTANotify(len(d.image)):
		d.port.Inject([]byte("OK\r\n"))

	case cmd == at.CmdFirmwareVersion:
		d.port.Inject([]byte("+CGMR: A7600C1_V1.0\r\nOK\r\n"))

	case cmd == at.CmdSubEdition:
		d.port.Inject([]byte("+CSUB: B03V01\r\nOK\r\n"))

	case cmd == at.CmdHTTPGet:
		d.port.Inject([]byte("+HTTPACTION: 0,200\r\n"))

	case cmd == at.CmdHTTPHead:
		d.port.Inject([]byte(fmt.Sprintf("Content-Length: %d\r\nOK\r\n", len(d.image))))

	case strings.HasPrefix(cmd, "AT+HTTPREAD="):
		// Whole image in one command, split across two announced
		// segments plus the zero-length terminator.
		half := len(d.image) / 2
		var stream bytes.Buffer
		fmt.Fprintf(&stream, "+HTTPREAD: %d\r\n", half)
		stream.Write(d.image[:half])
		fmt.Fprintf(&stream, "+HTTPREAD: %d\r\n", len(d.image)-half)
		stream.Write(d.image[half:])
		stream.WriteString("+HTTPREAD: 0\r\n")
		d.port.Inject(stream.Bytes())

	case cmd == at.LFOTAStart(len(d.image)):
		d.inTransfer = true
		d.port.Inject([]byte(at.Prompt))

	case cmd == at.CmdReset:
		d.port.Inject([]byte("+CFOTA: UPDATE:50\r\n" +
			"+CFOTA: UPDATE:50\r\n" +
			"+CFOTA: UPDATE:100\r\n" +
			"+CFOTA: UPDATE SUCCESS\r\n" +
			"QCRDY\r\n"))
	}
}

func (d *scriptDevice) uploadedBytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.uploaded...)
}

func newTestWorkflow(t *testing.T, port *modem.TestPort, store Store, cfg Config) (*Workflow, *modem.Session) {
	t.Helper()

	modemConfig, err := modem.NewConfigBuilder().
		WithDialer(modem.PortDialer{Port: port}).
		Build()
	require.NoError(t, err)

	sess, err := modem.New(context.Background(), modemConfig)
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close() })

	return New(sess, store, nil, cfg), sess
}

func fastTimeouts() Timeouts {
	return Timeouts{
		Handshake: time.Second,
		Command:   time.Second,
		Action:    time.Second,
		Head:      time.Second,
		Segment:   time.Second,
		Prompt:    time.Second,
		Settle:    10 * time.Millisecond,
	}
}

func TestWorkflowFullRun(t *testing.T) {
	// Embedded LF and CR bytes must ride through the binary segments
	// untouched.
	image := make([]byte, 500)
	for i := range image {
		image[i] = byte(i)
	}

	device := newScriptDevice(image)
	store := &memStore{}
	w, _ := newTestWorkflow(t, device.port, store, Config{
		URL:      "http://example.com/fw.bin",
		Timeouts: fastTimeouts(),
	})

	require.NoError(t, w.Run(context.Background()))

	require.Equal(t, image, store.bytes(), "downloaded image")
	require.Equal(t, image, device.uploadedBytes(), "uploaded image")

	// The reset command must have gone out after the upload.
	var cmds []string
	for _, wr := range device.port.Writes() {
		cmds = append(cmds, strings.TrimSpace(string(wr)))
	}
	require.Contains(t, cmds, at.CmdReset)
}

func TestWorkflowAbortsAtHandshake(t *testing.T) {
	// A device that never answers the initial AT.
	port := modem.NewTestPort()
	w, _ := newTestWorkflow(t, port, &memStore{}, Config{
		URL: "http://example.com/fw.bin",
		Timeouts: Timeouts{
			Handshake: 50 * time.Millisecond,
		},
	})

	err := w.Run(context.Background())
	require.ErrorIs(t, err, modem.ErrTimeout)
	require.Contains(t, err.Error(), "handshake")

	// No subsequent step ran: the only write is the probe itself.
	writes := port.Writes()
	require.Len(t, writes, 1)
	require.Equal(t, "AT\r\n", string(writes[0]))
}

func TestWorkflowRejectsBadHTTPStatus(t *testing.T) {
	port := modem.NewTestPort()
	port.OnWrite = func(p []byte) {
		cmd := strings.TrimSpace(string(p))
		switch cmd {
		case at.CmdHTTPGet:
			port.Inject([]byte("+HTTPACTION: 0,404\r\n"))
		default:
			port.Inject([]byte("OK\r\n"))
		}
	}

	w, _ := newTestWorkflow(t, port, &memStore{}, Config{
		URL:      "http://example.com/fw.bin",
		Timeouts: fastTimeouts(),
	})

	err := w.Run(context.Background())
	require.ErrorIs(t, err, modem.ErrProtocol)
	require.Contains(t, err.Error(), "404")
}

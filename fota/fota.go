// Package fota drives a staged firmware update of a SIMCom cellular module
// over its AT command port: download the image through the module's built-in
// HTTP client, stage it back into the module with the length-prefixed LFOTA
// transfer, then watch the update notifications across the reboot that
// applies it.
package fota

import (
	"errors"
	"io"
	"time"
)

// ErrStore is returned when the local staging file cannot be created, read
// or written. It aborts the current step like any other failure.
var ErrStore = errors.New("local store failure")

// Store abstracts the local file the firmware image is staged through. The
// download step appends segments through Create's writer; the upload step
// reads the whole image back through Open's reader.
type Store interface {
	Create() (io.WriteCloser, error)
	Open() (io.ReadCloser, error)
}

// Timeouts bounds each class of workflow step. Zero fields take defaults
// sized for a module on a 115200 baud link.
type Timeouts struct {
	// Handshake bounds the initial "AT" probe.
	Handshake time.Duration
	// Command bounds ordinary command/OK exchanges.
	Command time.Duration
	// Action bounds the HTTP GET trigger, which includes network time.
	Action time.Duration
	// Head bounds the Content-Length query.
	Head time.Duration
	// Segment bounds one download read command and its data.
	Segment time.Duration
	// Prompt bounds the wait for the LFOTA ready-prompt.
	Prompt time.Duration
	// UploadWrite and UploadDrain bound the single whole-image write.
	// Drain must be generous: a multi-megabyte image at 115200 baud takes
	// minutes to leave the host.
	UploadWrite time.Duration
	UploadDrain time.Duration
	// UploadAck bounds the module's OK after the image is received.
	UploadAck time.Duration
	// Update bounds the whole reboot-and-flash monitoring phase. It spans
	// a full device reboot, so it dwarfs every single-command timeout.
	Update time.Duration
	// Settle is the pause between the ready notification and the
	// post-update queries.
	Settle time.Duration
}

func (t *Timeouts) setDefaults() {
	if t.Handshake == 0 {
		t.Handshake = time.Second
	}
	if t.Command == 0 {
		t.Command = 5 * time.Second
	}
	if t.Action == 0 {
		t.Action = 10 * time.Second
	}
	if t.Head == 0 {
		t.Head = time.Second
	}
	if t.Segment == 0 {
		t.Segment = 30 * time.Second
	}
	if t.Prompt == 0 {
		t.Prompt = 10 * time.Second
	}
	if t.UploadWrite == 0 {
		t.UploadWrite = 30 * time.Second
	}
	if t.UploadDrain == 0 {
		t.UploadDrain = 30 * time.Second
	}
	if t.UploadAck == 0 {
		t.UploadAck = 20 * time.Second
	}
	if t.Update == 0 {
		t.Update = 10 * time.Minute
	}
	if t.Settle == 0 {
		t.Settle = 2 * time.Second
	}
}

// Config carries the workflow parameters.
type Config struct {
	// URL is the remote image the module's HTTP client fetches.
	URL string
	// HexDump, when set, logs a hex transcript of every downloaded
	// segment at debug level. Decoration only.
	HexDump bool
	// Timeouts bounds the individual steps.
	Timeouts Timeouts
}

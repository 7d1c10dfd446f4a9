package fota

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"i4.energy/across/fotaflash/at"
	"i4.energy/across/fotaflash/modem"
)

// upload stages the downloaded image back into the module. The whole payload
// is read into memory up front (its size is pinned by the download step),
// the transfer is announced, and once the module emits its bare ready-prompt
// the image goes out in a single write-and-drain call. Small and
// multi-megabyte images take the identical path.
func (w *Workflow) upload(ctx context.Context, size int) error {
	source, err := w.store.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer source.Close()

	payload := make([]byte, size)
	if _, err := io.ReadFull(source, payload); err != nil {
		return fmt.Errorf("%w: read image: %v", ErrStore, err)
	}

	if err := w.sess.SendCommand(at.LFOTAStart(size)); err != nil {
		return err
	}
	if err := w.awaitPrompt(ctx); err != nil {
		return err
	}

	w.log.Info("uploading image", "bytes", size)
	if err := w.sess.WriteAndDrain(payload, w.cfg.Timeouts.UploadWrite, w.cfg.Timeouts.UploadDrain); err != nil {
		return err
	}

	_, err = w.match.WaitForLine(ctx, at.OK, w.cfg.Timeouts.UploadAck)
	return err
}

// awaitPrompt waits for the module's ready-prompt. The prompt is a single
// byte with no line terminator, so it goes through the pattern-or-line wait
// rather than line matching; complete lines that arrive first are discarded
// unless they carry an error token.
func (w *Workflow) awaitPrompt(ctx context.Context) error {
	deadline := time.Now().Add(w.cfg.Timeouts.Prompt)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: want ready-prompt", modem.ErrTimeout)
		}

		m, err := w.match.WaitForPatternOrLine(ctx, at.Prompt, remaining)
		if err != nil {
			return err
		}
		if m.Kind == modem.MatchPattern {
			return nil
		}
		if strings.Contains(string(m.Data), at.ERROR) {
			return fmt.Errorf("%w: transfer rejected", modem.ErrProtocol)
		}
	}
}

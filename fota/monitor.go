package fota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"i4.energy/across/fotaflash/at"
	"i4.energy/across/fotaflash/modem"
)

// monitorIdle is the sleep between polls while the module is rebooting and
// no notification lines are buffered.
const monitorIdle = 200 * time.Millisecond

// monitor watches the asynchronous notifications the module emits while it
// reboots and flashes the staged image. Progress percentages are logged with
// duplicates suppressed. The phase succeeds only once the terminal success
// notification and the device-ready notification have each been seen at
// least once; 100% progress alone never counts. The overall timeout spans a
// full reboot and flash cycle.
func (w *Workflow) monitor(ctx context.Context) error {
	deadline := time.Now().Add(w.cfg.Timeouts.Update)

	var gotSuccess, gotReady bool
	lastProgress := -1

	for {
		line, ok := w.match.ReadLine()
		if !ok {
			if time.Now().After(deadline) {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(monitorIdle):
			}
			continue
		}

		s := strings.TrimRight(string(line), at.CRLF)
		w.log.Debug("received", "line", s)

		switch kind, value := at.ClassifyNotification(s); kind {
		case at.NotifyProgress:
			if value != lastProgress {
				lastProgress = value
				w.log.Info("update progress", "percent", value)
			}
		case at.NotifySuccess:
			gotSuccess = true
			w.log.Info("update reported success")
		case at.NotifyReady:
			gotReady = true
			w.log.Info("module reported ready")
		}

		if gotSuccess && gotReady {
			return nil
		}
	}

	if !gotSuccess {
		return fmt.Errorf("%w: no update success notification", modem.ErrTimeout)
	}
	return fmt.Errorf("%w: no device ready notification", modem.ErrTimeout)
}

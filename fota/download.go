package fota

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"i4.energy/across/fotaflash/at"
	"i4.energy/across/fotaflash/modem"
)

// httpReadChunk is the per-command read budget passed to AT+HTTPREAD. The
// module splits it into one or more announced segments as it sees fit.
const httpReadChunk = 10240

// segmentPoll is the sleep between polls while raw segment bytes or control
// lines are still in flight.
const segmentPoll = time.Millisecond

// download pulls total bytes of HTTP response body out of the module and
// appends them to the store.
//
// The stream mixes framings: each AT+HTTPREAD answer is a control line
// announcing a segment length, followed by exactly that many raw bytes.
// The raw bytes may contain line-terminator values, so inside a declared
// segment the announced length is the only valid boundary; line parsing
// resumes only after the segment has been removed in full. A zero-length
// announcement closes the current read command; the loop issues new read
// commands until the announced total has arrived. An ERROR line aborts.
func (w *Workflow) download(ctx context.Context, total int) error {
	sink, err := w.store.Create()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer sink.Close()

	received := 0
	lastPercent := -1

	for received < total {
		if err := w.sess.SendCommand(at.HTTPRead(httpReadChunk)); err != nil {
			return err
		}

		deadline := time.Now().Add(w.cfg.Timeouts.Segment)
	batch:
		for {
			line, ok := w.match.ReadLine()
			if !ok {
				if err := w.pollWait(ctx, deadline); err != nil {
					return err
				}
				continue
			}

			s := string(line)
			w.log.Debug("received", "line", strings.TrimRight(s, at.CRLF))

			if strings.Contains(s, at.ERROR) {
				return fmt.Errorf("%w: download aborted", modem.ErrProtocol)
			}

			length, announced := at.NumberAfter(s, at.MarkHTTPRead)
			if !announced {
				continue
			}
			if length == 0 {
				break batch
			}

			segment, err := w.readSegment(ctx, length, deadline)
			if err != nil {
				return err
			}
			if _, err := sink.Write(segment); err != nil {
				return fmt.Errorf("%w: %v", ErrStore, err)
			}
			received += length

			if w.cfg.HexDump {
				w.log.Debug("segment", "hex", "\n"+hex.Dump(segment))
			}
			if percent := received * 100 / total; percent != lastPercent {
				lastPercent = percent
				w.log.Info("download progress",
					"received", received, "total", total, "percent", percent)
			}
		}
	}

	w.log.Info("download complete", "bytes", received)
	return nil
}

// readSegment removes exactly length raw bytes from the receive ring,
// waiting out the producer as needed up to deadline.
func (w *Workflow) readSegment(ctx context.Context, length int, deadline time.Time) ([]byte, error) {
	segment := make([]byte, length)
	got := 0
	for got < length {
		n := w.sess.Rx().ReadBulk(segment[got:])
		if n == 0 {
			if err := w.pollWait(ctx, deadline); err != nil {
				return nil, fmt.Errorf("segment at %d of %d bytes: %w", got, length, err)
			}
			continue
		}
		got += n
	}
	return segment, nil
}

// pollWait sleeps one poll interval, failing once deadline has passed or ctx
// is cancelled.
func (w *Workflow) pollWait(ctx context.Context, deadline time.Time) error {
	if time.Now().After(deadline) {
		return modem.ErrTimeout
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(segmentPoll):
		return nil
	}
}

package fota

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"i4.energy/across/fotaflash/at"
	"i4.energy/across/fotaflash/modem"
)

// Workflow runs the full update sequence against one session. It is strictly
// sequential: every step sends a command, waits for its expected token within
// a step-specific timeout, and the first failure aborts the whole run. There
// is no retry, rollback or resumption; a failed run is rerun from the start.
//
// State flows forward only: the Content-Length learned from the header query
// sizes the download, and the downloaded image sizes the upload.
type Workflow struct {
	sess  *modem.Session
	match *modem.Matcher
	store Store
	log   *slog.Logger
	cfg   Config
}

// New assembles a workflow over an established session.
func New(sess *modem.Session, store Store, logger *slog.Logger, cfg Config) *Workflow {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg.Timeouts.setDefaults()
	return &Workflow{
		sess:  sess,
		match: modem.NewMatcher(sess.Rx(), logger),
		store: store,
		log:   logger,
		cfg:   cfg,
	}
}

type step struct {
	name string
	fn   func(context.Context) error
}

// Run executes every step in order and returns the first failure, wrapped
// with the name of the step that aborted the run.
func (w *Workflow) Run(ctx context.Context) error {
	t := w.cfg.Timeouts

	// The image size learned from the header query feeds the download,
	// the LFOTA announcement and the upload.
	var size int

	steps := []step{
		{"handshake", func(ctx context.Context) error {
			return w.expectOK(ctx, at.CmdAT, t.Handshake)
		}},
		{"query firmware version", func(ctx context.Context) error {
			return w.expectOK(ctx, at.CmdFirmwareVersion, t.Command)
		}},
		{"query subscriber edition", func(ctx context.Context) error {
			return w.expectOK(ctx, at.CmdSubEdition, t.Command)
		}},
		{"start HTTP service", func(ctx context.Context) error {
			return w.expectOK(ctx, at.CmdHTTPInit, t.Command)
		}},
		{"set SSL configuration", func(ctx context.Context) error {
			return w.expectOK(ctx, at.CmdHTTPSSLCfg, t.Command)
		}},
		{"set URL", func(ctx context.Context) error {
			return w.expectOK(ctx, at.HTTPParaURL(w.cfg.URL), t.Command)
		}},
		{"trigger HTTP GET", w.httpAction},
		{"query file size", func(ctx context.Context) error {
			var err error
			if size, err = w.querySize(ctx); err != nil {
				return err
			}
			w.log.Info("file size", "bytes", size)
			return nil
		}},
		{"download", func(ctx context.Context) error {
			return w.download(ctx, size)
		}},
		{"terminate HTTP service", func(ctx context.Context) error {
			return w.expectOK(ctx, at.CmdHTTPTerm, t.Command)
		}},
		{"announce firmware size", func(ctx context.Context) error {
			return w.expectOK(ctx, at.LFOTANotify(size), t.Command)
		}},
		{"upload", func(ctx context.Context) error {
			return w.upload(ctx, size)
		}},
		{"reset module", func(ctx context.Context) error {
			// The module answers the reset with asynchronous
			// notifications only; the monitor step collects them.
			return w.sess.SendCommand(at.CmdReset)
		}},
		{"monitor update", w.monitor},
		{"settle", w.settle},
		{"verify firmware version", func(ctx context.Context) error {
			return w.expectOK(ctx, at.CmdFirmwareVersion, t.Command)
		}},
		{"verify subscriber edition", func(ctx context.Context) error {
			return w.expectOK(ctx, at.CmdSubEdition, t.Command)
		}},
	}

	for _, s := range steps {
		w.log.Info("step", "name", s.name)
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	w.log.Info("all operations completed")
	return nil
}

// httpAction triggers the GET and checks the reported HTTP status.
func (w *Workflow) httpAction(ctx context.Context) error {
	if err := w.sess.SendCommand(at.CmdHTTPGet); err != nil {
		return err
	}
	status, err := w.match.WaitForNumber(ctx, at.MarkHTTPStatus, w.cfg.Timeouts.Action)
	if err != nil {
		return err
	}
	if status != at.StatusOK {
		return fmt.Errorf("%w: HTTP status %d", modem.ErrProtocol, status)
	}
	return nil
}

// querySize extracts the Content-Length from the header query response.
func (w *Workflow) querySize(ctx context.Context) (int, error) {
	if err := w.sess.SendCommand(at.CmdHTTPHead); err != nil {
		return 0, err
	}
	size, err := w.match.WaitForNumber(ctx, at.FieldContentLength, w.cfg.Timeouts.Head)
	if err != nil {
		return 0, err
	}
	if _, err := w.match.WaitForLine(ctx, at.OK, w.cfg.Timeouts.Head); err != nil {
		return 0, err
	}
	return size, nil
}

// expectOK sends cmd and waits for a line containing OK. The convenience
// wrapper behind most steps.
func (w *Workflow) expectOK(ctx context.Context, cmd string, timeout time.Duration) error {
	if err := w.sess.SendCommand(cmd); err != nil {
		return err
	}
	_, err := w.match.WaitForLine(ctx, at.OK, timeout)
	return err
}

// settle pauses briefly after the module reports ready, giving its command
// interpreter time to come back up before the post-update queries.
func (w *Workflow) settle(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(w.cfg.Timeouts.Settle):
		return nil
	}
}

package modem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"i4.energy/across/fotaflash/at"
)

// Match kinds returned by WaitForPatternOrLine.
const (
	// MatchPattern means the pattern was found; Data holds the consumed
	// bytes through the end of the match.
	MatchPattern = iota
	// MatchLine means no pattern was found but a complete line was; Data
	// holds that line including its terminator.
	MatchLine
)

// Match is the outcome of a pattern-or-line wait.
type Match struct {
	Kind int
	Data []byte
}

// maxLine bounds a single consumed response line. Anything longer is
// consumed in maxLine pieces; module responses never approach this.
const maxLine = 256

// pollInterval is the fixed sleep between matcher polls. Waits never spin
// harder than this and never hold the ring lock across the sleep.
const pollInterval = 5 * time.Millisecond

// Matcher implements the response-side algorithms over a session's receive
// ring: line extraction, substring waits, numeric field extraction and
// pattern-or-line waits. Timeout is its only failure mode; retry policy
// belongs to callers.
type Matcher struct {
	rx  *Ring
	log *slog.Logger
}

// NewMatcher creates a matcher over rx. Consumed lines are logged through
// logger at debug level; a nil logger disables that.
func NewMatcher(rx *Ring, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Matcher{rx: rx, log: logger}
}

// ReadLine consumes and returns the oldest buffered line, terminator
// included, if one is present. It reports false, consuming nothing, while no
// line terminator is buffered. Response lines end in LF; CRLF endings are
// covered by matching the LF alone.
func (m *Matcher) ReadLine() ([]byte, bool) {
	idx := m.rx.FindByte('\n')
	if idx < 0 {
		return nil, false
	}

	n := idx + 1
	if n > maxLine {
		n = maxLine
	}
	line := make([]byte, n)
	n = m.rx.ReadBulk(line)
	return line[:n], true
}

// WaitForLine consumes lines until one containing substr appears and returns
// it. Non-matching lines are discarded, never retained. It fails with
// ErrTimeout once timeout elapses, or with the context error on cancellation.
func (m *Matcher) WaitForLine(ctx context.Context, substr string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		if line, ok := m.ReadLine(); ok {
			s := string(line)
			m.log.Debug("received", "line", strings.TrimRight(s, at.CRLF))
			if strings.Contains(s, substr) {
				return s, nil
			}
			continue
		}
		if err := m.wait(ctx, deadline); err != nil {
			return "", fmt.Errorf("%w: want %q", err, substr)
		}
	}
}

// WaitForNumber consumes lines until one carries prefix followed (after any
// non-digit characters) by a run of decimal digits, and returns that value.
// A line carrying the prefix with no trailing digits is a non-match and is
// discarded like any other line.
func (m *Matcher) WaitForNumber(ctx context.Context, prefix string, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	for {
		if line, ok := m.ReadLine(); ok {
			s := string(line)
			m.log.Debug("received", "line", strings.TrimRight(s, at.CRLF))
			if v, ok := at.NumberAfter(s, prefix); ok {
				return v, nil
			}
			continue
		}
		if err := m.wait(ctx, deadline); err != nil {
			return 0, fmt.Errorf("%w: want number after %q", err, prefix)
		}
	}
}

// WaitForPatternOrLine waits for pattern anywhere in the buffered bytes,
// line structure ignored, or failing that for a complete line. The pattern
// outcome consumes exactly through the end of the match; the line outcome
// consumes the whole line. It supports replies terminated by a bare token
// rather than a newline, such as the upload ready-prompt.
func (m *Matcher) WaitForPatternOrLine(ctx context.Context, pattern string, timeout time.Duration) (Match, error) {
	deadline := time.Now().Add(timeout)
	snap := make([]byte, m.rx.Capacity())
	for {
		if n := m.rx.Snapshot(snap); n > 0 {
			window := snap[:n]

			if i := bytes.Index(window, []byte(pattern)); i >= 0 {
				consumed := make([]byte, i+len(pattern))
				m.rx.ReadBulk(consumed)
				m.log.Debug("received", "pattern", pattern)
				return Match{Kind: MatchPattern, Data: consumed}, nil
			}

			if i := bytes.IndexByte(window, '\n'); i >= 0 {
				line := make([]byte, i+1)
				m.rx.ReadBulk(line)
				m.log.Debug("received", "line", strings.TrimRight(string(line), at.CRLF))
				return Match{Kind: MatchLine, Data: line}, nil
			}
		}
		if err := m.wait(ctx, deadline); err != nil {
			return Match{}, fmt.Errorf("%w: want pattern %q", err, pattern)
		}
	}
}

// wait sleeps one poll interval, failing once deadline has passed or ctx is
// cancelled.
func (m *Matcher) wait(ctx context.Context, deadline time.Time) error {
	if time.Now().After(deadline) {
		return ErrTimeout
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pollInterval):
		return nil
	}
}

package modem_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"i4.energy/across/fotaflash/modem"
)

func newMatcher(t *testing.T) (*modem.Matcher, *modem.Ring) {
	t.Helper()
	rx := modem.NewRing(0)
	return modem.NewMatcher(rx, nil), rx
}

func TestReadLine(t *testing.T) {
	m, rx := newMatcher(t)

	_, ok := m.ReadLine()
	require.False(t, ok, "no terminator buffered yet")

	rx.PutBulk([]byte("partial"))
	_, ok = m.ReadLine()
	require.False(t, ok)
	require.Equal(t, 7, rx.Available(), "nothing consumed without a terminator")

	rx.PutBulk([]byte("\r\nsecond\r\n"))
	line, ok := m.ReadLine()
	require.True(t, ok)
	require.Equal(t, []byte("partial\r\n"), line)

	line, ok = m.ReadLine()
	require.True(t, ok)
	require.Equal(t, []byte("second\r\n"), line)

	_, ok = m.ReadLine()
	require.False(t, ok)
}

func TestWaitForLine(t *testing.T) {
	t.Run("discards non-matching lines", func(t *testing.T) {
		m, rx := newMatcher(t)
		rx.PutBulk([]byte("AT\r\nnoise\r\nOK\r\n"))

		line, err := m.WaitForLine(context.Background(), "OK", 100*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, "OK\r\n", line)
		require.Equal(t, 0, rx.Available())
	})

	t.Run("times out", func(t *testing.T) {
		m, rx := newMatcher(t)
		rx.PutBulk([]byte("never matches\r\n"))

		_, err := m.WaitForLine(context.Background(), "OK", 30*time.Millisecond)
		require.ErrorIs(t, err, modem.ErrTimeout)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		m, _ := newMatcher(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := m.WaitForLine(ctx, "OK", time.Second)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestWaitForNumber(t *testing.T) {
	t.Run("extracts decimal after prefix", func(t *testing.T) {
		m, rx := newMatcher(t)
		rx.PutBulk([]byte("Content-Length: 1234\r\n"))

		v, err := m.WaitForNumber(context.Background(), "Content-Length: ", 100*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, 1234, v)
	})

	t.Run("prefix without digits is a non-match", func(t *testing.T) {
		m, rx := newMatcher(t)
		rx.PutBulk([]byte("Content-Length: \r\n"))

		_, err := m.WaitForNumber(context.Background(), "Content-Length: ", 30*time.Millisecond)
		require.ErrorIs(t, err, modem.ErrTimeout)
		require.Equal(t, 0, rx.Available(), "non-matching line is discarded")
	})

	t.Run("skips separators before digits", func(t *testing.T) {
		m, rx := newMatcher(t)
		rx.PutBulk([]byte("+HTTPACTION: 0,200\r\n"))

		v, err := m.WaitForNumber(context.Background(), "+HTTPACTION: 0,", 100*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, 200, v)
	})
}

func TestWaitForPatternOrLine(t *testing.T) {
	t.Run("pattern without line terminator", func(t *testing.T) {
		m, rx := newMatcher(t)
		rx.PutBulk([]byte(">"))

		res, err := m.WaitForPatternOrLine(context.Background(), ">", 100*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, modem.MatchPattern, res.Kind)
		require.Equal(t, []byte(">"), res.Data)
		require.Equal(t, 0, rx.Available())
	})

	t.Run("pattern consumes through match end only", func(t *testing.T) {
		m, rx := newMatcher(t)
		rx.PutBulk([]byte("ab>tail"))

		res, err := m.WaitForPatternOrLine(context.Background(), ">", 100*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, modem.MatchPattern, res.Kind)
		require.Equal(t, []byte("ab>"), res.Data)
		require.Equal(t, 4, rx.Available())
	})

	t.Run("falls back to a complete line", func(t *testing.T) {
		m, rx := newMatcher(t)
		rx.PutBulk([]byte("ERROR\r\n"))

		res, err := m.WaitForPatternOrLine(context.Background(), ">", 100*time.Millisecond)
		require.NoError(t, err)
		require.Equal(t, modem.MatchLine, res.Kind)
		require.Equal(t, []byte("ERROR\r\n"), res.Data)
	})

	t.Run("times out on incomplete data", func(t *testing.T) {
		m, rx := newMatcher(t)
		rx.PutBulk([]byte("no terminator"))

		_, err := m.WaitForPatternOrLine(context.Background(), ">", 30*time.Millisecond)
		require.ErrorIs(t, err, modem.ErrTimeout)
	})
}

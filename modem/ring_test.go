package modem_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"i4.energy/across/fotaflash/modem"
)

func TestRingOrderAcrossWraparound(t *testing.T) {
	r := modem.NewRing(8)

	// Advance head/tail so subsequent bulk ops straddle the physical end.
	require.Equal(t, 5, r.PutBulk([]byte("abcde")))
	drain := make([]byte, 5)
	require.Equal(t, 5, r.ReadBulk(drain))
	require.Equal(t, []byte("abcde"), drain)

	// Now head=5, tail=5; these 6 bytes wrap.
	require.Equal(t, 6, r.PutBulk([]byte("fghijk")))
	require.Equal(t, 6, r.Available())

	out := make([]byte, 6)
	require.Equal(t, 6, r.ReadBulk(out))
	require.Equal(t, []byte("fghijk"), out)
	require.Equal(t, 0, r.Available())
}

func TestRingPutBulkNeverExceedsCapacity(t *testing.T) {
	r := modem.NewRing(8)

	require.Equal(t, 8, r.PutBulk(bytes.Repeat([]byte{0x41}, 12)))
	require.Equal(t, 8, r.Available())

	// Full ring accepts nothing.
	require.Equal(t, 0, r.PutBulk([]byte{0x42}))
	require.False(t, r.Put(0x42))

	// Freeing three slots admits exactly three bytes.
	out := make([]byte, 3)
	require.Equal(t, 3, r.ReadBulk(out))
	require.Equal(t, 3, r.PutBulk([]byte("xyzw")))
	require.Equal(t, 8, r.Available())
}

func TestRingInterleavedNoLossNoDuplication(t *testing.T) {
	r := modem.NewRing(16)

	var wrote, read []byte
	next := byte(0)
	for i := 0; i < 50; i++ {
		chunk := make([]byte, 7)
		for j := range chunk {
			chunk[j] = next
			next++
		}
		require.Equal(t, 7, r.PutBulk(chunk))
		wrote = append(wrote, chunk...)

		out := make([]byte, 7)
		require.Equal(t, 7, r.ReadBulk(out))
		read = append(read, out...)
	}

	require.Equal(t, wrote, read)
}

func TestRingFindByte(t *testing.T) {
	t.Run("contiguous", func(t *testing.T) {
		r := modem.NewRing(8)
		r.PutBulk([]byte("ab\ncd"))
		require.Equal(t, 2, r.FindByte('\n'))
		require.Equal(t, -1, r.FindByte('x'))
	})

	t.Run("across wraparound", func(t *testing.T) {
		r := modem.NewRing(8)
		r.PutBulk([]byte("abcdef"))
		drain := make([]byte, 6)
		r.ReadBulk(drain)

		// tail=6: the '\n' lands in the second physical block.
		r.PutBulk([]byte("abcd\ne"))
		require.Equal(t, 4, r.FindByte('\n'))
		require.Equal(t, 5, r.FindByte('e'))
		require.Equal(t, -1, r.FindByte('z'))
	})

	t.Run("empty", func(t *testing.T) {
		r := modem.NewRing(8)
		require.Equal(t, -1, r.FindByte('\n'))
	})
}

func TestRingPeekAndSnapshot(t *testing.T) {
	r := modem.NewRing(8)
	r.PutBulk([]byte("hello"))

	b, ok := r.Peek(0)
	require.True(t, ok)
	require.Equal(t, byte('h'), b)

	b, ok = r.Peek(4)
	require.True(t, ok)
	require.Equal(t, byte('o'), b)

	_, ok = r.Peek(5)
	require.False(t, ok)
	_, ok = r.Peek(-1)
	require.False(t, ok)

	snap := make([]byte, 8)
	n := r.Snapshot(snap)
	require.Equal(t, 5, n)
	require.Equal(t, []byte("hello"), snap[:n])

	// Snapshot removes nothing.
	require.Equal(t, 5, r.Available())
}

func TestRingGet(t *testing.T) {
	r := modem.NewRing(4)
	_, ok := r.Get()
	require.False(t, ok)

	r.Put('a')
	r.Put('b')
	b, ok := r.Get()
	require.True(t, ok)
	require.Equal(t, byte('a'), b)
	require.Equal(t, 1, r.Available())
}

package modem

import (
	"bytes"
	"sync"
)

// DefaultRingSize is the receive queue capacity used when none is configured.
// It is large relative to the traffic of any single command exchange, so the
// reader's bounded retry against a full queue is a rare flow-control event,
// not a steady state.
const DefaultRingSize = 8192

// Ring is a fixed-capacity circular byte queue shared between the session's
// reader goroutine (sole producer) and the response matcher (sole consumer).
//
// Every operation acquires the queue's single lock for the duration of the
// call, so bulk reads and writes are atomic: concurrent producer activity can
// never tear a segment in half. Operations that cross the physical end of the
// backing slice split into at most two contiguous block operations, keeping
// locked time proportional to the bytes moved.
type Ring struct {
	mu    sync.Mutex
	buf   []byte
	head  int // next write position
	tail  int // oldest byte position
	count int
}

// NewRing creates a ring with the given capacity. A non-positive capacity
// falls back to DefaultRingSize.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingSize
	}
	return &Ring{buf: make([]byte, capacity)}
}

// Put appends a single byte. It reports false, changing nothing, if the ring
// is full.
func (r *Ring) Put(b byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count >= len(r.buf) {
		return false
	}
	r.buf[r.head] = b
	r.head = (r.head + 1) % len(r.buf)
	r.count++
	return true
}

// PutBulk appends as much of p as free capacity allows and returns the number
// of bytes written, which may be less than len(p). It never blocks; the caller
// retries the remainder on its own schedule.
func (r *Ring) PutBulk(p []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	free := len(r.buf) - r.count
	n := len(p)
	if n > free {
		n = free
	}
	if n <= 0 {
		return 0
	}

	first := len(r.buf) - r.head
	if first > n {
		first = n
	}
	copy(r.buf[r.head:], p[:first])
	if n > first {
		copy(r.buf, p[first:n])
	}
	r.head = (r.head + n) % len(r.buf)
	r.count += n
	return n
}

// Get removes and returns the oldest byte. It reports false if the ring is
// empty.
func (r *Ring) Get() (byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return 0, false
	}
	b := r.buf[r.tail]
	r.tail = (r.tail + 1) % len(r.buf)
	r.count--
	return b, true
}

// ReadBulk removes up to len(dst) of the oldest bytes into dst and returns
// the number removed.
func (r *Ring) ReadBulk(dst []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readLocked(dst)
}

func (r *Ring) readLocked(dst []byte) int {
	n := len(dst)
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return 0
	}

	first := len(r.buf) - r.tail
	if first > n {
		first = n
	}
	copy(dst, r.buf[r.tail:r.tail+first])
	if n > first {
		copy(dst[first:], r.buf[:n-first])
	}
	r.tail = (r.tail + n) % len(r.buf)
	r.count -= n
	return n
}

// Peek returns the byte at logical offset i from the oldest without removing
// it. It reports false if i is outside [0, count).
func (r *Ring) Peek(i int) (byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= r.count {
		return 0, false
	}
	return r.buf[(r.tail+i)%len(r.buf)], true
}

// Snapshot copies up to len(dst) of the oldest bytes into dst without
// removing them and returns the number copied.
func (r *Ring) Snapshot(dst []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(dst)
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return 0
	}

	first := len(r.buf) - r.tail
	if first > n {
		first = n
	}
	copy(dst, r.buf[r.tail:r.tail+first])
	if n > first {
		copy(dst[first:], r.buf[:n-first])
	}
	return n
}

// FindByte returns the logical offset, from the oldest byte, of the first
// occurrence of c, or -1 if c is not buffered. The search runs as one or two
// contiguous block scans so a wrapped queue is never materialized.
func (r *Ring) FindByte(c byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return -1
	}

	if r.tail+r.count <= len(r.buf) {
		if i := bytes.IndexByte(r.buf[r.tail:r.tail+r.count], c); i >= 0 {
			return i
		}
		return -1
	}

	first := len(r.buf) - r.tail
	if i := bytes.IndexByte(r.buf[r.tail:], c); i >= 0 {
		return i
	}
	if i := bytes.IndexByte(r.buf[:r.count-first], c); i >= 0 {
		return first + i
	}
	return -1
}

// Available returns the current byte count. With the reader goroutine still
// producing, the value is a hint that may grow immediately after it is read.
func (r *Ring) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Capacity returns the fixed size of the ring.
func (r *Ring) Capacity() int {
	return len(r.buf)
}

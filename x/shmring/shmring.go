// Package shmring is a single-producer, single-consumer byte ring.
//
// The producer and the consumer may run in different execution contexts
// (main-line code and an interrupt handler). Neither side takes a lock:
// indices are published with atomic stores and the notification channels
// are only ever sent to with a non-blocking select.
package shmring

import "sync/atomic"

type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)

	// Coalesced progress tokens. Every successful write posts readable and
	// every successful read posts writable; waiters must re-check state.
	readable chan struct{}
	writable chan struct{}
}

// New allocates a ring of size bytes; size must be a power of two >= 2.
func New(size int) *Ring {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

func (r *Ring) size() uint32 { return uint32(len(r.buf)) }

// Cap returns the ring capacity in bytes.
func (r *Ring) Cap() int { return len(r.buf) }

func (r *Ring) Space() int {
	return int(r.size() - (r.wr.Load() - r.rd.Load()))
}

func (r *Ring) Available() int {
	return int(r.wr.Load() - r.rd.Load())
}

// TryWriteFrom copies as much of src as fits and returns the count.
// Producer side only.
func (r *Ring) TryWriteFrom(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	n := int(r.size() - (wr - rd))
	if n <= 0 {
		return 0
	}
	if len(src) < n {
		n = len(src)
	}
	idx := wr & r.mask
	first := copy(r.buf[idx:], src[:n])
	if first < n {
		copy(r.buf, src[first:n])
	}
	r.wr.Store(wr + uint32(n)) // publish
	notify(r.readable)
	return n
}

// TryWriteByte pushes one byte. Producer side only.
func (r *Ring) TryWriteByte(b byte) bool {
	return r.TryWriteFrom([]byte{b}) == 1
}

// TryReadInto copies up to len(dst) bytes out of the ring and returns the count.
// Consumer side only.
func (r *Ring) TryReadInto(dst []byte) int {
	if len(dst) == 0 {
		return 0
	}
	rd := r.rd.Load()
	wr := r.wr.Load()
	n := int(wr - rd)
	if n <= 0 {
		return 0
	}
	if len(dst) < n {
		n = len(dst)
	}
	idx := rd & r.mask
	first := copy(dst[:n], r.buf[idx:])
	if first < n {
		copy(dst[first:n], r.buf)
	}
	r.rd.Store(rd + uint32(n)) // publish
	notify(r.writable)
	return n
}

// TryReadByte pops one byte. Consumer side only.
func (r *Ring) TryReadByte() (byte, bool) {
	var b [1]byte
	if r.TryReadInto(b[:]) == 0 {
		return 0, false
	}
	return b[0], true
}

func (r *Ring) Readable() <-chan struct{} { return r.readable }
func (r *Ring) Writable() <-chan struct{} { return r.writable }

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

package corovisor

import "sync/atomic"

// ringBuf is the backing array for one generation of a spscRing. A grown
// ring publishes a fresh ringBuf rather than mutating len(buf)/mask in
// place, so a consumer reading buf concurrently with a producer's grow
// never observes a torn slice header.
type ringBuf[T any] struct {
	buf  []T
	mask uint64
}

// spscRing is a Lamport single-producer single-consumer ring buffer with
// cached head/tail indices, grounded on hayabusa-cloud-lfq's spsc.go. That
// package builds its cache-line-padded indices on private atomix/iox
// helpers that cannot be fetched as a dependency here, so this adaptation
// reimplements the same cached-index algorithm directly on sync/atomic
// (documented deviation, see DESIGN.md).
//
// Capacity grows geometrically: when full, push reallocates to double
// capacity rather than blocking, since spec.md's channel is unbounded
// (channel<T> has no backpressure contract, §4.5).
type spscRing[T any] struct {
	_ [sizeOfCacheLine]byte

	// producer-owned
	tail       atomic.Uint64
	cachedHead uint64
	buf        atomic.Pointer[ringBuf[T]]

	_ [sizeOfCacheLine]byte

	// consumer-owned
	head       atomic.Uint64
	cachedTail uint64
}

func newSPSCRing[T any](initialCap int) *spscRing[T] {
	n := nextPow2(initialCap)
	q := &spscRing[T]{}
	q.buf.Store(&ringBuf[T]{buf: make([]T, n), mask: uint64(n - 1)})
	return q
}

func nextPow2(n int) int {
	if n < 2 {
		return 2
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// push appends v. Never blocks: grows the backing array when full.
//
// Single-producer only: callers must serialize their own push calls (the
// channel's Sender side does this implicitly, since spec.md's channel is
// SPSC).
func (q *spscRing[T]) push(v T) {
	rb := q.buf.Load()
	tail := q.tail.Load()
	if tail-q.cachedHead >= uint64(len(rb.buf)) {
		q.cachedHead = q.head.Load()
		if tail-q.cachedHead >= uint64(len(rb.buf)) {
			rb = q.grow(rb)
		}
	}
	rb.buf[tail&rb.mask] = v
	q.tail.Store(tail + 1)
}

// grow publishes a doubled-capacity ringBuf and returns it. Only the
// producer ever calls this; the consumer always loads q.buf fresh, so it
// either sees the old generation (still valid for anything not yet popped)
// or the new one, never a partially-written one.
func (q *spscRing[T]) grow(old *ringBuf[T]) *ringBuf[T] {
	newBuf := &ringBuf[T]{
		buf:  make([]T, len(old.buf)*2),
		mask: uint64(len(old.buf)*2 - 1),
	}
	head := q.cachedHead
	tail := q.tail.Load()
	for i := head; i < tail; i++ {
		newBuf.buf[i&newBuf.mask] = old.buf[i&old.mask]
	}
	q.buf.Store(newBuf)
	return newBuf
}

// pop removes and returns the oldest element. ok is false if empty.
//
// Single-consumer only.
func (q *spscRing[T]) pop() (v T, ok bool) {
	head := q.head.Load()
	if head >= q.cachedTail {
		q.cachedTail = q.tail.Load()
		if head >= q.cachedTail {
			return v, false
		}
	}
	rb := q.buf.Load()
	v = rb.buf[head&rb.mask]
	var zero T
	rb.buf[head&rb.mask] = zero
	q.head.Store(head + 1)
	return v, true
}

// isEmpty reports whether the queue currently has no elements, from the
// consumer's point of view (head vs. a fresh read of tail).
func (q *spscRing[T]) isEmpty() bool {
	return q.head.Load() >= q.tail.Load()
}

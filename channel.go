package corovisor

import "sync/atomic"

// NewChannel creates a single-producer single-consumer channel, the
// reference blocking primitive every other EventSource in this package is
// modeled after (spec.md §4.5). It is grounded directly on spsc.rs's
// channel(): an unbounded queue, a single waiter slot, a sender count, and
// a port-dropped flag.
func NewChannel[T any]() (Sender[T], Receiver[T]) {
	inner := &chanInner[T]{
		queue: newSPSCRing[T](16),
		drop:  newDelayedDrop(),
	}
	inner.channels.Store(1)
	return Sender[T]{inner}, Receiver[T]{inner}
}

type chanInner[T any] struct {
	queue       *spscRing[T]
	waitCo      waiterSlot
	channels    atomic.Int64
	portDropped atomic.Bool
	drop        *delayedDrop
}

// Sender is the producing half of a channel created by NewChannel.
type Sender[T any] struct {
	inner *chanInner[T]
}

// Send enqueues t. It returns ErrPortDropped if the Receiver has already
// been dropped, matching spsc.rs's send() short-circuit on port_dropped.
func (s Sender[T]) Send(t T) error {
	if s.inner.portDropped.Load() {
		return ErrPortDropped
	}
	s.inner.queue.push(t)
	if b := s.inner.waitCo.take(); b != nil {
		b.unpark()
	}
	return nil
}

// Close marks the sending side of the channel as gone. The channel keeps a
// single sender flag rather than a count, so closing any copy of a Sender
// closes it for all copies; pending and future Recv calls then observe
// ErrDisconnected once the queue drains. Safe to call from any coroutine
// or goroutine, any number of times.
func (s Sender[T]) Close() {
	s.inner.channels.Store(0)
	s.inner.drop.awaitRelease()
	if b := s.inner.waitCo.take(); b != nil {
		b.unpark()
	}
}

// Receiver is the consuming half of a channel created by NewChannel.
type Receiver[T any] struct {
	inner *chanInner[T]
}

// TryRecv returns immediately: a value, ErrEmpty, or ErrDisconnected if
// the queue is drained and every Sender has closed.
func (r Receiver[T]) TryRecv() (T, error) {
	return r.inner.tryRecv()
}

func (c *chanInner[T]) tryRecv() (T, error) {
	if v, ok := c.queue.pop(); ok {
		return v, nil
	}
	var zero T
	if c.channels.Load() > 0 {
		return zero, ErrEmpty
	}
	// No senders remain; re-check once more for a final race-free read.
	if v, ok := c.queue.pop(); ok {
		return v, nil
	}
	return zero, ErrDisconnected
}

// Recv blocks until a value is available or the channel disconnects. Pass the calling Coroutine when invoked from coroutine code so
// the wait suspends cooperatively instead of parking the OS thread; pass
// nil when called from a plain goroutine outside the scheduler.
func (r Receiver[T]) Recv(co *Coroutine) (T, error) {
	for {
		v, err := r.inner.tryRecv()
		if err != ErrEmpty {
			return v, err
		}

		if co != nil {
			co.suspend(func(waiting *Coroutine) {
				r.inner.subscribeCoroutine(waiting)
			})
			continue
		}

		blocker := newThreadBlocker()
		r.inner.waitCo.unsyncStore(blocker)
		// Re-check after publishing: avoids the lost-wakeup window
		// between a Send's tryRecv-miss and this waiter being visible.
		if v, err := r.inner.tryRecv(); err != ErrEmpty {
			r.inner.waitCo.take()
			return v, err
		}
		blocker.Park()
	}
}

// subscribeCoroutine implements the EventSource half of Recv for a
// suspended coroutine, following the subscribe protocol of spec.md §4.2:
// publish, re-check, and if the queue is non-empty by then, take the
// waiter back out and resume it immediately rather than leaving it
// parked.
func (c *chanInner[T]) subscribeCoroutine(co *Coroutine) {
	c.drop.enter()
	defer c.drop.release()

	c.waitCo.unsyncStore(newCoroutineBlocker(co))
	if !c.queue.isEmpty() || c.channels.Load() == 0 {
		if b := c.waitCo.take(); b != nil {
			b.unpark()
		}
	}
}

// Close drops this Receiver's reference, marking the channel port-dropped:
// further Sends fail with ErrPortDropped and any buffered data is
// discarded.
func (r Receiver[T]) Close() {
	r.inner.portDropped.Store(true)
	for {
		if _, ok := r.inner.queue.pop(); !ok {
			break
		}
	}
}

// Range calls fn for each value received until the channel disconnects.
// Equivalent to the Rust implementation's IntoIterator over Receiver.
func (r Receiver[T]) Range(co *Coroutine, fn func(T)) {
	for {
		v, err := r.Recv(co)
		if err != nil {
			return
		}
		fn(v)
	}
}

package corovisor

import "time"

// doAsyncIO runs attempt once inline; if it reports EAGAIN it registers fd
// with the runtime's selector and parks the caller until a readiness
// callback or the timeout fires, then returns the final result.
//
// If co is nil the caller is an ordinary goroutine (not a scheduled
// coroutine): the park uses a thread Blocker instead of suspending a
// Coroutine, matching Receiver.Recv's co==nil convention (spec.md §4.5)
// applied to I/O instead of channel receive.
//
// On the IOCP backend (selector_windows.go) readiness callbacks are never
// delivered through the fd-registration table, so this path only resolves
// immediately-ready attempts or genuine errors; anything that would EAGAIN
// blocks for the full timeout and then fails, matching fd_windows.go's
// existing stance that readFD/writeFD are build-tag placeholders rather
// than a complete overlapped I/O implementation.
func doAsyncIO(rt *Runtime, co *Coroutine, fd int, events IOEvents, timeout time.Duration, op string, attempt func() (int, error)) (int, error) {
	n, err := attempt()
	if !isEAGAIN(err) {
		return n, err
	}

	var deadline *timerEntry
	var ed *eventData

	// armSelector registers the ticket with the selector and timer wheel.
	// eventData.Subscribe (and the co==nil path below) only calls this
	// after the waiter is published and a re-check attempt has confirmed
	// the operation is still pending: registering first would let a
	// readiness callback observe an empty waiter slot and silently
	// consume the delivery before anyone is there to take it (spec.md
	// §4.2's lost-wakeup rule applies to I/O tickets exactly as it does
	// to the channel). Once registered, only the selector's readiness
	// callback ever calls attempt again (a timeout delivers without
	// retrying), so there is no concurrent attempt() race.
	armSelector := func() {
		if regErr := rt.selector.register(fd, events, ed); regErr != nil {
			ed.deliver(0, regErr)
			return
		}
		if timeout > 0 {
			deadline = rt.timerWheel.schedule(timeout, func() {
				won := ed.onTimeout()
				rt.selector.unregister(fd)
				rt.selector.wakeUp()
				if won && rt.metrics != nil {
					rt.metrics.RecordTimeout()
				}
			})
		}
	}
	ed = newEventData(op, attempt, armSelector, rt.scheduleIO, rt.metrics)

	if co == nil {
		b := newThreadBlocker()
		ed.waitCo.unsyncStore(b)
		if n2, err2 := attempt(); !isEAGAIN(err2) {
			ed.deliver(n2, err2)
		} else {
			armSelector()
		}
		b.Park()
	} else {
		co.suspend(ed.Subscribe)
	}

	rt.selector.unregister(fd)
	if deadline != nil {
		rt.timerWheel.cancel(deadline)
	}
	return ed.n, ed.err
}

// Conn wraps a raw file descriptor with coroutine-aware Read/Write, each
// call backed by its own eventData ticket (spec.md §6 "I/O API"). Read and
// Write tickets are entirely independent: a timeout on one never touches
// the other, so a half-duplex stall on one direction of a connection does
// not cancel in-flight traffic on the other.
type Conn struct {
	rt *Runtime
	fd int
}

// NewConn wraps fd for use with a Runtime. The caller owns fd's lifecycle
// up to Close.
func NewConn(rt *Runtime, fd int) *Conn {
	return &Conn{rt: rt, fd: fd}
}

// Read fills buf with at least one byte, suspending co (or parking the
// calling goroutine if co is nil) until data arrives, the deadline elapses,
// or an error occurs. A zero or negative timeout means no deadline.
func (c *Conn) Read(co *Coroutine, buf []byte, timeout time.Duration) (int, error) {
	return doAsyncIO(c.rt, co, c.fd, EventRead, timeout, "read", func() (int, error) {
		return readFD(c.fd, buf)
	})
}

// Write writes buf, suspending co (or parking the calling goroutine if co
// is nil) until the socket accepts data, the deadline elapses, or an error
// occurs.
func (c *Conn) Write(co *Coroutine, buf []byte, timeout time.Duration) (int, error) {
	return doAsyncIO(c.rt, co, c.fd, EventWrite, timeout, "write", func() (int, error) {
		return writeFD(c.fd, buf)
	})
}

// Close releases the underlying file descriptor.
func (c *Conn) Close() error {
	return closeFD(c.fd)
}

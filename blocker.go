package corovisor

// blockerKind distinguishes the two things a [Blocker] may wake: a
// coroutine managed by this runtime's scheduler, or a plain goroutine that
// called into the runtime from outside it (e.g. a non-coroutine caller of
// Receiver.Recv). Grounded on may's spsc.rs Blocker, which tags a
// NonZeroUsize handle with its low bit; Go's garbage collector forbids
// that trick on a live pointer, so the tag becomes an ordinary struct
// field instead (an accepted deviation, spec.md §9 Design Notes).
type blockerKind uint8

const (
	blockerCoroutine blockerKind = iota
	blockerThread
)

// Blocker is a single-use handle representing exactly one party waiting to
// be woken. It is consumed by unpark: calling it twice is a programming
// error and panics with InvariantViolation, matching spec.md §7's "dropping
// a coroutine-tagged Blocker" fatal-abort case.
type Blocker struct {
	kind   blockerKind
	co     *Coroutine
	thread chan struct{}
	used   bool
}

// newCoroutineBlocker wraps a coroutine awaiting resumption.
func newCoroutineBlocker(co *Coroutine) *Blocker {
	return &Blocker{kind: blockerCoroutine, co: co}
}

// newThreadBlocker wraps a plain goroutine parked outside the scheduler.
// The returned Blocker's Park method must be called by that goroutine
// before any call to unpark can be observed to complete it.
func newThreadBlocker() *Blocker {
	return &Blocker{kind: blockerThread, thread: make(chan struct{}, 1)}
}

// Park blocks the calling goroutine until unpark is called on this
// Blocker. Valid only for thread-kind blockers.
func (b *Blocker) Park() {
	if b.kind != blockerThread {
		fatalInvariant("Park called on a coroutine Blocker")
	}
	<-b.thread
}

// unpark wakes the waiting party exactly once, using the coroutine's own
// Runtime's ordinary schedule for a coroutine-kind Blocker. Calling it a
// second time on the same Blocker is a scheduler invariant violation.
// Callers waking a Blocker on behalf of the selector (readiness callbacks,
// I/O timeouts) use unparkVia with scheduleIO instead, per spec.md §4.1's
// schedule/schedule_io split.
func (b *Blocker) unpark() {
	b.unparkVia(nil)
}

// unparkVia wakes the waiting party exactly once. For a coroutine-kind
// Blocker, schedule is used to place the coroutine back onto a ready
// queue; a nil schedule falls back to the coroutine's Runtime's ordinary
// schedule (round-robin or current-worker preferred, see schedule).
// Thread-kind Blockers ignore schedule entirely — unparking one is always
// just a channel send. Calling unparkVia (or unpark) a second time on the
// same Blocker is a scheduler invariant violation.
func (b *Blocker) unparkVia(schedule func(*Coroutine)) {
	if b.used {
		fatalInvariant("Blocker unparked more than once")
	}
	b.used = true
	switch b.kind {
	case blockerCoroutine:
		if schedule != nil {
			schedule(b.co)
		} else {
			b.co.rt.schedule(b.co, nil)
		}
	case blockerThread:
		select {
		case b.thread <- struct{}{}:
		default:
		}
	}
}

package corovisor

import (
	"runtime/debug"
	"sync/atomic"
)

// Coroutine is a stackful, cooperatively-scheduled unit of execution
// (spec.md §3, §4.1). Each Coroutine is backed by exactly one goroutine,
// holding its own real, growable Go stack; the scheduler built in this
// package treats the save/restore half of a context switch as a solved
// problem delegated to Go's runtime (see doc.go "Context switch") and
// implements everything above that itself: run queues, work-stealing,
// park/unpark, the EventSource subscribe protocol and the timer wheel.
type Coroutine struct {
	id       uint64
	rt       *Runtime
	state    *fastState
	resumeCh chan struct{}
	backCh   chan coroSignal
	panicErr *PanicError

	// runningOn is the Worker currently resuming this Coroutine, or nil
	// between resumptions. Go has no goroutine-local storage to implement
	// spec.md §4.1's current_worker() as an ambient lookup, so — consistent
	// with every other "am I a coroutine/which worker" check in this
	// package (see DESIGN.md) — callers thread their own *Coroutine
	// explicitly and currentWorker resolves it from this field.
	runningOn atomic.Pointer[Worker]

	// completionCh closes only once state is Done and panicErr (if any)
	// has been recorded, giving JoinHandle.Join a race-free signal that is
	// independent of whether any Worker has yet processed the
	// corresponding signalDone.
	completionCh chan struct{}
}

type coroSignalKind uint8

const (
	signalYield coroSignalKind = iota
	signalSuspend
	signalDone
)

// coroSignal is what a Coroutine's backing goroutine sends to hand control
// back to whichever Worker resumed it.
type coroSignal struct {
	kind      coroSignalKind
	subscribe func(*Coroutine)
}

var coroIDSeq atomic.Uint64

func newCoroutine(rt *Runtime, body func(*Coroutine)) *Coroutine {
	co := &Coroutine{
		id:       coroIDSeq.Add(1),
		rt:       rt,
		state:    newFastState(StateReady),
		resumeCh:     make(chan struct{}),
		backCh:       make(chan coroSignal),
		completionCh: make(chan struct{}),
	}
	go co.loop(body)
	return co
}

// loop is the coroutine's backing goroutine. It blocks immediately on
// resumeCh: a Coroutine does nothing until a Worker resumes it the first
// time, matching the Ready state (spec.md §4.1).
func (co *Coroutine) loop(body func(*Coroutine)) {
	<-co.resumeCh
	defer func() {
		if r := recover(); r != nil {
			co.panicErr = &PanicError{Value: r, Stack: debug.Stack()}
		}
		co.state.Store(StateDone)
		close(co.completionCh)
		co.backCh <- coroSignal{kind: signalDone}
	}()
	body(co)
}

// YieldNow cooperatively hands control back to the Worker running this
// coroutine, without blocking on any EventSource. The coroutine is
// re-enqueued as Ready and may resume on any worker.
func (co *Coroutine) YieldNow() {
	co.state.Store(StateYielded)
	co.backCh <- coroSignal{kind: signalYield}
	<-co.resumeCh
}

// suspend hands control back to the Worker and, once this coroutine's
// backing goroutine is fully parked on resumeCh, invokes subscribe on the
// Worker's own goroutine. This ordering is exactly what the EventSource
// subscribe protocol (spec.md §4.2) requires: subscribe may safely publish
// this Coroutine into a waiter slot, because by the time it runs, the
// coroutine is guaranteed blocked and cannot itself observe or race the
// publish.
func (co *Coroutine) suspend(subscribe func(*Coroutine)) {
	co.state.Store(StateSuspended)
	co.backCh <- coroSignal{kind: signalSuspend, subscribe: subscribe}
	<-co.resumeCh
}

// resume hands the coroutine to w and waits for it to yield, suspend, or
// finish. Called only by a Worker's run loop. w is recorded in runningOn
// for the duration of the run so currentWorker can resolve it from
// inside the coroutine's own body.
func (co *Coroutine) resume(w *Worker) coroSignal {
	co.runningOn.Store(w)
	co.state.Store(StateRunning)
	co.resumeCh <- struct{}{}
	sig := <-co.backCh
	co.runningOn.Store(nil)
	return sig
}

package corovisor

import (
	"runtime"
	"sync/atomic"
)

// EventSource is anything a Coroutine can suspend itself on: a channel, an
// I/O ticket, or a timer. The subscribe protocol (spec.md §4.2) is:
//
//  1. swap-out: the coroutine hands itself to the scheduler via
//     Coroutine.suspend, which guarantees the coroutine is fully parked
//     before Subscribe runs.
//  2. subscribe: Subscribe publishes the Coroutine into a waiter slot,
//     then re-checks the wait condition. If it is already satisfied,
//     Subscribe itself takes the coroutine back out and resumes it,
//     avoiding the lost-wakeup window between "condition became true" and
//     "waiter published".
//
// Implementations must guard against being dropped (falling out of scope,
// e.g. a channel's last Sender going away) while Subscribe is still
// running on another goroutine; see delayedDrop.
type EventSource interface {
	Subscribe(co *Coroutine)
}

// delayedDrop lets an EventSource's owner block its own teardown until any
// in-flight Subscribe call has finished publishing a waiter, closing the
// race where drop_chan (spec's terminology) unparks a Blocker concurrently
// with subscribe still being mid-flight. Grounded on spsc.rs's
// Park::wait_kernel / DropGuard.
type delayedDrop struct {
	inKernel atomic.Bool
}

func newDelayedDrop() *delayedDrop {
	return &delayedDrop{}
}

// enter marks a Subscribe call as in-flight; release must be called
// (typically via defer) before Subscribe returns.
func (d *delayedDrop) enter() { d.inKernel.Store(true) }

// release marks the in-flight Subscribe call as finished.
func (d *delayedDrop) release() { d.inKernel.Store(false) }

// awaitRelease busy-yields until no Subscribe call is in flight. Called
// from teardown paths (e.g. the last Sender dropping) before they may
// safely assume the waiter slot will not be written to again.
func (d *delayedDrop) awaitRelease() {
	for d.inKernel.Load() {
		runtime.Gosched()
	}
}

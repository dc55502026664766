package corovisor

import (
	"sync/atomic"
)

// CoroState is the state of a [Coroutine] (spec.md §4.1 "State machine of a
// coroutine").
//
//	Ready → Running → (Yielded|Suspended|Done)
//	Yielded → Ready     (explicit yield)
//	Suspended → Ready   (external wake: schedule/scheduleIO)
//	Done is terminal: triggers join fulfillment and stack (goroutine) recycle.
type CoroState uint64

const (
	// StateReady indicates the coroutine is enqueued and waiting for a worker.
	StateReady CoroState = 0
	// StateRunning indicates the coroutine is executing on a worker.
	StateRunning CoroState = 1
	// StateYielded indicates the coroutine called YieldNow and is awaiting
	// requeue.
	StateYielded CoroState = 2
	// StateSuspended indicates the coroutine has handed itself to an
	// EventSource and is not present in any ready queue.
	StateSuspended CoroState = 3
	// StateDone is terminal.
	StateDone CoroState = 4
)

// String returns a human-readable representation of the state.
func (s CoroState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateYielded:
		return "Yielded"
	case StateSuspended:
		return "Suspended"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding, used for
// Coroutine status so diagnostics never need a mutex.
type fastState struct { // betteralign:ignore
	_ [sizeOfCacheLine]byte
	v atomic.Uint64
	_ [sizeOfCacheLine - sizeOfAtomicUint64]byte
}

func newFastState(initial CoroState) *fastState {
	s := &fastState{}
	s.v.Store(uint64(initial))
	return s
}

func (s *fastState) Load() CoroState {
	return CoroState(s.v.Load())
}

func (s *fastState) Store(state CoroState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to another.
func (s *fastState) TryTransition(from, to CoroState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// Package corovisor provides the error taxonomy for coroutine, selector and
// channel operations. Errors are never raised as scheduler control flow
// (spec.md §7); they are always materialized as data: a parameter slot value,
// a channel result, or a join outcome.
package corovisor

import (
	"errors"
	"fmt"
)

// TimeoutError is the result an I/O ticket delivers when its timer fires
// before a readiness callback has delivered a result (see
// eventData.onTimeout). No OS cancel is issued; the timer callback
// delivers it directly.
type TimeoutError struct {
	Cause error
	Op    string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Op == "" {
		return "corovisor: operation timed out"
	}
	return fmt.Sprintf("corovisor: %s timed out", e.Op)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ErrDisconnected is returned by Receiver.Recv/TryRecv once the sender has
// dropped and the queue has drained (spec.md §4.5, §8 scenario 3).
var ErrDisconnected = errors.New("corovisor: channel disconnected")

// ErrEmpty is returned by Receiver.TryRecv when the queue currently has no
// data but the sender side is still alive.
var ErrEmpty = errors.New("corovisor: channel empty")

// ErrPortDropped is returned by Sender.Send once the receiver has been
// dropped (spec.md §4.5, §8 scenario 4). Send returns only this error; it
// does not hand the unsent value back.
var ErrPortDropped = errors.New("corovisor: receiver dropped")

// ErrRuntimeClosed is returned by Spawn and SpawnFrom when called after
// Runtime.Close.
var ErrRuntimeClosed = errors.New("corovisor: runtime closed")

// PanicError wraps a value recovered from a panicking coroutine. It is the
// error outcome carried by a JoinHandle (spec.md §4.1 "Failure semantics",
// §7 "Panic in coroutine").
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("corovisor: coroutine panicked: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type,
// enabling [errors.Is]/[errors.As] through the cause chain.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// InvariantViolation is raised (as a fatal abort, not a recoverable error)
// when a primitive detects a broken scheduler invariant: a Blocker
// unparked a second time, or Park called on a coroutine-kind Blocker
// (spec.md §3 "Blocker", §7). In those cases it is passed to panic() and is
// expected to crash the process, since it indicates a programming error in
// a primitive rather than a recoverable runtime condition. The option
// constructors in config.go also use it as an ordinary error value, which
// New returns when an option is given an invalid argument.
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string {
	return "corovisor: scheduler invariant violated: " + e.Detail
}

func fatalInvariant(detail string) {
	panic(&InvariantViolation{Detail: detail})
}

// WrapError wraps an error with a message and optional cause chain, so the
// result satisfies errors.Is(result, cause) == true.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}

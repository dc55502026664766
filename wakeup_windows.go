//go:build windows

package corovisor

import "golang.org/x/sys/windows"

// wakeHandle interrupts a parked GetQueuedCompletionStatus by posting a
// zero-byte completion with a nil overlapped pointer, the standard IOCP
// wake idiom (grounded in iocp.rs's wake-via-PostQueuedCompletionStatus
// pattern). Unlike the eventfd/pipe backends, no separate fd pair is
// needed: the IOCP handle itself is both registration port and wake
// target.
type wakeHandle struct {
	iocp windows.Handle
}

func newWakeHandleForPort(iocp windows.Handle) *wakeHandle {
	return &wakeHandle{iocp: iocp}
}

func (w *wakeHandle) notify() error {
	return windows.PostQueuedCompletionStatus(w.iocp, 0, 0, nil)
}

// drain is a no-op on Windows: PostQueuedCompletionStatus does not leave
// anything to be consumed beyond the single GetQueuedCompletionStatus
// return it already satisfied.
func (w *wakeHandle) drain() {}

func (w *wakeHandle) close() error { return nil }

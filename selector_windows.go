//go:build windows

package corovisor

import (
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// ovlWrapper embeds windows.Overlapped as its first field so a completion's
// *windows.Overlapped pointer can be cast straight back to *ovlWrapper,
// recovering the eventData the operation was issued for. This mirrors the
// pattern used throughout Go's own net package for overlapped I/O.
type ovlWrapper struct {
	ov windows.Overlapped
	ed *eventData
}

// newOverlappedFor allocates an overlapped I/O request tagged with ed, for
// passing to ReadFile/WriteFile/WSARecv/WSASend. Nothing in this package
// calls it yet: netio.go has no overlapped read/write path on Windows.
func newOverlappedFor(ed *eventData) *windows.Overlapped {
	w := &ovlWrapper{ed: ed}
	return &w.ov
}

func overlappedEventData(ov *windows.Overlapped) *eventData {
	return (*ovlWrapper)(unsafe.Pointer(ov)).ed
}

// selector is the Windows IOCP backend. Unlike epoll/kqueue this is
// completion-based rather than readiness-based: register associates a
// handle with the completion port once, and each I/O attempt is an
// overlapped operation tagged with its own eventData via ovlWrapper, so
// poll needs no per-fd table at all.
type selector struct {
	iocp   windows.Handle
	wake   *wakeHandle
	closed atomic.Bool
}

func newSelector() (*selector, error) {
	iocp, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	wh := newWakeHandleForPort(iocp)
	return &selector{iocp: iocp, wake: wh}, nil
}

// register associates a raw handle with the completion port. ed is unused
// on Windows (kept for interface symmetry with the readiness-based
// backends): completion identity travels with each overlapped operation,
// not with the handle itself.
func (s *selector) register(fd int, _ IOEvents, _ *eventData) error {
	_, err := windows.CreateIoCompletionPort(windows.Handle(fd), s.iocp, 0, 0)
	return err
}

// unregister is a no-op on Windows: closing the handle removes it from the
// port automatically.
func (s *selector) unregister(fd int) error {
	return nil
}

// poll waits for the next completion packet and delivers it to the
// eventData tagged on its overlapped operation.
func (s *selector) poll(timeout time.Duration) error {
	if s.closed.Load() {
		return ErrSelectorClosed
	}

	var timeoutMs *uint32
	if timeout >= 0 {
		t := uint32(timeout.Milliseconds())
		timeoutMs = &t
	}

	var bytes uint32
	var key uintptr
	var ov *windows.Overlapped
	err := windows.GetQueuedCompletionStatus(s.iocp, &bytes, &key, &ov, timeoutMs)
	if ov == nil {
		if err != nil {
			if errno, ok := err.(syscall.Errno); ok {
				if errno == windows.WAIT_TIMEOUT {
					return nil
				}
				if errno == windows.ERROR_ABANDONED_WAIT_0 || errno == windows.ERROR_INVALID_HANDLE {
					return ErrSelectorClosed
				}
			}
			return err
		}
		// Wake-up notification posted via PostQueuedCompletionStatus.
		return nil
	}

	ed := overlappedEventData(ov)
	if ed == nil {
		return nil
	}
	if err != nil {
		ed.deliver(int(bytes), err)
		return nil
	}
	ed.deliver(int(bytes), nil)
	return nil
}

func (s *selector) wakeUp() error {
	return s.wake.notify()
}

func (s *selector) close() error {
	s.closed.Store(true)
	s.wake.close()
	return windows.CloseHandle(s.iocp)
}

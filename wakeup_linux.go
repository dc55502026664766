//go:build linux

package corovisor

import (
	"golang.org/x/sys/unix"
)

const (
	efdCloexec  = unix.EFD_CLOEXEC
	efdNonblock = unix.EFD_NONBLOCK
)

// wakeHandle is the cross-thread mechanism a selector uses to interrupt a
// parked poll from another goroutine (spec.md §4.3: "deliver a wake exactly
// once"). On Linux it is a single eventfd used as both the notify and the
// drain end.
type wakeHandle struct {
	fd int
}

func newWakeHandle() (*wakeHandle, error) {
	fd, err := unix.Eventfd(0, efdCloexec|efdNonblock)
	if err != nil {
		return nil, err
	}
	return &wakeHandle{fd: fd}, nil
}

// notify wakes a parked epoll_wait exactly once, coalescing concurrent
// callers: eventfd accumulates writes into a single counter.
func (w *wakeHandle) notify() error {
	var buf [8]byte
	buf[7] = 1
	_, err := unix.Write(w.fd, buf[:])
	if err == unix.EAGAIN {
		return nil
	}
	return err
}

// drain consumes the accumulated eventfd counter after a wake delivery.
func (w *wakeHandle) drain() {
	var buf [8]byte
	for {
		_, err := unix.Read(w.fd, buf[:])
		if err != nil {
			return
		}
	}
}

func (w *wakeHandle) close() error {
	return unix.Close(w.fd)
}

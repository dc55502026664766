//go:build darwin

package corovisor

import (
	"syscall"
)

// wakeHandle is the cross-thread mechanism a selector uses to interrupt a
// parked poll from another goroutine. On Darwin/BSD it is a self-pipe
// registered with kqueue under EVFILT_READ, since EVFILT_USER registration
// varies enough across BSD variants that the self-pipe trick is the more
// portable choice (grounded in the same approach the teacher's poller used
// for non-Linux readiness backends).
type wakeHandle struct {
	readFD  int
	writeFD int
}

func newWakeHandle() (*wakeHandle, error) {
	var fds [2]int
	if err := syscall.Pipe(fds[:]); err != nil {
		return nil, err
	}
	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])
	if err := syscall.SetNonblock(fds[0], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return nil, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
		return nil, err
	}
	return &wakeHandle{readFD: fds[0], writeFD: fds[1]}, nil
}

func (w *wakeHandle) notify() error {
	_, err := syscall.Write(w.writeFD, []byte{0})
	if err == syscall.EAGAIN {
		return nil
	}
	return err
}

func (w *wakeHandle) drain() {
	var buf [64]byte
	for {
		_, err := syscall.Read(w.readFD, buf[:])
		if err != nil {
			return
		}
	}
}

func (w *wakeHandle) close() error {
	_ = syscall.Close(w.writeFD)
	return syscall.Close(w.readFD)
}

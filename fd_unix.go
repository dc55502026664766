//go:build linux || darwin

package corovisor

import (
	"golang.org/x/sys/unix"
)

// errEAGAIN is the sentinel netio.go checks to decide whether to park a
// coroutine on the selector rather than surfacing an OS error.
var errEAGAIN = unix.EAGAIN

// closeFD closes a raw file descriptor on Unix systems.
func closeFD(fd int) error {
	return unix.Close(fd)
}

// readFD attempts a single non-blocking read, mirroring the EAGAIN/EINTR
// retry shape used throughout the readiness-based selectors.
func readFD(fd int, buf []byte) (int, error) {
	return unix.Read(fd, buf)
}

// writeFD attempts a single non-blocking write.
func writeFD(fd int, buf []byte) (int, error) {
	return unix.Write(fd, buf)
}

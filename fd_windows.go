//go:build windows

package corovisor

import "errors"

// errEAGAIN is never actually returned by readFD/writeFD on Windows (they
// are placeholders, see below), but the sentinel must exist so the
// isEAGAIN check used by netio.go compiles on every platform.
var errEAGAIN = errors.New("corovisor: would block")

// closeFD closes nothing on Windows: Conn.Close reaches it, and it returns
// an error for any non-negative fd.
func closeFD(fd int) error {
	if fd >= 0 {
		return errors.New("corovisor: closeFD not supported on Windows")
	}
	return nil
}

// readFD and writeFD are placeholders kept for build-tag symmetry with
// fd_unix.go: Conn.Read/Write call them on Windows too, and they return
// (0, nil) without touching the handle. No overlapped ReadFile/WriteFile
// path is implemented.
func readFD(fd int, buf []byte) (int, error)  { return 0, nil }
func writeFD(fd int, buf []byte) (int, error) { return 0, nil }

//go:build linux

package corovisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func newTestSocketPair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

// Scenario 6 (spec): a read with a 50ms timeout on a socket nothing is
// written to resumes with a TimeoutError once the timeout has elapsed (no
// earlier than 50ms, well before 200ms); a subsequent read succeeds once
// data arrives.
func TestConnReadTimeout(t *testing.T) {
	rt := newTestRuntime(t)

	readFd, writeFd := newTestSocketPair(t)
	conn := NewConn(rt, readFd)

	buf := make([]byte, 16)
	start := time.Now()
	n, err := conn.Read(nil, buf, 50*time.Millisecond)
	elapsed := time.Since(start)

	require.Equal(t, 0, n)
	require.Error(t, err)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	require.Less(t, elapsed, 200*time.Millisecond)

	_, writeErr := unix.Write(writeFd, []byte("hi"))
	require.NoError(t, writeErr)

	n, err = conn.Read(nil, buf, time.Second)
	require.NoError(t, err)
	require.Equal(t, "hi", string(buf[:n]))
}

func TestConnReadImmediatelyAvailable(t *testing.T) {
	rt := newTestRuntime(t)

	readFd, writeFd := newTestSocketPair(t)
	conn := NewConn(rt, readFd)

	_, err := unix.Write(writeFd, []byte("ready"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := conn.Read(nil, buf, time.Second)
	require.NoError(t, err)
	require.Equal(t, "ready", string(buf[:n]))
}

func TestConnWriteThenRead(t *testing.T) {
	rt := newTestRuntime(t)

	fdA, fdB := newTestSocketPair(t)
	connA := NewConn(rt, fdA)
	connB := NewConn(rt, fdB)

	n, err := connA.Write(nil, []byte("payload"), time.Second)
	require.NoError(t, err)
	require.Equal(t, len("payload"), n)

	buf := make([]byte, 16)
	n, err = connB.Read(nil, buf, time.Second)
	require.NoError(t, err)
	require.Equal(t, "payload", string(buf[:n]))
}

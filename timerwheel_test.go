package corovisor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerWheelFiresInOrder(t *testing.T) {
	tw := newTimerWheel(time.Millisecond)

	var fired []int
	var mu atomic.Int32
	record := func(n int) func() {
		return func() {
			mu.Add(1)
			fired = append(fired, n)
		}
	}

	tw.schedule(30*time.Millisecond, record(3))
	tw.schedule(10*time.Millisecond, record(1))
	tw.schedule(20*time.Millisecond, record(2))
	tw.merge()

	require.Eventually(t, func() bool {
		tw.fireExpired(time.Now())
		return mu.Load() == 3
	}, time.Second, 2*time.Millisecond)

	require.Equal(t, []int{1, 2, 3}, fired)
}

func TestTimerWheelCancelBeforeMerge(t *testing.T) {
	tw := newTimerWheel(time.Millisecond)

	fired := false
	e := tw.schedule(5*time.Millisecond, func() { fired = true })
	tw.cancel(e)
	tw.merge()

	time.Sleep(10 * time.Millisecond)
	tw.fireExpired(time.Now())

	require.False(t, fired)
}

func TestTimerWheelCancelAfterMerge(t *testing.T) {
	tw := newTimerWheel(time.Millisecond)

	fired := false
	e := tw.schedule(50*time.Millisecond, func() { fired = true })
	tw.merge()
	tw.cancel(e)

	time.Sleep(60 * time.Millisecond)
	tw.fireExpired(time.Now())

	require.False(t, fired)
}

func TestTimerWheelNextDeadline(t *testing.T) {
	tw := newTimerWheel(time.Millisecond)

	_, ok := tw.nextDeadline(time.Now())
	require.False(t, ok)

	tw.schedule(100*time.Millisecond, func() {})
	tw.merge()

	d, ok := tw.nextDeadline(time.Now())
	require.True(t, ok)
	require.Greater(t, d, time.Duration(0))
	require.LessOrEqual(t, d, 100*time.Millisecond)
}

package corovisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := New(WithWorkerCount(2))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = rt.Close()
	})
	return rt
}

func TestSpawnJoinReturnsValue(t *testing.T) {
	rt := newTestRuntime(t)

	jh, err := Spawn(rt, func(co *Coroutine) int {
		return 42
	})
	require.NoError(t, err)

	v, err := jh.Join()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestSpawnJoinObservesPanic(t *testing.T) {
	rt := newTestRuntime(t)

	jh, err := Spawn(rt, func(co *Coroutine) int {
		panic("boom")
	})
	require.NoError(t, err)

	_, err = jh.Join()
	require.Error(t, err)

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	require.Equal(t, "boom", panicErr.Value)
}

func TestSpawnAfterCloseFails(t *testing.T) {
	rt, err := New(WithWorkerCount(1))
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	_, err = Spawn(rt, func(co *Coroutine) int { return 0 })
	require.ErrorIs(t, err, ErrRuntimeClosed)
}

func TestYieldNowReschedules(t *testing.T) {
	rt := newTestRuntime(t)

	jh, err := Spawn(rt, func(co *Coroutine) int {
		sum := 0
		for i := 0; i < 5; i++ {
			sum += i
			co.YieldNow()
		}
		return sum
	})
	require.NoError(t, err)

	v, err := jh.Join()
	require.NoError(t, err)
	require.Equal(t, 10, v)
}

// Scenario 2 (spec): an OS thread sends 1..=40, a coroutine receives 40
// values in order.
func TestChannelCrossRuntimeOrdering(t *testing.T) {
	rt := newTestRuntime(t)

	tx, rx := NewChannel[int]()

	jh, err := Spawn(rt, func(co *Coroutine) []int {
		got := make([]int, 0, 40)
		for i := 0; i < 40; i++ {
			v, err := rx.Recv(co)
			require.NoError(t, err)
			got = append(got, v)
		}
		return got
	})
	require.NoError(t, err)

	go func() {
		for i := 1; i <= 40; i++ {
			_ = tx.Send(i)
		}
	}()

	got, err := jh.Join()
	require.NoError(t, err)

	want := make([]int, 40)
	for i := range want {
		want[i] = i + 1
	}
	require.Equal(t, want, got)
}

func TestCloseIsIdempotent(t *testing.T) {
	rt, err := New(WithWorkerCount(1))
	require.NoError(t, err)

	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())
}

func TestMetricsDisabledByDefault(t *testing.T) {
	rt := newTestRuntime(t)
	require.Nil(t, rt.Metrics())
}

func TestCurrentWorkerNilOutsideCoroutine(t *testing.T) {
	require.Nil(t, currentWorker(nil))
}

func TestSpawnFromPrefersCallersWorker(t *testing.T) {
	rt, err := New(WithWorkerCount(2), WithMetrics(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	// Wait until both workers have parked once: the idle peer then stays
	// parked (nothing is pushed onto its queue) and cannot steal the child
	// before the parent's worker pops it.
	require.Eventually(t, func() bool {
		return rt.Metrics().ParkCount() >= 2
	}, time.Second, time.Millisecond)

	type spawned struct {
		parent *Worker
		child  *JoinHandle[*Worker]
	}
	// The parent returns without joining the child: joining inside the
	// parent would block the parent's worker with the child queued on it.
	jh, err := Spawn(rt, func(co *Coroutine) spawned {
		child, err := SpawnFrom(rt, co, func(childCo *Coroutine) *Worker {
			return currentWorker(childCo)
		})
		require.NoError(t, err)
		return spawned{parent: currentWorker(co), child: child}
	})
	require.NoError(t, err)

	got, err := jh.Join()
	require.NoError(t, err)
	require.NotNil(t, got.parent)

	childWorker, err := got.child.Join()
	require.NoError(t, err)
	require.Same(t, got.parent, childWorker)
}

func TestMetricsEnabled(t *testing.T) {
	rt, err := New(WithWorkerCount(1), WithMetrics(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	require.NotNil(t, rt.Metrics())

	jh, err := Spawn(rt, func(co *Coroutine) int { return 1 })
	require.NoError(t, err)
	_, err = jh.Join()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return rt.Metrics().SpawnRate.TPS() >= 0
	}, time.Second, 10*time.Millisecond)
}

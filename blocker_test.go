package corovisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThreadBlockerParkUnpark(t *testing.T) {
	b := newThreadBlocker()

	done := make(chan struct{})
	go func() {
		b.Park()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Park returned before unpark")
	default:
	}

	b.unpark()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Park did not return after unpark")
	}
}

func TestBlockerDoubleUnparkPanics(t *testing.T) {
	b := newThreadBlocker()
	b.unpark()

	require.Panics(t, func() {
		b.unpark()
	})
}

func TestBlockerParkOnCoroutineKindPanics(t *testing.T) {
	b := &Blocker{kind: blockerCoroutine}
	require.Panics(t, func() {
		b.Park()
	})
}

func TestWaiterSlotSwapTake(t *testing.T) {
	var slot waiterSlot

	require.Nil(t, slot.take())

	b1 := newThreadBlocker()
	slot.unsyncStore(b1)

	old := slot.swap(nil)
	require.Same(t, b1, old)
	require.Nil(t, slot.take())

	b2 := newThreadBlocker()
	slot.unsyncStore(b2)
	got := slot.take()
	require.Same(t, b2, got)
	require.Nil(t, slot.take(), "take must clear the slot")
}

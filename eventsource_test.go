package corovisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDelayedDropBlocksUntilReleased(t *testing.T) {
	d := newDelayedDrop()
	d.enter()

	released := make(chan struct{})
	go func() {
		d.awaitRelease()
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("awaitRelease returned before release")
	case <-time.After(10 * time.Millisecond):
	}

	d.release()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("awaitRelease did not return after release")
	}
}

func TestDelayedDropStartsReleased(t *testing.T) {
	d := newDelayedDrop()
	require.False(t, d.inKernel.Load(), "a fresh delayedDrop must not start in-flight")
}

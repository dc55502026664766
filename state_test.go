package corovisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoroStateString(t *testing.T) {
	cases := map[CoroState]string{
		StateReady:     "Ready",
		StateRunning:   "Running",
		StateYielded:   "Yielded",
		StateSuspended: "Suspended",
		StateDone:      "Done",
		CoroState(99):  "Unknown",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}

func TestFastStateLoadStore(t *testing.T) {
	s := newFastState(StateReady)
	require.Equal(t, StateReady, s.Load())

	s.Store(StateRunning)
	require.Equal(t, StateRunning, s.Load())
}

func TestFastStateTryTransition(t *testing.T) {
	s := newFastState(StateReady)

	require.True(t, s.TryTransition(StateReady, StateRunning))
	require.Equal(t, StateRunning, s.Load())

	require.False(t, s.TryTransition(StateReady, StateDone), "stale from-state must not transition")
	require.Equal(t, StateRunning, s.Load())
}

package corovisor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSPSCRingPushPopOrder(t *testing.T) {
	q := newSPSCRing[int](4)

	require.True(t, q.isEmpty())

	for i := 0; i < 3; i++ {
		q.push(i)
	}
	require.False(t, q.isEmpty())

	for i := 0; i < 3; i++ {
		v, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	require.True(t, q.isEmpty())

	_, ok := q.pop()
	require.False(t, ok)
}

func TestSPSCRingGrowsPastInitialCapacity(t *testing.T) {
	q := newSPSCRing[int](2)

	const n = 100
	for i := 0; i < n; i++ {
		q.push(i)
	}

	for i := 0; i < n; i++ {
		v, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{0: 2, 1: 2, 2: 2, 3: 4, 4: 4, 5: 8, 16: 16, 17: 32}
	for in, want := range cases {
		require.Equal(t, want, nextPow2(in), "nextPow2(%d)", in)
	}
}

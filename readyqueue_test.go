package corovisor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadyQueuePushPopFIFO(t *testing.T) {
	q := newReadyQueue()

	cos := make([]*Coroutine, 5)
	for i := range cos {
		cos[i] = &Coroutine{id: uint64(i)}
		q.Push(cos[i])
	}
	require.Equal(t, 5, q.Length())

	for i := range cos {
		co, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, cos[i], co)
	}
	require.Equal(t, 0, q.Length())

	_, ok := q.Pop()
	require.False(t, ok)
}

func TestReadyQueueSpansMultipleChunks(t *testing.T) {
	q := newReadyQueue()

	const n = chunkSize*2 + 7
	for i := 0; i < n; i++ {
		q.Push(&Coroutine{id: uint64(i)})
	}
	require.Equal(t, n, q.Length())

	for i := 0; i < n; i++ {
		co, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, uint64(i), co.id)
	}
}

func TestReadyQueueStealHalf(t *testing.T) {
	q := newReadyQueue()
	for i := 0; i < 10; i++ {
		q.Push(&Coroutine{id: uint64(i)})
	}

	stolen := q.StealHalf()
	require.Len(t, stolen, 5)
	require.Equal(t, 5, q.Length())

	for i, co := range stolen {
		require.Equal(t, uint64(i), co.id)
	}
}

func TestReadyQueueStealHalfFromEmpty(t *testing.T) {
	q := newReadyQueue()
	require.Nil(t, q.StealHalf())
}

func TestReadyQueueStealHalfSingleElement(t *testing.T) {
	q := newReadyQueue()
	q.Push(&Coroutine{id: 1})

	stolen := q.StealHalf()
	require.Len(t, stolen, 1)
	require.Equal(t, 0, q.Length())
}

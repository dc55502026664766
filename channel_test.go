package corovisor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 1 (spec): single-threaded smoke — send 1, recv 1.
func TestChannelSingleThreadedSmoke(t *testing.T) {
	tx, rx := NewChannel[int]()

	require.NoError(t, tx.Send(1))

	v, err := rx.Recv(nil)
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestChannelTryRecvEmpty(t *testing.T) {
	_, rx := NewChannel[int]()

	_, err := rx.TryRecv()
	require.ErrorIs(t, err, ErrEmpty)
}

// Scenario 3 (spec): sender dropped — recv returns an error, try_recv
// returns ErrDisconnected.
func TestChannelDisconnectAfterSenderClose(t *testing.T) {
	tx, rx := NewChannel[int]()

	require.NoError(t, tx.Send(1))
	tx.Close()

	v, err := rx.Recv(nil)
	require.NoError(t, err)
	require.Equal(t, 1, v, "buffered value must still be observed before disconnect")

	_, err = rx.Recv(nil)
	require.ErrorIs(t, err, ErrDisconnected)

	_, err = rx.TryRecv()
	require.ErrorIs(t, err, ErrDisconnected)
}

// Scenario 4 (spec): receiver dropped — send returns ErrPortDropped.
func TestChannelPortGone(t *testing.T) {
	tx, rx := NewChannel[int]()
	rx.Close()

	err := tx.Send(1)
	require.ErrorIs(t, err, ErrPortDropped)
}

func TestChannelRecvBlocksUntilSend(t *testing.T) {
	tx, rx := NewChannel[string]()

	resultCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		v, err := rx.Recv(nil)
		errCh <- err
		resultCh <- v
	}()

	require.NoError(t, tx.Send("hello"))

	require.NoError(t, <-errCh)
	require.Equal(t, "hello", <-resultCh)
}

// Scenario 5 (spec): stress FIFO — 0..10000 sent from one goroutine,
// received in order by another.
func TestChannelStressFIFO(t *testing.T) {
	const n = 10000
	tx, rx := NewChannel[int]()

	go func() {
		for i := 0; i < n; i++ {
			_ = tx.Send(i)
		}
		tx.Close()
	}()

	for i := 0; i < n; i++ {
		v, err := rx.Recv(nil)
		require.NoError(t, err)
		require.Equal(t, i, v)
	}

	_, err := rx.Recv(nil)
	require.ErrorIs(t, err, ErrDisconnected)
}

func TestChannelRangeStopsOnDisconnect(t *testing.T) {
	tx, rx := NewChannel[int]()

	go func() {
		for i := 0; i < 5; i++ {
			_ = tx.Send(i)
		}
		tx.Close()
	}()

	var got []int
	rx.Range(nil, func(v int) {
		got = append(got, v)
	})

	require.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

package slip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	q := NewQueue()
	_, ok := q.Pop()
	require.False(t, ok)
	require.Zero(t, q.Len())

	q.Push(Packet{1})
	q.Push(Packet{2})
	q.Push(Packet{})
	require.Equal(t, 3, q.Len())
	select {
	case <-q.Ready():
	default:
		t.Fatal("ready not signaled")
	}

	for _, expect := range []Packet{{1}, {2}, {}} {
		pkt, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, expect, pkt)
	}
	_, ok = q.Pop()
	require.False(t, ok)
}

func TestQueueZeroValue(t *testing.T) {
	var q Queue
	q.Push(Packet{7})
	pkt, err := q.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, Packet{7}, pkt)
}

func TestQueueWait(t *testing.T) {
	q := NewQueue()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Push(Packet{1})
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	pkt, err := q.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, Packet{1}, pkt)
}

func TestQueueWaitCanceled(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := q.Wait(ctx)
	require.Equal(t, context.DeadlineExceeded, err)
}

package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingBufferFIFO(t *testing.T) {
	var r RingBuffer[int]
	require.True(t, r.Empty())
	require.Zero(t, r.Len())
	for i := 0; i < 100; i++ {
		r.PushBack(i)
	}
	require.Equal(t, 100, r.Len())
	require.Equal(t, 0, r.PeekFront())
	for i := 0; i < 100; i++ {
		require.Equal(t, i, r.PopFront())
	}
	require.True(t, r.Empty())
}

func TestRingBufferWrapAround(t *testing.T) {
	var r RingBuffer[int]
	r.Init(4)
	for i := 0; i < 3; i++ {
		r.PushBack(i)
	}
	require.Equal(t, 0, r.PopFront())
	require.Equal(t, 1, r.PopFront())
	// tail wraps around the backing slice
	for i := 3; i < 7; i++ {
		r.PushBack(i)
	}
	for i := 2; i < 7; i++ {
		require.Equal(t, i, r.PopFront())
	}
}

func TestRingBufferPanicsOnEmpty(t *testing.T) {
	var r RingBuffer[string]
	require.Panics(t, func() { r.PopFront() })
	require.Panics(t, func() { r.PeekFront() })
}

func TestRingBufferClear(t *testing.T) {
	var r RingBuffer[int]
	for i := 0; i < 5; i++ {
		r.PushBack(i)
	}
	r.Clear()
	require.True(t, r.Empty())
	r.PushBack(42)
	require.Equal(t, 42, r.PopFront())
}

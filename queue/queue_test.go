package queue

import (
	"cmp"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type score float32

func (s score) CompareTo(o score) int { return cmp.Compare(s, o) }

func drain(t *testing.T, h *Heap[score]) []score {
	t.Helper()
	out := make([]score, 0, h.Len())
	for h.Len() > 0 {
		v, err := h.Pop()
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestHeap_OrderingLaw(t *testing.T) {
	const n = 200
	rng := rand.New(rand.NewSource(7))
	perm := rng.Perm(n)

	t.Run("max pops descending", func(t *testing.T) {
		h, err := New[score](n, Max)
		require.NoError(t, err)
		for _, v := range perm {
			require.NoError(t, h.Push(score(v)))
		}
		got := drain(t, h)
		require.Len(t, got, n)
		for i := 1; i < n; i++ {
			assert.Greater(t, got[i-1], got[i])
		}
	})

	t.Run("min pops ascending", func(t *testing.T) {
		h, err := New[score](n, Min)
		require.NoError(t, err)
		for _, v := range perm {
			require.NoError(t, h.Push(score(v)))
		}
		got := drain(t, h)
		require.Len(t, got, n)
		for i := 1; i < n; i++ {
			assert.Less(t, got[i-1], got[i])
		}
	})
}

func TestHeap_CapacityErrors(t *testing.T) {
	_, err := New[score](-1, Min)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	h, err := New[score](2, Max)
	require.NoError(t, err)

	_, err = h.Pop()
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = h.Peek()
	assert.ErrorIs(t, err, ErrEmpty)

	require.NoError(t, h.Push(1))
	require.NoError(t, h.Push(2))
	assert.True(t, h.Full())
	assert.ErrorIs(t, h.Push(3), ErrFull)
	assert.Equal(t, 2, h.Len())

	top, err := h.Peek()
	require.NoError(t, err)
	assert.Equal(t, score(2), top)
}

func TestHeap_ZeroCapacity(t *testing.T) {
	h, err := New[score](0, Max)
	require.NoError(t, err)
	assert.True(t, h.Full())
	assert.ErrorIs(t, h.Push(1), ErrFull)
}

func TestHeap_KeepBestK(t *testing.T) {
	// Max heap keeps the K smallest values when callers Pop before Push.
	const k = 5
	h, err := New[score](k, Max)
	require.NoError(t, err)

	values := []score{9, 3, 7, 1, 8, 2, 6, 0, 5, 4}
	for _, v := range values {
		if !h.Full() {
			require.NoError(t, h.Push(v))
			continue
		}
		worst, err := h.Peek()
		require.NoError(t, err)
		if v < worst {
			_, err = h.Pop()
			require.NoError(t, err)
			require.NoError(t, h.Push(v))
		}
	}

	assert.Equal(t, []score{0, 1, 2, 3, 4}, h.Sorted())
	assert.Equal(t, k, h.Len(), "Sorted must not drain the heap")
}

func TestHeap_FromBuffer(t *testing.T) {
	buf := make([]score, 4)
	buf[0] = 9
	buf[1] = 4
	buf[2] = 7

	h, err := FromBuffer(buf, 3, Max)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 4, h.Cap())

	require.NoError(t, h.Push(8))
	assert.ErrorIs(t, h.Push(1), ErrFull)

	// Writes land in the adopted buffer.
	assert.ElementsMatch(t, []score{9, 8, 7, 4}, buf)

	assert.Equal(t, []score{9, 8, 7, 4}, drain(t, h))

	_, err = FromBuffer(buf, 5, Max)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
	_, err = FromBuffer(buf, -1, Max)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestHeap_SiftDownPicksMoreWrongChild(t *testing.T) {
	// Root 10 with children 3 and 1 in a min heap: both children violate the
	// order, the smaller one (1) must rise.
	buf := []score{10, 3, 1}
	h, err := FromBuffer(buf, 3, Min)
	require.NoError(t, err)
	h.siftDown(0)

	assert.Equal(t, score(1), buf[0])
	v, err := h.Pop()
	require.NoError(t, err)
	assert.Equal(t, score(1), v)
	v, err = h.Pop()
	require.NoError(t, err)
	assert.Equal(t, score(3), v)
}

func TestHeap_Reset(t *testing.T) {
	h, err := New[score](3, Min)
	require.NoError(t, err)
	require.NoError(t, h.Push(3))
	require.NoError(t, h.Push(1))

	h.Reset()
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Items())
	assert.Equal(t, Min, h.Mode())
	assert.Equal(t, "min", h.Mode().String())
	assert.Equal(t, "max", Max.String())

	require.NoError(t, h.Push(2))
	top, err := h.Peek()
	require.NoError(t, err)
	assert.Equal(t, score(2), top)
}

func BenchmarkHeap_PushPop(b *testing.B) {
	h, _ := New[score](64, Max)
	rng := rand.New(rand.NewSource(1))
	values := make([]score, 1024)
	for i := range values {
		values[i] = score(rng.Float32())
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v := values[i%len(values)]
		if h.Full() {
			_, _ = h.Pop()
		}
		_ = h.Push(v)
	}
}

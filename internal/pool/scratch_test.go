package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spheretree/internal/tree"
	"github.com/hupe1980/spheretree/queue"
)

func TestScratch_Heap(t *testing.T) {
	s := Get()
	defer Put(s)

	h, err := s.Heap(3)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Cap())
	assert.Zero(t, h.Len())
	assert.Equal(t, queue.Max, h.Mode())

	for _, d := range []float32{4, 1, 3, 2} {
		n := tree.Neighbour{DistSq: d}
		if h.Full() {
			worst, _ := h.Peek()
			if d >= worst.DistSq {
				continue
			}
			_, _ = h.Pop()
		}
		require.NoError(t, h.Push(n))
	}

	got := h.Sorted()
	require.Len(t, got, 3)
	assert.Equal(t, []float32{1, 2, 3}, []float32{got[0].DistSq, got[1].DistSq, got[2].DistSq})
}

func TestScratch_Grows(t *testing.T) {
	s := Get()
	defer Put(s)

	h, err := s.Heap(DefaultCapacity * 4)
	require.NoError(t, err)
	assert.Equal(t, DefaultCapacity*4, h.Cap())
	assert.GreaterOrEqual(t, cap(s.buf), DefaultCapacity*4)
}

func TestPut_DropsOversizedBuffers(t *testing.T) {
	s := &Scratch{buf: make([]tree.Neighbour, MaxRetainedCapacity+1)}
	Put(s)
	assert.Equal(t, DefaultCapacity, cap(s.buf))
}

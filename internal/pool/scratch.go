// Package pool provides reusable result buffers for allocation-free queries.
// Uses sync.Pool for automatic memory reuse.
package pool

import (
	"sync"

	"github.com/hupe1980/spheretree/internal/tree"
	"github.com/hupe1980/spheretree/queue"
)

const (
	// DefaultCapacity is the initial neighbour capacity of a pooled buffer.
	DefaultCapacity = 64

	// MaxRetainedCapacity is the largest buffer returned to the pool.
	// Larger ones are dropped so a single huge query does not pin memory.
	MaxRetainedCapacity = 1 << 16
)

// Scratch holds the heap storage of one query.
type Scratch struct {
	buf []tree.Neighbour
}

var scratchPool = sync.Pool{
	New: func() any {
		return &Scratch{buf: make([]tree.Neighbour, DefaultCapacity)}
	},
}

// Get retrieves a Scratch from the pool.
func Get() *Scratch {
	return scratchPool.Get().(*Scratch)
}

// Put returns a Scratch to the pool for reuse. Heaps obtained from it must
// no longer be used.
func Put(s *Scratch) {
	if cap(s.buf) > MaxRetainedCapacity {
		s.buf = make([]tree.Neighbour, DefaultCapacity)
	}
	scratchPool.Put(s)
}

// Heap returns an empty Max-mode heap of capacity k backed by the scratch
// buffer, growing the buffer if needed.
func (s *Scratch) Heap(k int) (*queue.Heap[tree.Neighbour], error) {
	if k > cap(s.buf) {
		s.buf = make([]tree.Neighbour, k)
	}
	return queue.FromBuffer(s.buf[:k], 0, queue.Max)
}

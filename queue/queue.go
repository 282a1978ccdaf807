// Package queue provides a fixed-capacity binary heap used to keep the K best
// candidates of a search.
package queue

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidCapacity is returned when a heap is created with a negative capacity.
	ErrInvalidCapacity = errors.New("queue: invalid capacity")
	// ErrFull is returned by Push when the heap holds Cap elements.
	ErrFull = errors.New("queue: heap is full")
	// ErrEmpty is returned by Pop and Peek on an empty heap.
	ErrEmpty = errors.New("queue: heap is empty")
)

// Comparer is implemented by heap elements.
// CompareTo returns a negative number when the receiver orders before other,
// zero when they are equal and a positive number otherwise.
type Comparer[T any] interface {
	CompareTo(other T) int
}

// Mode selects which end of the ordering sits at the root.
type Mode int

const (
	// Min keeps the smallest element at the root.
	Min Mode = iota
	// Max keeps the largest element at the root.
	Max
)

func (m Mode) String() string {
	if m == Max {
		return "max"
	}
	return "min"
}

func (m Mode) sign() int {
	if m == Max {
		return -1
	}
	return 1
}

// Heap is a bounded binary heap over a fixed backing buffer.
//
// The same sift code serves both modes: every comparison is multiplied by a
// sign (+1 for Min, -1 for Max).
//
// Heap is NOT thread-safe.
type Heap[T Comparer[T]] struct {
	items []T // len(items) is the capacity
	n     int
	mode  Mode
	sign  int
}

// New creates an empty heap that holds at most capacity elements.
func New[T Comparer[T]](capacity int, mode Mode) (*Heap[T], error) {
	if capacity < 0 {
		return nil, ErrInvalidCapacity
	}
	return &Heap[T]{
		items: make([]T, capacity),
		mode:  mode,
		sign:  mode.sign(),
	}, nil
}

// FromBuffer adopts buf as the heap storage. The first count elements must
// already satisfy the heap property for mode; the capacity is len(buf).
// Results written by the heap land directly in buf.
func FromBuffer[T Comparer[T]](buf []T, count int, mode Mode) (*Heap[T], error) {
	if count < 0 || count > len(buf) {
		return nil, ErrInvalidCapacity
	}
	return &Heap[T]{
		items: buf,
		n:     count,
		mode:  mode,
		sign:  mode.sign(),
	}, nil
}

// Len returns the number of elements in the heap.
func (h *Heap[T]) Len() int { return h.n }

// Cap returns the maximum number of elements the heap can hold.
func (h *Heap[T]) Cap() int { return len(h.items) }

// Full reports whether the heap holds Cap elements.
func (h *Heap[T]) Full() bool { return h.n == len(h.items) }

// Mode returns the heap ordering mode.
func (h *Heap[T]) Mode() Mode { return h.mode }

// Reset empties the heap for reuse without releasing its buffer.
func (h *Heap[T]) Reset() {
	clear(h.items[:h.n])
	h.n = 0
}

// Push inserts an item while maintaining the heap invariant.
// Callers that want to keep the best K must Pop before Push when Full.
func (h *Heap[T]) Push(item T) error {
	if h.n == len(h.items) {
		return ErrFull
	}
	h.items[h.n] = item
	h.siftUp(h.n)
	h.n++
	return nil
}

// Pop removes and returns the root element.
func (h *Heap[T]) Pop() (T, error) {
	var zero T
	if h.n == 0 {
		return zero, ErrEmpty
	}
	root := h.items[0]
	h.n--
	h.items[0] = h.items[h.n]
	h.items[h.n] = zero
	if h.n > 0 {
		h.siftDown(0)
	}
	return root, nil
}

// Peek returns the root element without removing it.
func (h *Heap[T]) Peek() (T, error) {
	if h.n == 0 {
		var zero T
		return zero, ErrEmpty
	}
	return h.items[0], nil
}

// Items returns the live elements in heap order (not sorted).
// The slice aliases the heap buffer and is invalidated by the next mutation.
func (h *Heap[T]) Items() []T {
	return h.items[:h.n]
}

// Sorted returns a copy of the live elements in ascending CompareTo order,
// independent of the heap mode. The heap is left untouched.
func (h *Heap[T]) Sorted() []T {
	out := slices.Clone(h.items[:h.n])
	slices.SortFunc(out, func(a, b T) int { return a.CompareTo(b) })
	return out
}

// before reports whether items[i] belongs above items[j].
func (h *Heap[T]) before(i, j int) bool {
	return h.sign*h.items[i].CompareTo(h.items[j]) < 0
}

func (h *Heap[T]) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !h.before(i, p) {
			return
		}
		h.items[i], h.items[p] = h.items[p], h.items[i]
		i = p
	}
}

// siftDown restores order below i. When both children outrank the parent the
// one that outranks it more (the "more wrong" one) is swapped up.
func (h *Heap[T]) siftDown(i int) {
	for {
		l := 2*i + 1
		if l >= h.n {
			return
		}
		best := i
		if h.before(l, best) {
			best = l
		}
		if r := l + 1; r < h.n && h.before(r, best) {
			best = r
		}
		if best == i {
			return
		}
		h.items[i], h.items[best] = h.items[best], h.items[i]
		i = best
	}
}

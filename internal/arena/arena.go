package arena

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/spheretree/internal/mem"
	"github.com/hupe1980/spheretree/internal/mmap"
)

// MemoryAcquirer is an interface for acquiring memory.
type MemoryAcquirer interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

var (
	// ErrAllocationFailed is returned when an allocation fails.
	ErrAllocationFailed = errors.New("arena: allocation failed")
	// ErrInvalidSize is returned for negative sizes.
	ErrInvalidSize = errors.New("arena: invalid size")
	// ErrForeignBlock is returned when freeing a block with a different allocator.
	ErrForeignBlock = errors.New("arena: block belongs to another allocator")
)

// Stats tracks allocator memory usage metrics.
//
// Note on semantics:
//   - BytesReserved: bytes currently held by live blocks
//   - ActiveBlocks: number of live blocks
//   - TotalAllocs: cumulative allocation count
//   - TotalFrees: cumulative free count
type Stats struct {
	BytesReserved uint64
	ActiveBlocks  uint64
	TotalAllocs   uint64
	TotalFrees    uint64
}

type atomicStats struct {
	BytesReserved atomic.Uint64
	ActiveBlocks  atomic.Uint64
	TotalAllocs   atomic.Uint64
	TotalFrees    atomic.Uint64
}

// Block is a contiguous, aligned allocation handed out by an Allocator.
type Block struct {
	data    []byte
	mapping *mmap.Mapping // Holds the off-heap mapping (if applicable)
	owner   *base
	freed   atomic.Bool
}

// Bytes returns the block memory, or nil once the block has been freed.
func (b *Block) Bytes() []byte {
	if b == nil || b.freed.Load() {
		return nil
	}
	return b.data
}

// Len returns the usable size of the block in bytes.
func (b *Block) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// OffHeap reports whether the block lives outside the Go heap.
func (b *Block) OffHeap() bool {
	return b != nil && b.mapping != nil
}

// Prefetch hints that the whole block is about to be read. Heap blocks and
// freed blocks ignore it.
func (b *Block) Prefetch() error {
	if !b.OffHeap() || b.freed.Load() {
		return nil
	}
	return b.mapping.Advise(mmap.AccessWillNeed)
}

// Allocator hands out aligned blocks and frees them by handle.
type Allocator interface {
	Alloc(size int) (*Block, error)
	Free(b *Block) error
	Stats() Stats
}

// Option is a configuration option for allocators.
type Option func(*base)

// WithMemoryAcquirer sets the memory acquirer for the allocator.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *base) {
		a.acquirer = acquirer
	}
}

type base struct {
	acquirer MemoryAcquirer
	stats    atomicStats
}

func (a *base) charge(size int) error {
	if a.acquirer == nil || size == 0 {
		return nil
	}
	if err := a.acquirer.AcquireMemory(int64(size)); err != nil {
		return fmt.Errorf("%w: %d bytes: %w", ErrAllocationFailed, size, err)
	}
	return nil
}

func (a *base) refund(size int) {
	if a.acquirer == nil || size == 0 {
		return
	}
	a.acquirer.ReleaseMemory(int64(size))
}

func (a *base) track(b *Block) {
	a.stats.BytesReserved.Add(uint64(len(b.data)))
	a.stats.ActiveBlocks.Add(1)
	a.stats.TotalAllocs.Add(1)
}

func (a *base) untrack(b *Block) {
	a.stats.BytesReserved.Add(-uint64(len(b.data)))
	a.stats.ActiveBlocks.Add(^uint64(0))
	a.stats.TotalFrees.Add(1)
}

func (a *base) release(b *Block) (bool, error) {
	if b == nil {
		return false, nil
	}
	if b.owner != a {
		return false, ErrForeignBlock
	}
	if b.freed.Swap(true) {
		return false, nil
	}
	return true, nil
}

// Stats returns the current allocator statistics.
func (a *base) Stats() Stats {
	return Stats{
		BytesReserved: a.stats.BytesReserved.Load(),
		ActiveBlocks:  a.stats.ActiveBlocks.Load(),
		TotalAllocs:   a.stats.TotalAllocs.Load(),
		TotalFrees:    a.stats.TotalFrees.Load(),
	}
}

// Heap allocates GC-managed, 64-byte aligned blocks.
type Heap struct {
	base
}

// NewHeap creates a new heap-backed allocator.
func NewHeap(opts ...Option) *Heap {
	h := &Heap{}
	for _, opt := range opts {
		opt(&h.base)
	}
	return h
}

// Alloc allocates a zeroed block of size bytes.
func (h *Heap) Alloc(size int) (*Block, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if err := h.charge(size); err != nil {
		return nil, err
	}
	b := &Block{data: mem.AllocAligned(size), owner: &h.base}
	h.track(b)
	return b, nil
}

// Free releases the block. Freeing twice is a no-op.
func (h *Heap) Free(b *Block) error {
	ok, err := h.release(b)
	if !ok {
		return err
	}
	h.untrack(b)
	h.refund(len(b.data))
	b.data = nil
	return nil
}

// Mapped allocates blocks from anonymous memory mappings outside the Go heap.
type Mapped struct {
	base
}

// NewMapped creates a new off-heap allocator.
func NewMapped(opts ...Option) *Mapped {
	m := &Mapped{}
	for _, opt := range opts {
		opt(&m.base)
	}
	return m
}

// Alloc maps a zeroed block of size bytes.
func (m *Mapped) Alloc(size int) (*Block, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if size == 0 {
		b := &Block{owner: &m.base}
		m.track(b)
		return b, nil
	}
	if err := m.charge(size); err != nil {
		return nil, err
	}

	mapping, err := mmap.MapAnon(size)
	if err != nil {
		m.refund(size)
		return nil, fmt.Errorf("%w: failed to map anonymous memory: %w", ErrAllocationFailed, err)
	}
	_ = mapping.Advise(mmap.AccessRandom)

	b := &Block{data: mapping.Bytes()[:size], mapping: mapping, owner: &m.base}
	m.track(b)
	return b, nil
}

// Free unmaps the block. Freeing twice is a no-op.
func (m *Mapped) Free(b *Block) error {
	ok, err := m.release(b)
	if !ok {
		return err
	}
	m.untrack(b)
	m.refund(len(b.data))
	b.data = nil
	if b.mapping != nil {
		return b.mapping.Close()
	}
	return nil
}

// Slice reinterprets the first n elements of the block as a []T.
// T must not contain pointers: the memory may live outside the Go heap and is
// never scanned by the garbage collector.
func Slice[T any](b *Block, n int) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	data := b.Bytes()
	if n < 0 || size == 0 || n > len(data)/size {
		return nil, fmt.Errorf("%w: %d elements of %d bytes exceed block of %d bytes", ErrInvalidSize, n, size, len(data))
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), n), nil //nolint:gosec // unsafe is required for typed arena views
}

// SizeOf returns the number of bytes needed to hold n elements of T.
func SizeOf[T any](n int) int {
	var zero T
	return n * int(unsafe.Sizeof(zero))
}

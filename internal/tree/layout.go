package tree

import (
	"errors"
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/hupe1980/spheretree/internal/conv"
	"github.com/hupe1980/spheretree/internal/mem"
)

const (
	// MaxLeafSize is the largest entry count a node keeps without splitting.
	MaxLeafSize = 8
	// MaxUnbalancedDepth is the depth allowance on top of a perfectly balanced tree.
	MaxUnbalancedDepth = 5
	// MinLeavesPerWorker is the minimum number of full leaves a build worker must own.
	MinLeavesPerWorker = 16
	// ZeroRadiusEpsilon marks a node whose entries all sit on one point.
	ZeroRadiusEpsilon = 1e-11
	// MaxEntries is the largest count a node can describe (29 bits).
	MaxEntries = 1<<29 - 1
)

var (
	// ErrInvalidCapacity is returned for negative capacities.
	ErrInvalidCapacity = errors.New("tree: invalid capacity")
	// ErrCapacityTooLarge is returned when a capacity exceeds MaxEntries.
	ErrCapacityTooLarge = errors.New("tree: capacity too large")
	// ErrBufferSize is returned when supplied buffers do not match the layout.
	ErrBufferSize = errors.New("tree: buffer size mismatch")
)

// EntrySize is the in-memory size of an Entry in bytes.
const EntrySize = int(unsafe.Sizeof(Entry{}))

// NodeSize is the in-memory size of a Node in bytes.
const NodeSize = int(unsafe.Sizeof(Node{}))

// MaxDepth returns the depth limit for a build over n entries:
// MaxUnbalancedDepth + ceil(log2(n / MaxLeafSize)).
func MaxDepth(n int) int {
	if n <= MaxLeafSize {
		return MaxUnbalancedDepth
	}
	leaves := (n + MaxLeafSize - 1) / MaxLeafSize
	return MaxUnbalancedDepth + bits.Len(uint(leaves-1))
}

// NodeCount returns the node array length for a depth limit.
func NodeCount(maxDepth int) int {
	return 1 << (maxDepth + 1)
}

// CalculateNumWorkers returns the largest power of two not above maxWorkers
// that still leaves every worker MinLeavesPerWorker full leaves of n entries.
func CalculateNumWorkers(n, maxWorkers int) int {
	w := 1
	for w*2 <= maxWorkers && n/(w*2) >= MinLeavesPerWorker*MaxLeafSize {
		w *= 2
	}
	return w
}

// Layout is the buffer plan for an index of fixed capacity.
type Layout struct {
	Capacity int
	// MaxDepth is the depth limit of a build over Capacity entries.
	MaxDepth int
	// Nodes is the node array length.
	Nodes int
	// Workers is the largest worker count any build can use.
	Workers int
	// Pad is the number of entries that fill one cache line.
	Pad int
	// EntrySlots is the entry buffer length including worker padding.
	EntrySlots int
}

// Plan computes the layout for capacity entries built by at most maxWorkers.
func Plan(capacity, maxWorkers int) (Layout, error) {
	if capacity < 0 {
		return Layout{}, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if capacity > MaxEntries {
		return Layout{}, fmt.Errorf("%w: %d > %d", ErrCapacityTooLarge, capacity, MaxEntries)
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	depth := MaxDepth(capacity)
	workers := CalculateNumWorkers(capacity, maxWorkers)
	pad := mem.CacheLineElements(EntrySize)

	l := Layout{
		Capacity:   capacity,
		MaxDepth:   depth,
		Nodes:      NodeCount(depth),
		Workers:    workers,
		Pad:        pad,
		EntrySlots: capacity + workers*pad,
	}
	if _, err := conv.IntToInt32(l.EntrySlots); err != nil {
		return Layout{}, fmt.Errorf("%w: %w", ErrCapacityTooLarge, err)
	}
	if _, err := conv.IntToInt64Bytes(l.Nodes, NodeSize); err != nil {
		return Layout{}, fmt.Errorf("%w: %w", ErrCapacityTooLarge, err)
	}
	return l, nil
}

// Bytes returns the combined size of the staging, entry and node buffers.
func (l Layout) Bytes() int {
	return (l.Capacity+l.EntrySlots)*EntrySize + l.Nodes*NodeSize
}

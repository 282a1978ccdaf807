package tree

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hupe1980/spheretree/internal/jobs"
)

var (
	// ErrTooManyEntries is returned when a build covers more entries than the capacity.
	ErrTooManyEntries = errors.New("tree: entry count exceeds capacity")
	// ErrNegativeEntries is returned when a build is asked for a negative entry count.
	ErrNegativeEntries = errors.New("tree: negative entry count")
)

// Tree is a bounding-sphere tree over caller-owned buffers.
//
// Set writes the staging buffer. Each build copies the staged entries into
// the entry buffer, which it then partitions and spreads over the worker
// padding, so a build depends only on what was staged.
//
// Build must not run concurrently with queries or Set.
// Queries may run concurrently with each other once a build completed.
type Tree struct {
	layout  Layout
	staging []Entry
	entries []Entry
	nodes   []Node

	numEntries int
	maxDepth   int
	workers    int
	waves      int
}

// New wraps staging, entries and nodes, which must be sized as the layout
// requires.
func New(layout Layout, staging, entries []Entry, nodes []Node) (*Tree, error) {
	if len(staging) != layout.Capacity {
		return nil, fmt.Errorf("%w: %d staged entries, want %d", ErrBufferSize, len(staging), layout.Capacity)
	}
	if len(entries) != layout.EntrySlots {
		return nil, fmt.Errorf("%w: %d entries, want %d", ErrBufferSize, len(entries), layout.EntrySlots)
	}
	if len(nodes) != layout.Nodes {
		return nil, fmt.Errorf("%w: %d nodes, want %d", ErrBufferSize, len(nodes), layout.Nodes)
	}

	t := &Tree{layout: layout, staging: staging, entries: entries, nodes: nodes, workers: 1}
	for i := range t.nodes {
		t.nodes[i] = emptyLeaf(0)
	}
	return t, nil
}

// Layout returns the buffer plan of the tree.
func (t *Tree) Layout() Layout { return t.layout }

// NumEntries returns the entry count of the last build.
func (t *Tree) NumEntries() int { return t.numEntries }

// Set stages slot i for the next build. A completed build is not affected.
func (t *Tree) Set(i int, pos mgl32.Vec3) {
	t.staging[i] = Entry{Index: int32(i), Position: pos}
}

// Build rebuilds the tree over the first n slots. The work is scheduled on
// runner and the returned handle completes after the last wave. onDone, if
// set, runs before the handle is signaled.
func (t *Tree) Build(ctx context.Context, runner *jobs.Runner, n int, onDone func(error)) *jobs.Handle {
	if n < 0 {
		return finished(onDone, fmt.Errorf("%w: %d", ErrNegativeEntries, n))
	}
	if n > t.layout.Capacity {
		return finished(onDone, fmt.Errorf("%w: %d > %d", ErrTooManyEntries, n, t.layout.Capacity))
	}

	for i := range t.nodes {
		t.nodes[i] = emptyLeaf(0)
	}
	t.numEntries = n
	t.maxDepth = MaxDepth(n)
	t.workers = 1
	t.waves = 0
	t.nodes[1] = Node{Count: int32(n)}

	if n <= MaxLeafSize {
		copy(t.entries[:n], t.staging[:n])
		t.nodes[1].Bounds, _, _ = summarize(t.entries[:n])
		t.nodes[1].Leaf = true
		return finished(onDone, nil)
	}

	workers := CalculateNumWorkers(n, t.layout.Workers)
	levels := bits.TrailingZeros(uint(workers))

	waves := make([]jobs.Wave, 0, levels+1)
	for d := range levels {
		first := 1 << d
		waves = append(waves, jobs.Wave{
			Units: first,
			Run:   func(u int) { t.splitTop(first+u, d, workers) },
		})
	}
	first := 1 << levels
	waves = append(waves, jobs.Wave{
		Units: first,
		Run:   func(u int) { t.buildSubtree(first+u, levels) },
	})

	// The first wave is the single unit at the root; it stages the entries.
	root := waves[0].Run
	waves[0].Run = func(u int) {
		copy(t.entries[:n], t.staging[:n])
		root(u)
	}

	t.workers = workers
	t.waves = len(waves)

	return runner.Schedule(ctx, onDone, waves...)
}

func finished(onDone func(error), err error) *jobs.Handle {
	if onDone != nil {
		onDone(err)
	}
	return jobs.Completed(err)
}

// splitTop partitions one node of the top levels. The right half is moved
// past half of the node's padding so that sibling ranges never share a
// cache line while later waves work on them.
func (t *Tree) splitTop(idx, depth, workers int) {
	node := &t.nodes[idx]
	left, right := 2*idx, 2*idx+1

	if node.Leaf {
		t.nodes[left] = emptyLeaf(node.Begin)
		t.nodes[right] = emptyLeaf(node.Begin)
		return
	}

	begin, count := node.Begin, node.Count
	part := t.entries[begin : begin+count]

	var axis int
	var split float32
	node.Bounds, axis, split = summarize(part)
	if t.isLeaf(int(count), depth, node.Bounds.Radius) {
		node.Leaf = true
		t.nodes[left] = emptyLeaf(begin)
		t.nodes[right] = emptyLeaf(begin)
		return
	}

	lc := int32(partition(part, axis, split))
	shift := int32((workers >> (depth + 1)) * t.layout.Pad)
	if shift > 0 && lc < count {
		copy(t.entries[begin+lc+shift:begin+count+shift], part[lc:])
	}

	t.nodes[left] = child(begin, lc)
	t.nodes[right] = child(begin+lc+shift, count-lc)
}

// buildSubtree finishes the subtree rooted at idx on the calling goroutine.
func (t *Tree) buildSubtree(idx, depth int) {
	if t.nodes[idx].Leaf {
		return
	}
	t.buildNode(idx, depth)
}

func (t *Tree) buildNode(idx, depth int) {
	node := &t.nodes[idx]
	begin, count := node.Begin, node.Count
	part := t.entries[begin : begin+count]

	var axis int
	var split float32
	node.Bounds, axis, split = summarize(part)
	if t.isLeaf(int(count), depth, node.Bounds.Radius) {
		node.Leaf = true
		return
	}

	lc := int32(partition(part, axis, split))
	left, right := 2*idx, 2*idx+1
	t.nodes[left] = child(begin, lc)
	t.nodes[right] = child(begin+lc, count-lc)

	if lc > 0 {
		t.buildNode(left, depth+1)
	}
	if lc < count {
		t.buildNode(right, depth+1)
	}
}

func (t *Tree) isLeaf(count, depth int, radius float32) bool {
	return count <= MaxLeafSize || depth >= t.maxDepth || radius < ZeroRadiusEpsilon
}

// summarize returns the bounding sphere of entries along with the split
// axis (longest box extent, X before Y before Z on ties) and the split
// value (the mean coordinate on that axis).
func summarize(entries []Entry) (SphereBounds, int, float32) {
	if len(entries) == 0 {
		return SphereBounds{}, 0, 0
	}

	lo := entries[0].Position
	hi := lo
	var sum [3]float64
	for i := range entries {
		p := entries[i].Position
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], p[a])
			hi[a] = max(hi[a], p[a])
			sum[a] += float64(p[a])
		}
	}

	center := lo.Add(hi).Mul(0.5)
	radius := max(hi.Sub(center).Len(), lo.Sub(center).Len())

	extent := hi.Sub(lo)
	axis := 0
	if extent[1] > extent[axis] {
		axis = 1
	}
	if extent[2] > extent[axis] {
		axis = 2
	}
	split := float32(sum[axis] / float64(len(entries)))

	return SphereBounds{Center: center, Radius: radius}, axis, split
}

// partition reorders entries so that every coordinate below split on axis
// comes first and returns how many that is.
func partition(entries []Entry, axis int, split float32) int {
	i, j := 0, len(entries)-1
	for {
		for i <= j && entries[i].Position[axis] < split {
			i++
		}
		for i <= j && !(entries[j].Position[axis] < split) {
			j--
		}
		if i >= j {
			return i
		}
		entries[i], entries[j] = entries[j], entries[i]
		i++
		j--
	}
}

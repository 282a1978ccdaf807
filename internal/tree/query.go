package tree

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/hupe1980/spheretree/queue"
)

type rangeQuery struct {
	index    int32
	pos      mgl32.Vec3
	radius   float32
	radiusSq float32
	out      *queue.Heap[Neighbour]
	stats    *QueryStats
}

// RangeQuery collects up to out.Cap() entries within radius of pos into out,
// skipping the entry whose index is queryIndex. out must be in Max mode so
// that its root is the farthest kept candidate; when more entries qualify
// the closest ones are kept. It returns out.Len(). out is not reset.
//
// With radius = +Inf the query yields the out.Cap() nearest entries. A
// negative or NaN radius matches nothing.
func (t *Tree) RangeQuery(queryIndex int32, pos mgl32.Vec3, radius float32, out *queue.Heap[Neighbour], stats *QueryStats) int {
	if t.numEntries == 0 || out.Cap() == 0 || !(radius >= 0) {
		return out.Len()
	}

	q := rangeQuery{
		index:    queryIndex,
		pos:      pos,
		radius:   radius,
		radiusSq: radius * radius,
		out:      out,
		stats:    stats,
	}
	q.shrink()
	t.search(1, &q)
	return out.Len()
}

func (t *Tree) search(idx int, q *rangeQuery) {
	q.stats.node()

	node := &t.nodes[idx]
	if node.Leaf {
		t.scan(node, q)
		return
	}

	near, far := 2*idx, 2*idx+1
	dNear := distSq(q.pos, t.nodes[near].Bounds.Center)
	dFar := distSq(q.pos, t.nodes[far].Bounds.Center)
	if dFar < dNear {
		near, far = far, near
		dNear, dFar = dFar, dNear
	}

	t.descend(near, dNear, q)
	t.descend(far, dFar, q)
}

// descend visits a child if the search sphere can reach its bounding sphere.
// The radius is read at call time, so a leaf filled under the near child
// already tightens the test for the far one.
func (t *Tree) descend(idx int, d float32, q *rangeQuery) {
	c := &t.nodes[idx]
	if c.Count == 0 {
		return
	}
	reach := c.Bounds.Radius + q.radius
	if reach*reach < d {
		q.stats.prune()
		return
	}
	t.search(idx, q)
}

func (t *Tree) scan(node *Node, q *rangeQuery) {
	q.stats.leaf()

	for _, e := range t.entries[node.Begin : node.Begin+node.Count] {
		if e.Index == q.index {
			continue
		}
		q.stats.entry()

		d := distSq(e.Position, q.pos)
		if d > q.radiusSq {
			continue
		}

		n := Neighbour{Index: e.Index, DistSq: d, Position: e.Position}
		if !q.out.Full() {
			_ = q.out.Push(n)
		} else if worst, _ := q.out.Peek(); d < worst.DistSq {
			_, _ = q.out.Pop()
			_ = q.out.Push(n)
		} else {
			continue
		}
		q.shrink()
	}
}

// shrink pulls the search radius in to the farthest kept candidate once the
// heap holds as many candidates as it can.
func (q *rangeQuery) shrink() {
	if !q.out.Full() {
		return
	}
	worst, err := q.out.Peek()
	if err != nil || worst.DistSq >= q.radiusSq {
		return
	}
	q.radiusSq = worst.DistSq
	q.radius = float32(math.Sqrt(float64(worst.DistSq)))
	q.stats.shrink()
}

// Within adds the index of every entry within radius of pos to dst, skipping
// queryIndex, and returns how many entries matched. A negative or NaN radius
// matches nothing.
func (t *Tree) Within(queryIndex int32, pos mgl32.Vec3, radius float32, dst *roaring.Bitmap, stats *QueryStats) int {
	if t.numEntries == 0 || !(radius >= 0) {
		return 0
	}
	w := within{index: queryIndex, pos: pos, radius: radius, radiusSq: radius * radius, dst: dst, stats: stats}
	t.collect(1, &w)
	return w.found
}

type within struct {
	index    int32
	pos      mgl32.Vec3
	radius   float32
	radiusSq float32
	dst      *roaring.Bitmap
	stats    *QueryStats
	found    int
}

func (t *Tree) collect(idx int, w *within) {
	w.stats.node()

	node := &t.nodes[idx]
	if node.Leaf {
		w.stats.leaf()
		for _, e := range t.entries[node.Begin : node.Begin+node.Count] {
			if e.Index == w.index {
				continue
			}
			w.stats.entry()
			if distSq(e.Position, w.pos) <= w.radiusSq {
				w.dst.Add(uint32(e.Index))
				w.found++
			}
		}
		return
	}

	for _, c := range [2]int{2 * idx, 2*idx + 1} {
		n := &t.nodes[c]
		if n.Count == 0 {
			continue
		}
		reach := n.Bounds.Radius + w.radius
		if reach*reach < distSq(w.pos, n.Bounds.Center) {
			w.stats.prune()
			continue
		}
		t.collect(c, w)
	}
}

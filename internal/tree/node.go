package tree

import (
	"cmp"

	"github.com/go-gl/mathgl/mgl32"
)

// Entry is one indexed point in the entry buffer.
type Entry struct {
	Index    int32
	Position mgl32.Vec3
}

// SphereBounds is a conservative bounding sphere around a node's entries.
type SphereBounds struct {
	Center mgl32.Vec3
	Radius float32
}

// Node is one slot of the implicit tree. Node i has children 2i and 2i+1;
// slot 0 is unused. Begin and Count describe the half-open range of the
// entry buffer the node owns.
type Node struct {
	Begin  int32
	Count  int32
	Leaf   bool
	Bounds SphereBounds
}

// Empty reports whether the node owns no entries.
func (n *Node) Empty() bool { return n.Count == 0 }

func emptyLeaf(begin int32) Node {
	return Node{Begin: begin, Leaf: true}
}

func child(begin, count int32) Node {
	return Node{Begin: begin, Count: count, Leaf: count == 0}
}

// Neighbour is a query result ordered by squared distance.
type Neighbour struct {
	Index    int32
	DistSq   float32
	Position mgl32.Vec3
}

// CompareTo orders neighbours by DistSq, then by Index so that equal
// distances still have a total order.
func (n Neighbour) CompareTo(other Neighbour) int {
	if c := cmp.Compare(n.DistSq, other.DistSq); c != 0 {
		return c
	}
	return cmp.Compare(n.Index, other.Index)
}

func distSq(a, b mgl32.Vec3) float32 {
	d := a.Sub(b)
	return d.Dot(d)
}

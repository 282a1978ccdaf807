package tree

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// ErrInvalidTree is returned by Validate when a structural invariant fails.
var ErrInvalidTree = errors.New("tree: invalid structure")

// boundsSlack absorbs float32 rounding in the sphere containment check.
const boundsSlack = 1e-4

// Validate checks the built tree: child counts add up to their parent,
// leaf ranges stay inside the buffer and never overlap, the leaves together
// hold every index below NumEntries exactly once, every node obeys the leaf
// rule and every entry lies inside its leaf's bounding sphere.
func (t *Tree) Validate() error {
	n := t.numEntries
	slots := bitset.New(uint(len(t.entries)))
	seen := bitset.New(uint(n))

	var err error
	total := 0
	t.walk(1, 0, func(idx, depth int, node *Node) {
		if err != nil {
			return
		}
		err = t.checkNode(idx, depth, node)
		if err != nil || !node.Leaf || node.Empty() {
			return
		}

		total += int(node.Count)
		for s := node.Begin; s < node.Begin+node.Count; s++ {
			if slots.Test(uint(s)) {
				err = fmt.Errorf("%w: slot %d owned by two leaves", ErrInvalidTree, s)
				return
			}
			slots.Set(uint(s))

			e := t.entries[s]
			if e.Index < 0 || int(e.Index) >= n {
				err = fmt.Errorf("%w: slot %d holds index %d outside [0, %d)", ErrInvalidTree, s, e.Index, n)
				return
			}
			if seen.Test(uint(e.Index)) {
				err = fmt.Errorf("%w: index %d appears twice", ErrInvalidTree, e.Index)
				return
			}
			seen.Set(uint(e.Index))

			r := node.Bounds.Radius
			if d := distSq(e.Position, node.Bounds.Center); d > r*r*(1+boundsSlack)+boundsSlack {
				err = fmt.Errorf("%w: index %d outside bounds of node %d", ErrInvalidTree, e.Index, idx)
				return
			}
		}
	})
	if err != nil {
		return err
	}

	if total != n || seen.Count() != uint(n) {
		return fmt.Errorf("%w: leaves hold %d entries, want %d", ErrInvalidTree, total, n)
	}
	return nil
}

func (t *Tree) checkNode(idx, depth int, node *Node) error {
	if node.Count < 0 || node.Begin < 0 || int(node.Begin)+int(node.Count) > len(t.entries) {
		return fmt.Errorf("%w: node %d range [%d, +%d) outside buffer", ErrInvalidTree, idx, node.Begin, node.Count)
	}
	if node.Leaf {
		if !node.Empty() && !t.isLeaf(int(node.Count), depth, node.Bounds.Radius) {
			return fmt.Errorf("%w: node %d with %d entries at depth %d should have been split", ErrInvalidTree, idx, node.Count, depth)
		}
		return nil
	}

	if depth >= t.maxDepth {
		return fmt.Errorf("%w: internal node %d at depth limit %d", ErrInvalidTree, idx, t.maxDepth)
	}
	if int(node.Count) <= MaxLeafSize {
		return fmt.Errorf("%w: internal node %d holds only %d entries", ErrInvalidTree, idx, node.Count)
	}

	l, r := &t.nodes[2*idx], &t.nodes[2*idx+1]
	if l.Count+r.Count != node.Count {
		return fmt.Errorf("%w: node %d count %d != %d + %d", ErrInvalidTree, idx, node.Count, l.Count, r.Count)
	}
	if !l.Empty() && !r.Empty() && l.Begin+l.Count > r.Begin {
		return fmt.Errorf("%w: children of node %d overlap", ErrInvalidTree, idx)
	}
	return nil
}

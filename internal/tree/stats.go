package tree

// QueryStats counts traversal work. A nil *QueryStats disables counting.
type QueryStats struct {
	NodesVisited   int
	LeavesScanned  int
	EntriesTested  int
	SubtreesPruned int
	RadiusShrinks  int
}

func (s *QueryStats) node() {
	if s != nil {
		s.NodesVisited++
	}
}

func (s *QueryStats) leaf() {
	if s != nil {
		s.LeavesScanned++
	}
}

func (s *QueryStats) entry() {
	if s != nil {
		s.EntriesTested++
	}
}

func (s *QueryStats) prune() {
	if s != nil {
		s.SubtreesPruned++
	}
}

func (s *QueryStats) shrink() {
	if s != nil {
		s.RadiusShrinks++
	}
}

// BuildStats describes the shape of a built tree.
type BuildStats struct {
	Entries       int
	Nodes         int // reachable from the root
	InternalNodes int
	Leaves        int // non-empty leaves
	EmptyLeaves   int
	MaxDepth      int // deepest reachable node
	DepthLimit    int
	Workers       int
	Waves         int
}

// BuildStats walks the tree and reports its shape.
func (t *Tree) BuildStats() BuildStats {
	s := BuildStats{
		Entries:    t.numEntries,
		DepthLimit: t.maxDepth,
		Workers:    t.workers,
		Waves:      t.waves,
	}
	t.walk(1, 0, func(idx, depth int, n *Node) {
		s.Nodes++
		s.MaxDepth = max(s.MaxDepth, depth)
		switch {
		case !n.Leaf:
			s.InternalNodes++
		case n.Count == 0:
			s.EmptyLeaves++
		default:
			s.Leaves++
		}
	})
	return s
}

func (t *Tree) walk(idx, depth int, fn func(idx, depth int, n *Node)) {
	n := &t.nodes[idx]
	fn(idx, depth, n)
	if n.Leaf {
		return
	}
	t.walk(2*idx, depth+1, fn)
	t.walk(2*idx+1, depth+1, fn)
}

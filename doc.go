// Package spheretree provides a fixed-capacity spatial index over 3D points.
//
// The index is a bounding-sphere tree stored in an implicit array (node i
// has children 2i and 2i+1). It answers "entries within radius R" and
// "K nearest entries" queries without scanning every point, and is rebuilt
// from scratch whenever the points change.
//
// # Quick Start
//
//	idx, _ := spheretree.New(len(points))
//	defer idx.Close()
//
//	for i, p := range points {
//	    _ = idx.AddEntry(int32(i), p)
//	}
//	_ = idx.BuildSync(ctx, len(points))
//
//	// The 5 nearest neighbours of point 0.
//	near, _ := idx.Nearest(0, points[0], 5)
//
// # Bounded Range Queries
//
// RangeQuery fills a caller-owned Max-mode heap. Reuse the heap across
// queries to avoid allocation; when more entries qualify than fit, the
// closest ones are kept:
//
//	out, _ := queue.New[spheretree.Neighbour](16, queue.Max)
//	for _, q := range queries {
//	    out.Reset()
//	    n, _ := idx.RangeQuery(-1, q, 2.5, out)
//	    _ = n
//	}
//
// # Parallel Builds
//
// Build returns immediately with a *BuildHandle; the caller decides whether
// to Wait or keep working. Large indexes split the top levels of the tree
// over up to WithMaxWorkers goroutines and then build one subtree per
// worker. Queries are safe from any number of goroutines once the handle
// completed.
//
// # Moving Points
//
// Tracker keeps two indexes, tracks which points moved further than
// WithMoveThreshold and swaps a freshly built tree in on Rebuild, so queries
// keep running against the previous tree while the next one is built.
package spheretree

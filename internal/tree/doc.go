// Package tree implements the bounding-sphere tree behind spheretree.Index.
//
// Nodes live in an implicit array: node 1 is the root and node i has
// children 2i and 2i+1. Each node owns a contiguous range of the entry
// buffer, which is partitioned in place during the build and never copied.
//
// A build runs as a sequence of jobs waves. The top log2(workers) levels are
// split one wave per level; while doing so the right half of every range is
// moved past a cache line of padding so that the worker subtrees built by the
// final wave never share a cache line. Each worker then finishes its subtree
// with plain recursion.
//
// Queries descend nearer child first and prune a child once the search
// sphere can no longer reach its bounding sphere. With a bounded result heap
// the search radius shrinks to the farthest kept candidate as soon as the
// heap is full.
package tree

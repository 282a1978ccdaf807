// Package mem provides memory allocation utilities.
//
// # Aligned Allocation
//
// Provides 64-byte aligned allocation so that entry and node buffers start on a
// cache line boundary.
//
// # Cache Lines
//
// CacheLineSize reports the line size of the target architecture (via
// golang.org/x/sys/cpu). CacheLineElements converts it into an element stride,
// which the tree builder uses as padding between ranges written by different
// workers.
package mem

// Package arena provides the allocator collaborator for spatial index buffers.
//
// An index asks its allocator for exactly two blocks per generation: the node
// array and the entry buffer. Blocks are zero-filled, 64-byte aligned, charged
// to the shared resource controller and released by handle.
//
// # Features
//
//   - Heap allocator backed by aligned Go slices
//   - Mapped allocator backed by anonymous mmap (no GC pressure)
//   - Typed views over pointer-free element types via Slice
//
// # Safety
//
// All methods return errors instead of panicking. Bytes returns nil for freed
// blocks rather than exposing unmapped memory.
package arena

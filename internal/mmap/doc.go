// Package mmap maps anonymous memory for off-heap entry and node buffers.
//
//	m, err := mmap.MapAnon(size)
//	if err != nil { ... }
//	defer m.Close()
//	buf := m.Bytes()
//
// Unix uses mmap(2) and madvise(2). Windows uses VirtualAlloc and ignores hints.
// Close is idempotent; the bytes must not be touched after it returns.
package mmap

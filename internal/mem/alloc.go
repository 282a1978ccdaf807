package mem

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Alignment is the byte alignment of every buffer returned by AllocAligned (64 bytes).
const Alignment = 64

// CacheLineSize is the cache line size of the target architecture in bytes.
const CacheLineSize = int(unsafe.Sizeof(cpu.CacheLinePad{}))

// AllocAligned allocates a byte slice of the given size with 64-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 64.
//
// Note: This function allocates slightly more memory than requested to ensure alignment.
// The underlying array is kept alive by the returned slice.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	// Allocate size + alignment to ensure we can find an aligned offset
	totalSize := size + Alignment
	buf := make([]byte, totalSize)

	// Calculate the offset to the first aligned byte
	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size)]
}

// CacheLineElements returns how many elements of elemSize bytes are needed to
// span at least one full cache line.
func CacheLineElements(elemSize int) int {
	if elemSize <= 0 {
		return 0
	}
	return (CacheLineSize + elemSize - 1) / elemSize
}

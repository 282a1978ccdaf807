//go:build windows

package mmap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// VirtualAlloc commits lazily, so untouched pages cost no physical memory.
func mapAnon(size int) ([]byte, func([]byte) error, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, nil, err
	}
	release := func([]byte) error {
		return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), release, nil
}

func advise([]byte, AccessPattern) error { return nil }

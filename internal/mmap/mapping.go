package mmap

import (
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by operations on an unmapped region.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the requested size is not positive.
	ErrInvalidSize = errors.New("mmap: invalid size")
)

// AccessPattern is a paging hint for a mapped region.
type AccessPattern uint8

const (
	// AccessDefault clears any previous hint.
	AccessDefault AccessPattern = iota
	// AccessRandom suits tree traversal over entry and node buffers.
	AccessRandom
	// AccessWillNeed asks the kernel to fault pages in ahead of a build.
	AccessWillNeed
)

// Mapping is an anonymous read-write region outside the Go heap.
type Mapping struct {
	mu    sync.Mutex
	data  []byte
	size  int
	unmap func([]byte) error
}

// MapAnon maps size zero-filled bytes.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, unmap, err := mapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, size: size, unmap: unmap}, nil
}

// Bytes returns the mapped region, or nil once closed.
// The slice must not be used after Close.
func (m *Mapping) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Size reports the mapped length in bytes.
func (m *Mapping) Size() int { return m.size }

// Advise applies a paging hint. Hints are best effort.
func (m *Mapping) Advise(p AccessPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return ErrClosed
	}
	return advise(m.data, p)
}

// Close unmaps the region. Calling it again is a no-op.
func (m *Mapping) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return m.unmap(data)
}

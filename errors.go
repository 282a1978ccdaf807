package spheretree

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spheretree/internal/arena"
	"github.com/hupe1980/spheretree/internal/resource"
	"github.com/hupe1980/spheretree/internal/tree"
)

var (
	// ErrInvalidCapacity is returned when a capacity is negative or cannot be
	// represented by the node layout.
	ErrInvalidCapacity = errors.New("invalid capacity")

	// ErrCapacityExceeded is returned when a build covers more entries than
	// the index was created for.
	ErrCapacityExceeded = errors.New("entry count exceeds capacity")

	// ErrNegativeEntryCount is returned when a build is asked for fewer than
	// zero entries.
	ErrNegativeEntryCount = errors.New("negative entry count")

	// ErrAllocation is returned when the entry or node buffers cannot be allocated.
	ErrAllocation = errors.New("allocation failed")

	// ErrClosed is returned by every operation on a closed index.
	ErrClosed = errors.New("index is closed")

	// ErrNotBuilt is returned by operations that need a completed build.
	ErrNotBuilt = errors.New("index is not built")

	// ErrBuildInProgress is returned when entries are written or a second
	// build is started while a build is running.
	ErrBuildInProgress = errors.New("build in progress")

	// ErrHeapMode is returned when a range query is given a heap that is nil
	// or not in Max mode.
	ErrHeapMode = errors.New("range query needs a max-mode heap")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrNilBitmap is returned when Within is given no destination bitmap.
	ErrNilBitmap = errors.New("destination bitmap is nil")

	// ErrInvalidTree is returned by Validate when the built tree is inconsistent.
	ErrInvalidTree = errors.New("invalid tree")
)

// ErrEntryOutOfRange indicates an entry slot outside [0, Capacity).
type ErrEntryOutOfRange struct {
	Index    int32
	Capacity int
}

func (e *ErrEntryOutOfRange) Error() string {
	return fmt.Sprintf("entry %d out of range [0, %d)", e.Index, e.Capacity)
}

// Is reports ErrCapacityExceeded as a match so callers can treat both alike.
func (e *ErrEntryOutOfRange) Is(target error) bool {
	return target == ErrCapacityExceeded
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, tree.ErrInvalidCapacity), errors.Is(err, tree.ErrCapacityTooLarge):
		return fmt.Errorf("%w: %w", ErrInvalidCapacity, err)
	case errors.Is(err, tree.ErrNegativeEntries):
		return fmt.Errorf("%w: %w", ErrNegativeEntryCount, err)
	case errors.Is(err, tree.ErrTooManyEntries):
		return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	case errors.Is(err, tree.ErrInvalidTree):
		return fmt.Errorf("%w: %w", ErrInvalidTree, err)
	case errors.Is(err, arena.ErrAllocationFailed),
		errors.Is(err, arena.ErrInvalidSize),
		errors.Is(err, resource.ErrMemoryLimitExceeded):
		return fmt.Errorf("%w: %w", ErrAllocation, err)
	}

	return err
}

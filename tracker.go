package spheretree

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/hupe1980/spheretree/internal/resource"
	"github.com/hupe1980/spheretree/queue"
)

// Tracker owns a set of moving points and keeps a queryable Index over
// them. Points are updated with Set; Rebuild builds a fresh tree in a spare
// index and swaps it in, so queries never observe a build in progress.
//
// Set, Rebuild and the query methods are safe for concurrent use.
type Tracker struct {
	opts options
	ctrl *resource.Controller

	mu    sync.RWMutex // guards front
	front *Index

	rebuildMu sync.Mutex // serializes rebuilds; guards back
	back      *Index

	stateMu   sync.Mutex // guards the fields below
	positions []mgl32.Vec3
	built     []mgl32.Vec3 // positions at the last successful rebuild
	count     int
	dirty     *roaring.Bitmap
}

// NewTracker creates a tracker for up to capacity points. Both internal
// indexes count against WithMemoryLimit together.
func NewTracker(capacity int, optFns ...Option) (*Tracker, error) {
	o := applyOptions(optFns)
	o.logger = o.logger.WithCapacity(capacity)
	ctrl := o.resourceController(o.maxWorkers)
	shared := append(append([]Option(nil), optFns...), withController(ctrl))

	front, err := New(capacity, shared...)
	if err != nil {
		return nil, err
	}
	back, err := New(capacity, shared...)
	if err != nil {
		_ = front.Close()
		return nil, err
	}

	return &Tracker{
		opts:      o,
		ctrl:      ctrl,
		front:     front,
		back:      back,
		positions: make([]mgl32.Vec3, capacity),
		built:     make([]mgl32.Vec3, capacity),
		dirty:     roaring.New(),
	}, nil
}

// Set records the position of point i. The point becomes dirty when it is
// new or has moved farther than the move threshold since the last rebuild.
func (t *Tracker) Set(i int32, position mgl32.Vec3) error {
	if i < 0 || int(i) >= len(t.positions) {
		return &ErrEntryOutOfRange{Index: i, Capacity: len(t.positions)}
	}

	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	t.positions[i] = position
	if int(i) >= t.count {
		for j := t.count; j <= int(i); j++ {
			t.dirty.Add(uint32(j))
		}
		t.count = int(i) + 1
		return nil
	}
	if position.Sub(t.built[i]).Len() > t.opts.moveThreshold {
		t.dirty.Add(uint32(i))
	} else {
		t.dirty.Remove(uint32(i))
	}
	return nil
}

// Position returns the last recorded position of point i.
func (t *Tracker) Position(i int32) (mgl32.Vec3, error) {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()

	if i < 0 || int(i) >= t.count {
		return mgl32.Vec3{}, &ErrEntryOutOfRange{Index: i, Capacity: t.count}
	}
	return t.positions[i], nil
}

// Len returns the number of tracked points.
func (t *Tracker) Len() int {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.count
}

// Dirty returns the number of points that moved since the last rebuild.
func (t *Tracker) Dirty() int {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return int(t.dirty.GetCardinality())
}

// Rebuild rebuilds the index when points moved and the rebuild rate limit
// allows it. It reports whether a new tree was swapped in.
func (t *Tracker) Rebuild(ctx context.Context) (bool, error) {
	t.rebuildMu.Lock()
	defer t.rebuildMu.Unlock()

	if t.Dirty() == 0 || !t.ctrl.AllowRebuild() {
		return false, nil
	}
	return t.rebuild(ctx)
}

// Flush waits for the rebuild rate limit and rebuilds if any point moved.
func (t *Tracker) Flush(ctx context.Context) error {
	t.rebuildMu.Lock()
	defer t.rebuildMu.Unlock()

	if t.Dirty() == 0 {
		return nil
	}
	if err := t.ctrl.WaitRebuild(ctx); err != nil {
		return err
	}
	_, err := t.rebuild(ctx)
	return err
}

// rebuild must be called with rebuildMu held.
func (t *Tracker) rebuild(ctx context.Context) (bool, error) {
	start := time.Now()

	t.stateMu.Lock()
	n := t.count
	dirty := t.dirty.Clone()
	for i := 0; i < n; i++ {
		if err := t.back.AddEntry(int32(i), t.positions[i]); err != nil {
			t.stateMu.Unlock()
			return false, err
		}
	}
	snapshot := append([]mgl32.Vec3(nil), t.positions[:n]...)
	t.dirty.Clear()
	t.stateMu.Unlock()

	err := t.back.BuildSync(ctx, n)
	moved := int(dirty.GetCardinality())
	t.opts.logger.LogRebuild(ctx, n, moved, time.Since(start), err)
	t.opts.metricsCollector.RecordRebuild(moved, time.Since(start), err)
	if err != nil {
		t.stateMu.Lock()
		t.dirty.Or(dirty)
		t.stateMu.Unlock()
		return false, err
	}

	t.stateMu.Lock()
	copy(t.built, snapshot)
	// Points set during the build may have moved back under the threshold.
	it := t.dirty.Iterator()
	var settled []uint32
	for it.HasNext() {
		i := it.Next()
		if t.positions[i].Sub(t.built[i]).Len() <= t.opts.moveThreshold && int(i) < n {
			settled = append(settled, i)
		}
	}
	for _, i := range settled {
		t.dirty.Remove(i)
	}
	t.stateMu.Unlock()

	t.mu.Lock()
	t.front, t.back = t.back, t.front
	t.mu.Unlock()
	return true, nil
}

// RangeQuery runs Index.RangeQuery against the current tree.
func (t *Tracker) RangeQuery(queryIndex int32, position mgl32.Vec3, radius float32, out *queue.Heap[Neighbour]) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.front.RangeQuery(queryIndex, position, radius, out)
}

// Nearest runs Index.Nearest against the current tree.
func (t *Tracker) Nearest(queryIndex int32, position mgl32.Vec3, k int) ([]Neighbour, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.front.Nearest(queryIndex, position, k)
}

// Within runs Index.Within against the current tree.
func (t *Tracker) Within(queryIndex int32, position mgl32.Vec3, radius float32, dst *roaring.Bitmap) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.front.Within(queryIndex, position, radius, dst)
}

// Close releases both indexes. The tracker is unusable afterwards.
func (t *Tracker) Close() error {
	t.rebuildMu.Lock()
	defer t.rebuildMu.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()

	return errors.Join(t.front.Close(), t.back.Close())
}

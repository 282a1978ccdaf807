package spheretree

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/hupe1980/spheretree/internal/arena"
	"github.com/hupe1980/spheretree/internal/jobs"
	"github.com/hupe1980/spheretree/internal/pool"
	"github.com/hupe1980/spheretree/internal/resource"
	"github.com/hupe1980/spheretree/internal/tree"
	"github.com/hupe1980/spheretree/queue"
)

const (
	// MaxLeafSize is the largest number of entries a leaf holds unless the
	// depth limit or a degenerate bounding sphere stops splitting first.
	MaxLeafSize = tree.MaxLeafSize
	// MaxUnbalancedDepth is the depth a build may exceed a perfectly
	// balanced tree by.
	MaxUnbalancedDepth = tree.MaxUnbalancedDepth
	// MinLeavesPerWorker is the minimum number of full leaves per build worker.
	MinLeavesPerWorker = tree.MinLeavesPerWorker
	// MaxCapacity is the largest supported capacity.
	MaxCapacity = tree.MaxEntries
)

type (
	// Entry is one indexed point.
	Entry = tree.Entry
	// Neighbour is a query result, ordered by squared distance.
	Neighbour = tree.Neighbour
	// QueryStats counts the traversal work of one or more queries.
	QueryStats = tree.QueryStats
	// BuildStats describes the shape of the last completed build.
	BuildStats = tree.BuildStats
	// BuildHandle signals the completion of a build.
	BuildHandle = jobs.Handle
)

// Index is a fixed-capacity bounding-sphere tree over 3D points.
//
// Write every slot in [0, n) with AddEntry, then Build(n). Once the build
// handle completed, any number of goroutines may query concurrently.
// Rebuilding while queries run is not allowed. AddEntry only stages
// positions for the next build and may run alongside queries, but not
// alongside a build.
type Index struct {
	opts   options
	layout tree.Layout
	tree   *tree.Tree
	runner *jobs.Runner
	ctrl   *resource.Controller
	alloc  arena.Allocator

	stagingBlock *arena.Block
	entryBlock   *arena.Block
	nodeBlock    *arena.Block

	mu       sync.Mutex // guards pending and the buffers during Close
	pending  *jobs.Handle
	built    atomic.Bool
	building atomic.Bool
	closed   atomic.Bool
}

// New allocates an index for up to capacity entries.
func New(capacity int, optFns ...Option) (*Index, error) {
	o := applyOptions(optFns)
	ctx := context.Background()

	layout, err := tree.Plan(capacity, o.maxWorkers)
	if err != nil {
		err = translateError(err)
		o.logger.LogAllocate(ctx, capacity, 0, 0, o.offHeap, err)
		return nil, err
	}

	idx := &Index{
		opts:   o,
		layout: layout,
		ctrl:   o.resourceController(layout.Workers),
	}
	if o.offHeap {
		idx.alloc = arena.NewMapped(arena.WithMemoryAcquirer(idx.ctrl))
	} else {
		idx.alloc = arena.NewHeap(arena.WithMemoryAcquirer(idx.ctrl))
	}
	idx.runner = jobs.NewRunner(layout.Workers, idx.ctrl)

	bytes := layout.Bytes()
	if err := idx.allocate(); err != nil {
		idx.release()
		err = translateError(err)
		o.logger.LogAllocate(ctx, capacity, layout.Workers, bytes, o.offHeap, err)
		return nil, err
	}

	o.logger.LogAllocate(ctx, capacity, layout.Workers, bytes, o.offHeap, nil)
	return idx, nil
}

func (idx *Index) allocate() error {
	var err error
	if idx.stagingBlock, err = idx.alloc.Alloc(arena.SizeOf[tree.Entry](idx.layout.Capacity)); err != nil {
		return err
	}
	if idx.entryBlock, err = idx.alloc.Alloc(arena.SizeOf[tree.Entry](idx.layout.EntrySlots)); err != nil {
		return err
	}
	if idx.nodeBlock, err = idx.alloc.Alloc(arena.SizeOf[tree.Node](idx.layout.Nodes)); err != nil {
		return err
	}

	staging, err := arena.Slice[tree.Entry](idx.stagingBlock, idx.layout.Capacity)
	if err != nil {
		return err
	}
	entries, err := arena.Slice[tree.Entry](idx.entryBlock, idx.layout.EntrySlots)
	if err != nil {
		return err
	}
	nodes, err := arena.Slice[tree.Node](idx.nodeBlock, idx.layout.Nodes)
	if err != nil {
		return err
	}

	idx.tree, err = tree.New(idx.layout, staging, entries, nodes)
	return err
}

func (idx *Index) release() error {
	idx.tree = nil
	return errors.Join(
		idx.alloc.Free(idx.stagingBlock),
		idx.alloc.Free(idx.entryBlock),
		idx.alloc.Free(idx.nodeBlock),
	)
}

// Capacity returns the number of entries the index was created for.
func (idx *Index) Capacity() int { return idx.layout.Capacity }

// Workers returns the largest number of goroutines a build can use.
func (idx *Index) Workers() int { return idx.layout.Workers }

// MemoryUsage returns the bytes currently allocated for buffers.
func (idx *Index) MemoryUsage() int64 { return idx.ctrl.MemoryUsage() }

// NumEntries returns the entry count of the last completed build.
func (idx *Index) NumEntries() int {
	if !idx.built.Load() || idx.closed.Load() {
		return 0
	}
	return idx.tree.NumEntries()
}

// AddEntry writes position into slot i for the next build. The entry keeps i
// as its index. A completed build keeps answering queries with the positions
// it was built from.
func (idx *Index) AddEntry(i int32, position mgl32.Vec3) error {
	if idx.closed.Load() {
		return ErrClosed
	}
	if idx.building.Load() {
		return ErrBuildInProgress
	}
	if i < 0 || int(i) >= idx.layout.Capacity {
		return &ErrEntryOutOfRange{Index: i, Capacity: idx.layout.Capacity}
	}
	idx.tree.Set(int(i), position)
	return nil
}

// Build starts building the tree over slots [0, numEntries) and returns
// without waiting. The returned handle completes when the tree is ready to
// query; Build itself never blocks on the build.
//
// Cancelling ctx aborts the build and leaves the index unbuilt.
func (idx *Index) Build(ctx context.Context, numEntries int) (*BuildHandle, error) {
	if idx.closed.Load() {
		return nil, ErrClosed
	}
	if numEntries < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeEntryCount, numEntries)
	}
	if numEntries > idx.layout.Capacity {
		return nil, fmt.Errorf("%w: %d entries, capacity %d", ErrCapacityExceeded, numEntries, idx.layout.Capacity)
	}
	if !idx.building.CompareAndSwap(false, true) {
		return nil, ErrBuildInProgress
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed.Load() {
		idx.building.Store(false)
		return nil, ErrClosed
	}

	idx.built.Store(false)
	_ = idx.stagingBlock.Prefetch()
	start := time.Now()
	h := idx.tree.Build(ctx, idx.runner, numEntries, func(err error) {
		err = translateError(err)
		stats := idx.tree.BuildStats()
		idx.opts.logger.LogBuild(ctx, numEntries, stats.Workers, stats.Waves, time.Since(start), err)
		idx.opts.metricsCollector.RecordBuild(numEntries, stats.Workers, time.Since(start), err)
		idx.built.Store(err == nil)
		idx.building.Store(false)
	})
	idx.pending = h
	return h, nil
}

// BuildSync builds the tree and waits for it.
func (idx *Index) BuildSync(ctx context.Context, numEntries int) error {
	h, err := idx.Build(ctx, numEntries)
	if err != nil {
		return err
	}
	return translateError(h.Wait())
}

func (idx *Index) checkQuery() error {
	if idx.closed.Load() {
		return ErrClosed
	}
	return nil
}

// RangeQuery finds up to out.Cap() entries within radius of position,
// skipping the entry whose index is queryIndex, and returns how many out
// holds. When more entries qualify the closest ones are kept. out must be a
// Max-mode heap; it is not reset, so earlier contents take part in the
// selection.
//
// Pass radius = +Inf to get the out.Cap() nearest entries. A negative or NaN
// radius, or an index that has not completed a build, finds nothing.
func (idx *Index) RangeQuery(queryIndex int32, position mgl32.Vec3, radius float32, out *queue.Heap[Neighbour]) (int, error) {
	return idx.RangeQueryStats(queryIndex, position, radius, out, nil)
}

// RangeQueryStats is RangeQuery that also adds its traversal counts to stats.
func (idx *Index) RangeQueryStats(queryIndex int32, position mgl32.Vec3, radius float32, out *queue.Heap[Neighbour], stats *QueryStats) (int, error) {
	start := time.Now()
	n, err := idx.rangeQuery(queryIndex, position, radius, out, stats)
	idx.opts.metricsCollector.RecordQuery(n, time.Since(start), err)
	return n, err
}

func (idx *Index) rangeQuery(queryIndex int32, position mgl32.Vec3, radius float32, out *queue.Heap[Neighbour], stats *QueryStats) (int, error) {
	if err := idx.checkQuery(); err != nil {
		return 0, err
	}
	if out == nil || out.Mode() != queue.Max {
		return 0, ErrHeapMode
	}
	if !idx.built.Load() {
		return out.Len(), nil
	}
	return idx.tree.RangeQuery(queryIndex, position, radius, out, stats), nil
}

// Nearest returns the k entries closest to position, skipping queryIndex,
// ordered by ascending distance.
func (idx *Index) Nearest(queryIndex int32, position mgl32.Vec3, k int) ([]Neighbour, error) {
	start := time.Now()
	res, err := idx.nearest(queryIndex, position, k)
	idx.opts.metricsCollector.RecordQuery(len(res), time.Since(start), err)
	return res, err
}

func (idx *Index) nearest(queryIndex int32, position mgl32.Vec3, k int) ([]Neighbour, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if err := idx.checkQuery(); err != nil {
		return nil, err
	}
	if !idx.built.Load() {
		return nil, nil
	}

	n := min(k, idx.tree.NumEntries())
	if n == 0 {
		return nil, nil
	}
	scratch := pool.Get()
	defer pool.Put(scratch)

	h, err := scratch.Heap(n)
	if err != nil {
		return nil, err
	}
	idx.tree.RangeQuery(queryIndex, position, float32(math.Inf(1)), h, nil)
	return h.Sorted(), nil
}

// Within adds the index of every entry within radius of position to dst,
// skipping queryIndex, and returns how many entries matched. Unlike
// RangeQuery the result is not bounded.
func (idx *Index) Within(queryIndex int32, position mgl32.Vec3, radius float32, dst *roaring.Bitmap) (int, error) {
	start := time.Now()
	n, err := idx.within(queryIndex, position, radius, dst)
	idx.opts.metricsCollector.RecordQuery(n, time.Since(start), err)
	return n, err
}

func (idx *Index) within(queryIndex int32, position mgl32.Vec3, radius float32, dst *roaring.Bitmap) (int, error) {
	if err := idx.checkQuery(); err != nil {
		return 0, err
	}
	if dst == nil {
		return 0, ErrNilBitmap
	}
	if !idx.built.Load() {
		return 0, nil
	}
	return idx.tree.Within(queryIndex, position, radius, dst, nil), nil
}

// BuildStats reports the shape of the last completed build.
func (idx *Index) BuildStats() (BuildStats, error) {
	if idx.closed.Load() {
		return BuildStats{}, ErrClosed
	}
	if !idx.built.Load() {
		return BuildStats{}, ErrNotBuilt
	}
	return idx.tree.BuildStats(), nil
}

// Validate checks the structural invariants of the last completed build.
func (idx *Index) Validate() error {
	if idx.closed.Load() {
		return ErrClosed
	}
	if !idx.built.Load() {
		return ErrNotBuilt
	}
	return translateError(idx.tree.Validate())
}

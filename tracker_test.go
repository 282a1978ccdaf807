package spheretree_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spheretree"
	"github.com/hupe1980/spheretree/queue"
)

func linePoints(t *testing.T, tr *spheretree.Tracker, n int) {
	t.Helper()
	for i := range n {
		require.NoError(t, tr.Set(int32(i), mgl32.Vec3{float32(i), 0, 0}))
	}
}

func TestTracker_RebuildOnMove(t *testing.T) {
	tr, err := spheretree.NewTracker(64, spheretree.WithMoveThreshold(0.5))
	require.NoError(t, err)
	defer tr.Close()

	// Nothing to query before the first rebuild.
	got, err := tr.Nearest(-1, mgl32.Vec3{}, 1)
	require.NoError(t, err)
	assert.Empty(t, got)

	linePoints(t, tr, 50)
	assert.Equal(t, 50, tr.Len())
	assert.Equal(t, 50, tr.Dirty())

	rebuilt, err := tr.Rebuild(context.Background())
	require.NoError(t, err)
	assert.True(t, rebuilt)
	assert.Zero(t, tr.Dirty())

	got, err = tr.Nearest(-1, mgl32.Vec3{10.2, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(10), got[0].Index)

	// Nothing moved.
	rebuilt, err = tr.Rebuild(context.Background())
	require.NoError(t, err)
	assert.False(t, rebuilt)

	// Jitter below the threshold does not count.
	require.NoError(t, tr.Set(10, mgl32.Vec3{10.3, 0, 0}))
	assert.Zero(t, tr.Dirty())

	require.NoError(t, tr.Set(10, mgl32.Vec3{100, 0, 0}))
	assert.Equal(t, 1, tr.Dirty())
	rebuilt, err = tr.Rebuild(context.Background())
	require.NoError(t, err)
	assert.True(t, rebuilt)

	got, err = tr.Nearest(-1, mgl32.Vec3{10.2, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(11), got[0].Index)

	pos, err := tr.Position(10)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{100, 0, 0}, pos)
}

func TestTracker_RateLimited(t *testing.T) {
	tr, err := spheretree.NewTracker(32, spheretree.WithRebuildLimit(time.Hour, 1))
	require.NoError(t, err)
	defer tr.Close()

	linePoints(t, tr, 20)
	rebuilt, err := tr.Rebuild(context.Background())
	require.NoError(t, err)
	assert.True(t, rebuilt)

	require.NoError(t, tr.Set(0, mgl32.Vec3{0, 5, 0}))
	rebuilt, err = tr.Rebuild(context.Background())
	require.NoError(t, err)
	assert.False(t, rebuilt)
	assert.Equal(t, 1, tr.Dirty())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, tr.Flush(ctx))
	assert.Equal(t, 1, tr.Dirty())
}

func TestTracker_Flush(t *testing.T) {
	var buf bytes.Buffer
	logger := spheretree.NewLogger(slog.NewJSONHandler(&buf, nil))
	tr, err := spheretree.NewTracker(16, spheretree.WithLogger(logger))
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Flush(context.Background()))

	linePoints(t, tr, 4)
	require.NoError(t, tr.Flush(context.Background()))
	assert.Zero(t, tr.Dirty())

	out, err := queue.New[spheretree.Neighbour](4, queue.Max)
	require.NoError(t, err)
	n, err := tr.RangeQuery(0, mgl32.Vec3{}, 1.5, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Contains(t, buf.String(), `"msg":"rebuild completed"`)
	assert.Contains(t, buf.String(), `"capacity":16`)
}

func TestTracker_OutOfRange(t *testing.T) {
	tr, err := spheretree.NewTracker(4)
	require.NoError(t, err)
	defer tr.Close()

	var oor *spheretree.ErrEntryOutOfRange
	assert.ErrorAs(t, tr.Set(4, mgl32.Vec3{}), &oor)
	assert.ErrorAs(t, tr.Set(-1, mgl32.Vec3{}), &oor)

	_, err = tr.Position(0)
	assert.ErrorAs(t, err, &oor)
}

func TestTracker_SharedMemoryLimit(t *testing.T) {
	// Room for one index but not for two.
	single, err := spheretree.New(10000)
	require.NoError(t, err)
	limit := single.MemoryUsage() + single.MemoryUsage()/2
	require.NoError(t, single.Close())

	_, err = spheretree.NewTracker(10000, spheretree.WithMemoryLimit(limit))
	assert.ErrorIs(t, err, spheretree.ErrAllocation)
}

func TestTracker_QueriesDuringRebuild(t *testing.T) {
	const n = 2000
	tr, err := spheretree.NewTracker(n, spheretree.WithMaxWorkers(4))
	require.NoError(t, err)
	defer tr.Close()

	for i := range n {
		require.NoError(t, tr.Set(int32(i), mgl32.Vec3{float32(i % 20), float32(i / 20 % 10), float32(i / 200)}))
	}
	_, err = tr.Rebuild(context.Background())
	require.NoError(t, err)

	var stop atomic.Bool
	var wg sync.WaitGroup
	var failures atomic.Int32
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, _ := queue.New[spheretree.Neighbour](6, queue.Max)
			for !stop.Load() {
				out.Reset()
				n, err := tr.RangeQuery(-1, mgl32.Vec3{5, 5, 5}, 1.01, out)
				// The grid never changes shape, so every tree has the same answer.
				if err != nil || n != 6 {
					failures.Add(1)
				}
			}
		}()
	}

	for round := range 20 {
		for i := range n {
			p := mgl32.Vec3{float32(i % 20), float32(i / 20 % 10), float32(i / 200)}
			p[0] += float32(round%2) * 1e-3
			require.NoError(t, tr.Set(int32(i), p))
		}
		_, err := tr.Rebuild(context.Background())
		require.NoError(t, err)
	}

	stop.Store(true)
	wg.Wait()
	assert.Zero(t, failures.Load())
}

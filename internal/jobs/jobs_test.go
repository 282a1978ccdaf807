package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/spheretree/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_WaveRunsEveryUnit(t *testing.T) {
	r := NewRunner(4, nil)

	seen := make([]atomic.Int32, 64)
	err := r.RunWave(t.Context(), Wave{Units: 64, Run: func(i int) { seen[i].Add(1) }})
	require.NoError(t, err)

	for i := range seen {
		assert.Equal(t, int32(1), seen[i].Load(), "unit %d", i)
	}
}

func TestRunner_WavesAreOrdered(t *testing.T) {
	r := NewRunner(8, nil)

	var mu sync.Mutex
	var log []int

	waves := make([]Wave, 0, 4)
	for d := range 4 {
		waves = append(waves, Wave{Units: 1 << d, Run: func(int) {
			mu.Lock()
			log = append(log, d)
			mu.Unlock()
		}})
	}
	require.NoError(t, r.Run(t.Context(), waves...))

	require.Len(t, log, 1+2+4+8)
	for i := 1; i < len(log); i++ {
		assert.LessOrEqual(t, log[i-1], log[i], "wave %d ran before wave %d finished", log[i], log[i-1])
	}
}

func TestRunner_RespectsLimit(t *testing.T) {
	ctrl := resource.NewController(resource.Config{MaxWorkers: 2})
	r := NewRunner(8, ctrl)

	var active, peak atomic.Int32
	err := r.RunWave(t.Context(), Wave{Units: 16, Run: func(int) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
	}})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunner_Cancelled(t *testing.T) {
	r := NewRunner(2, nil)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	var ran atomic.Int32
	err := r.Run(ctx, Wave{Units: 4, Run: func(int) { ran.Add(1) }})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), ran.Load())
}

func TestRunner_CancelAfterLastUnitStarted(t *testing.T) {
	r := NewRunner(1, nil)

	t.Run("wave", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		var ran atomic.Int32
		err := r.RunWave(ctx, Wave{Units: 4, Run: func(i int) {
			ran.Add(1)
			if i == 3 {
				cancel()
			}
		}})
		require.NoError(t, err)
		assert.Equal(t, int32(4), ran.Load())
	})

	t.Run("single unit", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		err := r.RunWave(ctx, Wave{Units: 1, Run: func(int) { cancel() }})
		assert.NoError(t, err)
	})
}

func TestRunner_CancelSkipsRemainingUnits(t *testing.T) {
	r := NewRunner(1, nil)
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var ran atomic.Int32
	err := r.RunWave(ctx, Wave{Units: 4, Run: func(int) {
		ran.Add(1)
		cancel()
	}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), ran.Load())
}

func TestRunner_Schedule(t *testing.T) {
	r := NewRunner(2, nil)

	release := make(chan struct{})
	var observed error = errors.New("unset")
	h := r.Schedule(t.Context(), func(err error) { observed = err }, Wave{Units: 1, Run: func(int) { <-release }})

	assert.NoError(t, h.Err())
	select {
	case <-h.Done():
		t.Fatal("handle finished before the wave ran")
	default:
	}

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.WaitContext(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, h.Wait())
	assert.NoError(t, observed)
}

func TestCompleted(t *testing.T) {
	boom := errors.New("boom")
	h := Completed(boom)
	assert.ErrorIs(t, h.Wait(), boom)
	assert.ErrorIs(t, h.Err(), boom)

	select {
	case <-h.Done():
	default:
		t.Fatal("completed handle not done")
	}
}

func TestNewRunner_MinimumLimit(t *testing.T) {
	assert.Equal(t, 1, NewRunner(0, nil).Limit())
	assert.Equal(t, 3, NewRunner(3, nil).Limit())
}

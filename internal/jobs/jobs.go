package jobs

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/spheretree/internal/resource"
)

// Wave is a batch of independent units. Units of one wave may run in any
// order or concurrently; the next wave starts only after all of them returned.
type Wave struct {
	Units int
	Run   func(unit int)
}

// Runner executes waves on a bounded set of goroutines.
type Runner struct {
	limit int
	ctrl  *resource.Controller
}

// NewRunner creates a runner that runs at most limit units of a wave at once.
// If ctrl is not nil every running unit also holds one of its worker slots.
func NewRunner(limit int, ctrl *resource.Controller) *Runner {
	if limit < 1 {
		limit = 1
	}
	return &Runner{limit: limit, ctrl: ctrl}
}

// Limit returns the per-wave concurrency limit.
func (r *Runner) Limit() int { return r.limit }

// RunWave runs every unit of w and waits for all of them. Cancellation is
// checked before each unit starts; a wave whose units all ran succeeds.
func (r *Runner) RunWave(ctx context.Context, w Wave) error {
	if w.Units <= 0 {
		return nil
	}
	if w.Units == 1 {
		return r.unit(ctx, w, 0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	var skipped error
	for i := 0; i < w.Units; i++ {
		if err := gctx.Err(); err != nil {
			skipped = err
			break
		}
		g.Go(func() error {
			return r.unit(gctx, w, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return skipped
}

func (r *Runner) unit(ctx context.Context, w Wave, i int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.ctrl.AcquireWorker(ctx); err != nil {
		return err
	}
	defer r.ctrl.ReleaseWorker()
	w.Run(i)
	return nil
}

// Run executes waves in order, joining after each one.
func (r *Runner) Run(ctx context.Context, waves ...Wave) error {
	for _, w := range waves {
		if err := r.RunWave(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// Schedule runs waves in the background and returns their completion handle.
// onDone, if set, observes the result before the handle is signaled.
func (r *Runner) Schedule(ctx context.Context, onDone func(error), waves ...Wave) *Handle {
	h := newHandle()
	go func() {
		err := r.Run(ctx, waves...)
		if onDone != nil {
			onDone(err)
		}
		h.finish(err)
	}()
	return h
}

// Handle is the completion signal of scheduled work.
type Handle struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

// Completed returns a handle that is already finished with err.
func Completed(err error) *Handle {
	h := newHandle()
	h.finish(err)
	return h
}

func (h *Handle) finish(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

// Done returns a channel that is closed once the work finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the work finished and returns its error.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// WaitContext is like Wait but gives up when ctx is done. The scheduled work
// keeps running.
func (h *Handle) WaitContext(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the result of finished work, or nil while it is still running.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

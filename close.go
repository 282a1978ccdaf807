package spheretree

import "context"

// Close waits for a running build and releases the entry and node buffers.
// The index is unusable afterwards. Closing twice is a no-op.
//
// Close must not run concurrently with queries.
func (idx *Index) Close() error {
	if idx == nil || !idx.closed.CompareAndSwap(false, true) {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.pending != nil {
		_ = idx.pending.Wait()
		idx.pending = nil
	}
	idx.built.Store(false)

	err := translateError(idx.release())
	idx.opts.logger.LogDispose(context.Background(), idx.layout.Capacity, err)
	return err
}

// Package resource implements the Controller for shared limits across indexes.
//
// The Controller provides centralized management of three resource types:
//
//   - Memory: Track and limit entry/node buffer bytes (non-blocking, fail-fast)
//   - Concurrency: Limit build units running at once
//   - Rebuilds: Rate-limit tracker rebuilds (token bucket)
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                        Controller                           │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Memory Limit   │  Build Workers  │  Rebuild Limiter        │
//	│  (fail-fast)    │  (semaphore)    │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireWorker  │  AllowRebuild           │
//	│  ReleaseMemory  │  ReleaseWorker  │  WaitRebuild            │
//	│  MemoryUsage    │                 │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage tracking. AcquireMemory is non-blocking and returns immediately
// with ErrMemoryLimitExceeded if the limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	if err := rc.AcquireMemory(1024*1024); err != nil {
//	    // ErrMemoryLimitExceeded - surfaced as an allocation error
//	}
//	defer rc.ReleaseMemory(1024*1024)
//
// # Worker Limits
//
// Every unit of a build wave holds one worker slot while it runs:
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use.
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
package resource

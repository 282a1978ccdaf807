package spheretree

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/hupe1980/spheretree/internal/resource"
)

type options struct {
	maxWorkers       int
	metricsCollector MetricsCollector
	logger           *Logger
	memoryLimit      int64
	offHeap          bool
	rebuildInterval  time.Duration
	rebuildBurst     int
	moveThreshold    float32
	controller       *resource.Controller // shared by the indexes of a Tracker
}

// Option configures Index and Tracker construction.
type Option func(*options)

// WithMaxWorkers caps the number of goroutines a build may use.
//
// The effective worker count of a build is the largest power of two not
// above maxWorkers that still leaves every worker MinLeavesPerWorker full
// leaves; small indexes therefore build serially no matter what is set here.
//
// Defaults to runtime.GOMAXPROCS(0). Values below 1 mean 1.
func WithMaxWorkers(maxWorkers int) Option {
	return func(o *options) {
		o.maxWorkers = maxWorkers
	}
}

// WithMemoryLimit caps the bytes an index (or both indexes of a Tracker)
// may allocate for entry and node buffers. Construction fails with
// ErrAllocation when the limit would be exceeded. 0 means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithOffHeap places the entry and node buffers in anonymous memory
// mappings outside the Go heap. Large indexes then add no GC scan or
// heap-growth pressure. The memory is returned to the OS by Close.
func WithOffHeap() Option {
	return func(o *options) {
		o.offHeap = true
	}
}

// WithRebuildLimit rate limits Tracker rebuilds to one per interval with
// the given burst. An interval of 0 disables the limit.
//
// Example:
//
//	// Rebuild at most 10 times per second.
//	tr, _ := spheretree.NewTracker(4096, spheretree.WithRebuildLimit(100*time.Millisecond, 1))
func WithRebuildLimit(interval time.Duration, burst int) Option {
	return func(o *options) {
		o.rebuildInterval = interval
		o.rebuildBurst = burst
	}
}

// WithMoveThreshold sets how far a tracked point has to move away from the
// position it was last built at before the Tracker considers it dirty.
// Defaults to 0: any movement marks it dirty.
func WithMoveThreshold(distance float32) Option {
	return func(o *options) {
		o.moveThreshold = distance
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &spheretree.BasicMetricsCollector{}
//	idx, _ := spheretree.New(1024, spheretree.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := spheretree.NewJSONLogger(slog.LevelDebug)
//	idx, _ := spheretree.New(1024, spheretree.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func withController(c *resource.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		maxWorkers:       runtime.GOMAXPROCS(0),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.maxWorkers < 1 {
		o.maxWorkers = 1
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

func (o *options) resourceController(workers int) *resource.Controller {
	if o.controller != nil {
		return o.controller
	}
	return resource.NewController(resource.Config{
		MemoryLimitBytes: o.memoryLimit,
		MaxWorkers:       int64(workers),
		RebuildInterval:  o.rebuildInterval,
		RebuildBurst:     o.rebuildBurst,
	})
}

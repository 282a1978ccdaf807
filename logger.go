package spheretree

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with spheretree-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithCapacity adds a capacity field to the logger.
func (l *Logger) WithCapacity(capacity int) *Logger {
	return &Logger{
		Logger: l.Logger.With("capacity", capacity),
	}
}

// LogAllocate logs the allocation of an index.
func (l *Logger) LogAllocate(ctx context.Context, capacity, workers, bytes int, offHeap bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "allocate failed",
			"capacity", capacity,
			"bytes", bytes,
			"off_heap", offHeap,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "index allocated",
			"capacity", capacity,
			"workers", workers,
			"bytes", bytes,
			"off_heap", offHeap,
		)
	}
}

// LogBuild logs a completed build.
func (l *Logger) LogBuild(ctx context.Context, entries, workers, waves int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"entries", entries,
			"workers", workers,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "build completed",
			"entries", entries,
			"workers", workers,
			"waves", waves,
			"duration", duration,
		)
	}
}

// LogRebuild logs a tracker rebuild.
func (l *Logger) LogRebuild(ctx context.Context, entries, dirty int, duration time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "rebuild failed",
			"entries", entries,
			"dirty", dirty,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "rebuild completed",
			"entries", entries,
			"dirty", dirty,
			"duration", duration,
		)
	}
}

// LogDispose logs the release of an index's buffers.
func (l *Logger) LogDispose(ctx context.Context, capacity int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "dispose failed",
			"capacity", capacity,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "index disposed",
			"capacity", capacity,
		)
	}
}

package tagfind

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with tagfind-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		})),
	}
}

// WithBackend adds a backend name field to the logger.
func (l *Logger) WithBackend(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("backend", name),
	}
}

// WithTags adds the tag list to the logger.
func (l *Logger) WithTags(tags []Tag) *Logger {
	rendered := make([]string, len(tags))
	for i, t := range tags {
		rendered[i] = t.String()
	}
	return &Logger{
		Logger: l.Logger.With("tags", rendered),
	}
}

// LogFoldStep logs one intersection step.
func (l *Logger) LogFoldStep(ctx context.Context, step, total int) {
	l.DebugContext(ctx, "intersect",
		"step", step,
		"queries", total,
	)
}

// LogShortCircuit logs an evaluation that stopped on an empty intermediate
// result.
func (l *Logger) LogShortCircuit(ctx context.Context, step, skipped int) {
	l.DebugContext(ctx, "intersection empty, skipping remaining queries",
		"step", step,
		"skipped", skipped,
	)
}

// LogFind logs a completed evaluation.
func (l *Logger) LogFind(ctx context.Context, queries, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "find failed",
			"queries", queries,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "find completed",
			"queries", queries,
			"results", resultsFound,
		)
	}
}

// LogTag logs a vertex write.
func (l *Logger) LogTag(ctx context.Context, id string, tags int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "tag failed",
			"id", id,
			"tags", tags,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "tag completed",
			"id", id,
			"tags", tags,
		)
	}
}

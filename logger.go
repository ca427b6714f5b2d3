package ckpt

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with ckpt-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithRun adds a run identifier field to the logger.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", runID),
	}
}

// LogRetain logs a round whose observation entered the ledger.
func (l *Logger) LogRetain(ctx context.Context, epoch int, monitor string, val, best float64) {
	l.InfoContext(ctx, "checkpoint retained",
		"epoch", epoch,
		monitor, val,
		"best", best,
	)
}

// LogSkip logs a round that did not improve the retained set.
func (l *Logger) LogSkip(ctx context.Context, epoch int, monitor string, val, best float64, patience int) {
	l.InfoContext(ctx, "checkpoint skipped",
		"epoch", epoch,
		monitor, val,
		"best", best,
		"patience_count", patience,
	)
}

// LogWrite logs a payload write.
func (l *Logger) LogWrite(ctx context.Context, name string, err error) {
	if err != nil {
		l.WarnContext(ctx, "checkpoint write failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "checkpoint written",
			"name", name,
		)
	}
}

// LogEvict logs the storage delete for an evicted epoch.
func (l *Logger) LogEvict(ctx context.Context, epoch, removed int, err error) {
	if err != nil {
		l.WarnContext(ctx, "eviction delete failed",
			"epoch", epoch,
			"removed", removed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "evicted checkpoint removed",
			"epoch", epoch,
			"removed", removed,
		)
	}
}

// LogHalt logs patience exhaustion.
func (l *Logger) LogHalt(ctx context.Context, epoch, patience int) {
	l.InfoContext(ctx, "patience exhausted",
		"epoch", epoch,
		"patience", patience,
	)
}

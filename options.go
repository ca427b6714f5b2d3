package ckpt

import (
	"github.com/hupe1980/ckpt/internal/fs"
	"github.com/hupe1980/ckpt/runindex"
)

type options struct {
	monitor  string
	mode     Mode
	saveTopK int
	patience int
	suffix   string
	logger   *Logger
	metrics  MetricsCollector
	fsys     fs.FileSystem
	runIndex runindex.Index
}

func defaultOptions() options {
	return options{
		monitor:  "acc/val",
		mode:     ModeMax,
		saveTopK: 5,
		patience: 10,
		suffix:   DefaultSuffix,
		logger:   NewLogger(nil),
		metrics:  NoopMetricsCollector{},
		fsys:     fs.Default,
	}
}

// Option configures Manager construction.
type Option func(*options)

// WithMonitor sets the metrics key that drives ranking.
func WithMonitor(key string) Option {
	return func(o *options) {
		o.monitor = key
	}
}

// WithMode sets the direction in which the monitored metric improves.
func WithMode(mode Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithSaveTopK sets how many checkpoints to retain.
func WithSaveTopK(k int) Option {
	return func(o *options) {
		o.saveTopK = k
	}
}

// WithPatience sets how many consecutive non-improving rounds are tolerated
// before PatienceExhausted reports true.
func WithPatience(patience int) Option {
	return func(o *options) {
		o.patience = patience
	}
}

// WithSuffix overrides the extension of generated blob names.
func WithSuffix(suffix string) Option {
	return func(o *options) {
		o.suffix = suffix
	}
}

// WithLogger configures the logger. Pass NoopLogger() to silence the manager.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// retention activity. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithFileSystem overrides the file system used by New for destination
// creation and the local store. Intended for tests and fault injection.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fsys = fsys
	}
}

// WithRunIndex attaches an external run index that mirrors the retained set
// after every mutating round. Index failures are logged and never fail a
// round; the index is a harness-side convenience, not part of ledger state.
func WithRunIndex(idx runindex.Index) Option {
	return func(o *options) {
		o.runIndex = idx
	}
}

package ckpt

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems.
type MetricsCollector interface {
	// RecordStep is called after each completed round.
	// improved is true when the round mutated the ledger.
	RecordStep(improved bool, duration time.Duration)

	// RecordWrite is called after each payload write attempt.
	RecordWrite(duration time.Duration, err error)

	// RecordEvict is called after each eviction delete attempt.
	// removed is the number of blobs deleted.
	RecordEvict(removed int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordStep(bool, time.Duration)   {}
func (NoopMetricsCollector) RecordWrite(time.Duration, error) {}
func (NoopMetricsCollector) RecordEvict(int, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	StepCount       atomic.Int64
	ImprovedCount   atomic.Int64
	StepTotalNanos  atomic.Int64
	WriteCount      atomic.Int64
	WriteErrors     atomic.Int64
	WriteTotalNanos atomic.Int64
	EvictCount      atomic.Int64
	EvictErrors     atomic.Int64
	EvictedBlobs    atomic.Int64
}

// RecordStep implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStep(improved bool, duration time.Duration) {
	b.StepCount.Add(1)
	b.StepTotalNanos.Add(duration.Nanoseconds())
	if improved {
		b.ImprovedCount.Add(1)
	}
}

// RecordWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWrite(duration time.Duration, err error) {
	b.WriteCount.Add(1)
	b.WriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WriteErrors.Add(1)
	}
}

// RecordEvict implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEvict(removed int, err error) {
	b.EvictCount.Add(1)
	b.EvictedBlobs.Add(int64(removed))
	if err != nil {
		b.EvictErrors.Add(1)
	}
}

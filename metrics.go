package tagfind

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordFind is called after each evaluation. queries is the number of
	// compiled predicates, results the size of the result (0 on error).
	RecordFind(queries, results int, duration time.Duration, err error)

	// RecordFoldStep is called after each backend Intersect call.
	RecordFoldStep()

	// RecordShortCircuit is called when an evaluation stops early because
	// the running intersection became empty. skipped is the number of
	// queries that were never intersected.
	RecordShortCircuit(skipped int)

	// RecordTag is called after each vertex write.
	RecordTag(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFind(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordFoldStep()                           {}
func (NoopMetricsCollector) RecordShortCircuit(int)                    {}
func (NoopMetricsCollector) RecordTag(time.Duration, error)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FindCount      atomic.Int64
	FindErrors     atomic.Int64
	FindTotalNanos atomic.Int64
	FindResults    atomic.Int64
	FoldSteps      atomic.Int64
	ShortCircuits  atomic.Int64
	SkippedQueries atomic.Int64
	TagCount       atomic.Int64
	TagErrors      atomic.Int64
}

// RecordFind implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFind(queries, results int, duration time.Duration, err error) {
	b.FindCount.Add(1)
	b.FindTotalNanos.Add(duration.Nanoseconds())
	b.FindResults.Add(int64(results))
	if err != nil {
		b.FindErrors.Add(1)
	}
}

// RecordFoldStep implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFoldStep() {
	b.FoldSteps.Add(1)
}

// RecordShortCircuit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordShortCircuit(skipped int) {
	b.ShortCircuits.Add(1)
	b.SkippedQueries.Add(int64(skipped))
}

// RecordTag implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTag(duration time.Duration, err error) {
	b.TagCount.Add(1)
	if err != nil {
		b.TagErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FindCount:      b.FindCount.Load(),
		FindErrors:     b.FindErrors.Load(),
		FindAvgNanos:   b.getAvgFindNanos(),
		FindResults:    b.FindResults.Load(),
		FoldSteps:      b.FoldSteps.Load(),
		ShortCircuits:  b.ShortCircuits.Load(),
		SkippedQueries: b.SkippedQueries.Load(),
		TagCount:       b.TagCount.Load(),
		TagErrors:      b.TagErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgFindNanos() int64 {
	count := b.FindCount.Load()
	if count == 0 {
		return 0
	}
	return b.FindTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FindCount      int64
	FindErrors     int64
	FindAvgNanos   int64
	FindResults    int64
	FoldSteps      int64
	ShortCircuits  int64
	SkippedQueries int64
	TagCount       int64
	TagErrors      int64
}

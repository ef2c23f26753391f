package tagfind

import (
	"log/slog"
)

// EmptyTagPolicy decides what an evaluation over an empty tag list returns.
type EmptyTagPolicy int

const (
	// Reject fails with ErrNoTags. This is the default: an empty conjunction
	// is almost always a caller bug.
	Reject EmptyTagPolicy = iota

	// MatchAll returns every vertex of the backend. The backend must
	// implement graph.Universe, otherwise the call fails with ErrNoTags.
	MatchAll
)

// DefaultConcurrency bounds FindAll when no WithConcurrency option is given.
const DefaultConcurrency = 4

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	emptyTags        EmptyTagPolicy
	concurrency      int
}

func defaultOptions() options {
	return options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		emptyTags:        Reject,
		concurrency:      DefaultConcurrency,
	}
}

// Option configures an Engine or TagStore.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring
// evaluations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &tagfind.BasicMetricsCollector{}
//	e := tagfind.New(backend, tagfind.WithMetricsCollector(metrics))
//	// ... use e ...
//	stats := metrics.GetStats()
//	fmt.Printf("Finds: %d, short-circuits: %d\n", stats.FindCount, stats.ShortCircuits)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for evaluations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := tagfind.NewJSONLogger(slog.LevelDebug)
//	e := tagfind.New(backend, tagfind.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
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

// WithEmptyTags sets the policy for empty tag lists. The default is Reject.
func WithEmptyTags(p EmptyTagPolicy) Option {
	return func(o *options) {
		o.emptyTags = p
	}
}

// WithConcurrency bounds the number of tag lists FindAll evaluates at once.
// Values below 1 fall back to DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = DefaultConcurrency
		}
		o.concurrency = n
	}
}

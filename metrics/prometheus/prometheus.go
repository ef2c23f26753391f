// Package prometheus exports engine and server metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, err := tagprom.New(reg, "tagfind")
//	e := tagfind.New(backend, tagfind.WithMetricsCollector(mc))
package prometheus

import (
	"errors"
	"time"

	"github.com/hupe1980/tagfind"
	"github.com/prometheus/client_golang/prometheus"
)

// Status labels.
const (
	StatusSuccess          = "success"
	StatusInvalidPredicate = "invalid_predicate"
	StatusNoTags           = "no_tags"
	StatusUnavailable      = "unavailable"
	StatusTimeout          = "timeout"
	StatusError            = "error"
)

// Collector implements tagfind.MetricsCollector.
type Collector struct {
	finds         *prometheus.CounterVec
	findDuration  *prometheus.HistogramVec
	findResults   prometheus.Histogram
	foldSteps     prometheus.Counter
	shortCircuits prometheus.Counter
	skipped       prometheus.Counter
	tags          *prometheus.CounterVec
	tagDuration   prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

var _ tagfind.MetricsCollector = (*Collector)(nil)

// New creates a collector and registers its metrics with reg. An empty
// namespace defaults to "tagfind".
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = "tagfind"
	}

	c := &Collector{
		finds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finds_total",
			Help:      "Total number of tag intersections evaluated",
		}, []string{"status"}),
		findDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "find_duration_seconds",
			Help:      "Duration of tag intersections in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		findResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "find_results",
			Help:      "Number of vertices returned per successful evaluation",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		foldSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fold_steps_total",
			Help:      "Total number of backend Intersect calls",
		}),
		shortCircuits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "short_circuits_total",
			Help:      "Evaluations stopped early on an empty intersection",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_queries_total",
			Help:      "Predicates never intersected because of a short circuit",
		}),
		tags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tag_writes_total",
			Help:      "Total number of vertex tag writes",
		}, []string{"status"}),
		tagDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tag_write_duration_seconds",
			Help:      "Duration of vertex tag writes in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
	}

	for _, m := range []prometheus.Collector{
		c.finds, c.findDuration, c.findResults, c.foldSteps, c.shortCircuits,
		c.skipped, c.tags, c.tagDuration, c.httpRequests, c.httpDuration,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics on registration errors.
func MustNew(reg prometheus.Registerer, namespace string) *Collector {
	c, err := New(reg, namespace)
	if err != nil {
		panic(err)
	}
	return c
}

// RecordFind implements tagfind.MetricsCollector.
func (c *Collector) RecordFind(_ int, results int, duration time.Duration, err error) {
	status := Status(err)
	c.finds.WithLabelValues(status).Inc()
	c.findDuration.WithLabelValues(status).Observe(duration.Seconds())
	if err == nil {
		c.findResults.Observe(float64(results))
	}
}

// RecordFoldStep implements tagfind.MetricsCollector.
func (c *Collector) RecordFoldStep() {
	c.foldSteps.Inc()
}

// RecordShortCircuit implements tagfind.MetricsCollector.
func (c *Collector) RecordShortCircuit(skipped int) {
	c.shortCircuits.Inc()
	c.skipped.Add(float64(skipped))
}

// RecordTag implements tagfind.MetricsCollector.
func (c *Collector) RecordTag(duration time.Duration, err error) {
	c.tags.WithLabelValues(Status(err)).Inc()
	c.tagDuration.Observe(duration.Seconds())
}

// RecordHTTP records one served HTTP request. path should be the route
// template, not the raw URL, to keep label cardinality bounded.
func (c *Collector) RecordHTTP(method, path string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, path, httpStatus(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Status maps an error onto a status label.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, tagfind.ErrInvalidPredicate):
		return StatusInvalidPredicate
	case errors.Is(err, tagfind.ErrNoTags):
		return StatusNoTags
	case errors.Is(err, tagfind.ErrBackendUnavailable):
		return StatusUnavailable
	case errors.Is(err, tagfind.ErrExecutionTimeout):
		return StatusTimeout
	default:
		return StatusError
	}
}

func httpStatus(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

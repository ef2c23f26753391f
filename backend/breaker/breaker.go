// Package breaker guards a graph backend with a circuit breaker.
//
// Every call that may reach storage runs through one gobreaker.CircuitBreaker.
// While the breaker is open, calls fail fast with an ErrBackendUnavailable
// error instead of piling up on a failing backend. Caller mistakes
// (ErrInvalidPredicate) and caller cancellation do not count as failures.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/value"
	"github.com/sony/gobreaker"
)

// Settings configures the breaker.
type Settings struct {
	// Name identifies the breaker in logs.
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	// If 0, one call is allowed.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state after which the
	// failure counts are cleared. If 0, counts are only cleared on state
	// changes.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	// If 0, 60 seconds.
	Timeout time.Duration

	// MinRequests is the number of calls in the current interval needed
	// before the failure ratio is considered. If 0, defaults to 5.
	MinRequests uint32

	// FailureRatio trips the breaker once reached. If 0, defaults to 0.5.
	FailureRatio float64

	// Logger receives state changes. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Backend is a backend guarded by a circuit breaker.
type Backend struct {
	inner graph.Backend
	caps  graph.Capabilities
	cb    *gobreaker.CircuitBreaker
}

// New returns a guarded backend around b. It always exposes every optional
// method; use Wrap to keep type assertions faithful to b.
func New(b graph.Backend, s Settings) *Backend {
	if s.Name == "" {
		s.Name = "graph"
	}
	if s.MinRequests == 0 {
		s.MinRequests = 5
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.5
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			level := slog.LevelInfo
			if to == gobreaker.StateOpen {
				level = slog.LevelWarn
			}
			logger.Log(context.Background(), level, "circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: isSuccessful,
	}

	return &Backend{
		inner: b,
		caps:  graph.CapabilitiesOf(b),
		cb:    gobreaker.NewCircuitBreaker(st),
	}
}

// Wrap returns b guarded by a breaker built from s. The result implements
// exactly the optional interfaces b implements.
func Wrap(b graph.Backend, s Settings) graph.Backend {
	g := New(b, s)

	var caps graph.Capabilities
	if g.caps.Prober != nil {
		caps.Prober = g
	}
	if g.caps.Universe != nil {
		caps.Universe = g
	}
	if g.caps.Writer != nil {
		caps.Writer = g
	}
	if g.caps.Reader != nil {
		caps.Reader = g
	}
	return graph.Compose(g, caps)
}

// State returns the current breaker state.
func (g *Backend) State() gobreaker.State {
	return g.cb.State()
}

// Counts returns the call counts of the current interval.
func (g *Backend) Counts() gobreaker.Counts {
	return g.cb.Counts()
}

// VertexSetForEquality implements graph.Selector. Building a predicate does
// not touch storage and is never rejected.
func (g *Backend) VertexSetForEquality(name string, v value.Value) (graph.Query, error) {
	return g.inner.VertexSetForEquality(name, v)
}

// Intersect implements graph.Intersector.
func (g *Backend) Intersect(ctx context.Context, a, b graph.Query) (graph.Query, error) {
	return execute(g, func() (graph.Query, error) {
		return g.inner.Intersect(ctx, a, b)
	})
}

// Materialize implements graph.Materializer.
func (g *Backend) Materialize(ctx context.Context, q graph.Query) ([]graph.VertexID, error) {
	return execute(g, func() ([]graph.VertexID, error) {
		return g.inner.Materialize(ctx, q)
	})
}

// IsEmpty implements graph.EmptinessProber. Without an inner prober it
// reports false, which never stops a fold.
func (g *Backend) IsEmpty(ctx context.Context, q graph.Query) (bool, error) {
	if g.caps.Prober == nil {
		return false, nil
	}
	return execute(g, func() (bool, error) {
		return g.caps.Prober.IsEmpty(ctx, q)
	})
}

// AllVertices implements graph.Universe.
func (g *Backend) AllVertices(ctx context.Context) (graph.Query, error) {
	if g.caps.Universe == nil {
		return nil, graph.ErrUnsupported
	}
	return execute(g, func() (graph.Query, error) {
		return g.caps.Universe.AllVertices(ctx)
	})
}

// AddVertex implements graph.Writer.
func (g *Backend) AddVertex(ctx context.Context, id graph.VertexID, attrs value.Document) error {
	if g.caps.Writer == nil {
		return graph.ErrUnsupported
	}
	_, err := execute(g, func() (struct{}, error) {
		return struct{}{}, g.caps.Writer.AddVertex(ctx, id, attrs)
	})
	return err
}

// Attributes implements graph.Reader.
func (g *Backend) Attributes(ctx context.Context, id graph.VertexID) (value.Document, bool, error) {
	if g.caps.Reader == nil {
		return nil, false, graph.ErrUnsupported
	}
	type read struct {
		attrs value.Document
		ok    bool
	}
	r, err := execute(g, func() (read, error) {
		attrs, ok, err := g.caps.Reader.Attributes(ctx, id)
		return read{attrs, ok}, err
	})
	return r.attrs, r.ok, err
}

func execute[T any](g *Backend, fn func() (T, error)) (T, error) {
	var zero T
	resp, err := g.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, graph.Unavailable(err)
		}
		return zero, err
	}
	v, _ := resp.(T)
	return v, nil
}

func isSuccessful(err error) bool {
	return err == nil ||
		errors.Is(err, graph.ErrInvalidPredicate) ||
		errors.Is(err, context.Canceled)
}

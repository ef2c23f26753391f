// Package limit admits calls into a graph backend through a
// resource.Controller.
//
// Only calls that may touch storage are admitted: Materialize, IsEmpty,
// AllVertices, AddVertex, Attributes and Intersect. VertexSetForEquality is passed
// through because no backend performs I/O to build a predicate.
package limit

import (
	"context"

	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/resource"
	"github.com/hupe1980/tagfind/value"
)

// Backend is a rate and concurrency limited backend.
type Backend struct {
	inner graph.Backend
	caps  graph.Capabilities
	rc    *resource.Controller
}

// New returns a limited backend around b. It always exposes every optional
// method; use Wrap to keep type assertions faithful to b.
func New(b graph.Backend, rc *resource.Controller) *Backend {
	return &Backend{inner: b, caps: graph.CapabilitiesOf(b), rc: rc}
}

// Wrap returns b limited by a controller built from cfg. The result
// implements exactly the optional interfaces b implements.
func Wrap(b graph.Backend, cfg resource.Config) graph.Backend {
	return WrapController(b, resource.NewController(cfg))
}

// WrapController is like Wrap with a shared controller.
func WrapController(b graph.Backend, rc *resource.Controller) graph.Backend {
	l := New(b, rc)

	var caps graph.Capabilities
	if l.caps.Prober != nil {
		caps.Prober = l
	}
	if l.caps.Universe != nil {
		caps.Universe = l
	}
	if l.caps.Writer != nil {
		caps.Writer = l
	}
	if l.caps.Reader != nil {
		caps.Reader = l
	}
	return graph.Compose(l, caps)
}

// Controller returns the controller admitting calls.
func (l *Backend) Controller() *resource.Controller {
	return l.rc
}

// VertexSetForEquality implements graph.Selector.
func (l *Backend) VertexSetForEquality(name string, v value.Value) (graph.Query, error) {
	return l.inner.VertexSetForEquality(name, v)
}

// Intersect implements graph.Intersector.
func (l *Backend) Intersect(ctx context.Context, a, b graph.Query) (graph.Query, error) {
	if err := l.rc.Acquire(ctx); err != nil {
		return nil, err
	}
	defer l.rc.Release()
	return l.inner.Intersect(ctx, a, b)
}

// Materialize implements graph.Materializer.
func (l *Backend) Materialize(ctx context.Context, q graph.Query) ([]graph.VertexID, error) {
	if err := l.rc.Acquire(ctx); err != nil {
		return nil, err
	}
	defer l.rc.Release()
	return l.inner.Materialize(ctx, q)
}

// IsEmpty implements graph.EmptinessProber. Without an inner prober it
// reports false, which never stops a fold.
func (l *Backend) IsEmpty(ctx context.Context, q graph.Query) (bool, error) {
	if l.caps.Prober == nil {
		return false, nil
	}
	if err := l.rc.Acquire(ctx); err != nil {
		return false, err
	}
	defer l.rc.Release()
	return l.caps.Prober.IsEmpty(ctx, q)
}

// AllVertices implements graph.Universe.
func (l *Backend) AllVertices(ctx context.Context) (graph.Query, error) {
	if l.caps.Universe == nil {
		return nil, graph.ErrUnsupported
	}
	if err := l.rc.Acquire(ctx); err != nil {
		return nil, err
	}
	defer l.rc.Release()
	return l.caps.Universe.AllVertices(ctx)
}

// AddVertex implements graph.Writer.
func (l *Backend) AddVertex(ctx context.Context, id graph.VertexID, attrs value.Document) error {
	if l.caps.Writer == nil {
		return graph.ErrUnsupported
	}
	if err := l.rc.Acquire(ctx); err != nil {
		return err
	}
	defer l.rc.Release()
	return l.caps.Writer.AddVertex(ctx, id, attrs)
}

// Attributes implements graph.Reader.
func (l *Backend) Attributes(ctx context.Context, id graph.VertexID) (value.Document, bool, error) {
	if l.caps.Reader == nil {
		return nil, false, graph.ErrUnsupported
	}
	if err := l.rc.Acquire(ctx); err != nil {
		return nil, false, err
	}
	defer l.rc.Release()
	return l.caps.Reader.Attributes(ctx, id)
}

// Package eager provides the generic in-memory intersection combinator for
// backends that cannot intersect queries natively.
//
// Wrap turns a graph.Source (equality selection plus materialization) into a
// full graph.Backend. Queries returned by the wrapper are either the source's
// own unexecuted queries or materialized *Set values; Intersect materializes
// whatever is still lazy and ANDs the resulting roaring bitmaps.
package eager

import (
	"context"

	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/value"
)

// Backend wraps a graph.Source with in-memory intersection.
type Backend struct {
	src graph.Source
}

var (
	_ graph.Backend         = (*Backend)(nil)
	_ graph.EmptinessProber = (*Backend)(nil)
)

// Wrap returns a backend that intersects the results of src in memory.
//
// If src also implements graph.Universe or graph.Writer, use WrapFull to keep
// those capabilities visible through the interface.
func Wrap(src graph.Source) *Backend {
	return &Backend{src: src}
}

// Source returns the wrapped source.
func (b *Backend) Source() graph.Source { return b.src }

// VertexSetForEquality implements graph.Selector by delegating to the source.
func (b *Backend) VertexSetForEquality(name string, v value.Value) (graph.Query, error) {
	return b.src.VertexSetForEquality(name, v)
}

// Intersect implements graph.Intersector.
//
// The left operand is materialized first. If it is empty the right operand
// is never executed.
func (b *Backend) Intersect(ctx context.Context, left, right graph.Query) (graph.Query, error) {
	ls, err := b.set(ctx, left)
	if err != nil {
		return nil, err
	}
	if ls.IsEmpty() {
		return ls, nil
	}
	rs, err := b.set(ctx, right)
	if err != nil {
		return nil, err
	}
	return ls.Intersect(rs), nil
}

// Materialize implements graph.Materializer.
func (b *Backend) Materialize(ctx context.Context, q graph.Query) ([]graph.VertexID, error) {
	if s, ok := q.(*Set); ok {
		return s.IDs(), nil
	}
	return b.src.Materialize(ctx, q)
}

// IsEmpty implements graph.EmptinessProber.
//
// Only materialized sets are probed. A lazy source query reports false
// without being executed; Intersect materializes it anyway and stops early
// when it turns out empty.
func (b *Backend) IsEmpty(_ context.Context, q graph.Query) (bool, error) {
	if s, ok := q.(*Set); ok {
		return s.IsEmpty(), nil
	}
	return false, nil
}

func (b *Backend) set(ctx context.Context, q graph.Query) (*Set, error) {
	if s, ok := q.(*Set); ok {
		return s, nil
	}
	ids, err := b.src.Materialize(ctx, q)
	if err != nil {
		return nil, err
	}
	return NewSet(ids), nil
}

// Full is a wrapped source that also exposes the optional Universe, Writer
// and Reader capabilities of the source.
type Full struct {
	*Backend
	universe graph.Universe
	writer   graph.Writer
	reader   graph.Reader
}

var (
	_ graph.WritableBackend = (*Full)(nil)
	_ graph.Universe        = (*Full)(nil)
	_ graph.Reader          = (*Full)(nil)
)

// FullSource is a source with every optional capability.
type FullSource interface {
	graph.Source
	graph.Universe
	graph.Writer
	graph.Reader
}

// WrapFull wraps a source that can enumerate, write and read vertices.
func WrapFull(src FullSource) *Full {
	return &Full{Backend: Wrap(src), universe: src, writer: src, reader: src}
}

// AllVertices implements graph.Universe.
func (f *Full) AllVertices(ctx context.Context) (graph.Query, error) {
	return f.universe.AllVertices(ctx)
}

// AddVertex implements graph.Writer.
func (f *Full) AddVertex(ctx context.Context, id graph.VertexID, attrs value.Document) error {
	return f.writer.AddVertex(ctx, id, attrs)
}

// Attributes implements graph.Reader.
func (f *Full) Attributes(ctx context.Context, id graph.VertexID) (value.Document, bool, error) {
	return f.reader.Attributes(ctx, id)
}

// Writable is a wrapped source that accepts writes but cannot enumerate its
// vertices.
type Writable struct {
	*Backend
	writer graph.Writer
}

var _ graph.WritableBackend = (*Writable)(nil)

// WritableSource is a source that accepts writes.
type WritableSource interface {
	graph.Source
	graph.Writer
}

// WrapWritable wraps a source that accepts writes.
func WrapWritable(src WritableSource) *Writable {
	return &Writable{Backend: Wrap(src), writer: src}
}

// AddVertex implements graph.Writer.
func (w *Writable) AddVertex(ctx context.Context, id graph.VertexID, attrs value.Document) error {
	return w.writer.AddVertex(ctx, id, attrs)
}

// Package graph defines the boundary between the tag intersection engine and
// the graph storage backends that evaluate equality predicates.
//
// A backend turns one (attribute, value) pair into an opaque Query, combines
// Queries with Intersect and finally executes a Query with Materialize.
// Whether intersection is pushed down into storage or performed on
// enumerated ID sets is up to the backend; the engine only relies on the
// interfaces below.
package graph

import (
	"context"
	"slices"

	"github.com/hupe1980/tagfind/value"
)

// VertexID is the stable identifier of a vertex.
type VertexID string

// Query is an opaque, backend-executable request selecting a set of
// vertices. Queries are never mutated after creation and must only be passed
// back to the backend that produced them.
type Query any

// Selector builds equality predicates.
type Selector interface {
	// VertexSetForEquality returns a query selecting every vertex whose
	// attribute name equals v. It fails with ErrInvalidPredicate if name is
	// empty or not supported by the backend schema.
	VertexSetForEquality(name string, v value.Value) (Query, error)
}

// Intersector combines two queries of the same backend.
type Intersector interface {
	// Intersect returns a query selecting the vertices present in both a
	// and b. It may be lazy (a new unexecuted query) or eager.
	Intersect(ctx context.Context, a, b Query) (Query, error)
}

// Materializer executes queries.
type Materializer interface {
	// Materialize executes q and returns the matching vertex IDs.
	Materialize(ctx context.Context, q Query) ([]VertexID, error)
}

// Backend is the full graph-query boundary used by the engine.
type Backend interface {
	Selector
	Intersector
	Materializer
}

// Source is a backend without native intersection support. See the eager
// package for the in-memory fallback combinator.
type Source interface {
	Selector
	Materializer
}

// EmptinessProber is implemented by backends that can tell cheaply whether a
// query selects nothing. The engine uses it to stop folding early.
type EmptinessProber interface {
	IsEmpty(ctx context.Context, q Query) (bool, error)
}

// Universe is implemented by backends that can select every vertex.
type Universe interface {
	AllVertices(ctx context.Context) (Query, error)
}

// Writer is implemented by backends that accept vertex attribute writes.
type Writer interface {
	// AddVertex merges attrs into the attribute set of vertex id, creating
	// the vertex if needed.
	AddVertex(ctx context.Context, id VertexID, attrs value.Document) error
}

// Reader is implemented by backends that can return the stored attributes
// of one vertex. ok is false when the vertex does not exist.
type Reader interface {
	Attributes(ctx context.Context, id VertexID) (attrs value.Document, ok bool, err error)
}

// WritableBackend is a Backend that also accepts writes.
type WritableBackend interface {
	Backend
	Writer
}

// SortIDs sorts ids in place and removes duplicates.
func SortIDs(ids []VertexID) []VertexID {
	slices.Sort(ids)
	return slices.Compact(ids)
}

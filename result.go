package tagfind

import (
	"slices"

	"github.com/hupe1980/tagfind/graph"
)

// Result is the final vertex set of an evaluation: sorted, without
// duplicates.
type Result struct {
	IDs []graph.VertexID `json:"vertices"`
}

func newResult(ids []graph.VertexID) Result {
	if len(ids) == 0 {
		return Result{IDs: []graph.VertexID{}}
	}
	return Result{IDs: graph.SortIDs(slices.Clone(ids))}
}

// Len returns the number of vertices.
func (r Result) Len() int { return len(r.IDs) }

// IsEmpty reports whether no vertex matched.
func (r Result) IsEmpty() bool { return len(r.IDs) == 0 }

// Contains reports whether id is part of the result.
func (r Result) Contains(id graph.VertexID) bool {
	_, ok := slices.BinarySearch(r.IDs, id)
	return ok
}

// Equal reports whether two results hold the same vertices.
func (r Result) Equal(o Result) bool {
	return slices.Equal(r.IDs, o.IDs)
}

// Strings returns the vertex IDs as plain strings.
func (r Result) Strings() []string {
	out := make([]string, len(r.IDs))
	for i, id := range r.IDs {
		out[i] = string(id)
	}
	return out
}

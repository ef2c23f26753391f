package tagfind

import (
	"github.com/hupe1980/tagfind/graph"
)

// Compile turns a tag into a backend query selecting every vertex whose
// attribute t.Name equals t.Value.
//
// Tags with an empty name or no value are rejected before the backend is
// consulted. Errors from the backend's selector are returned unchanged.
func Compile(sel graph.Selector, t Tag) (graph.Query, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return sel.VertexSetForEquality(t.Name, t.Value)
}

// CompileAll compiles tags in order and stops at the first error.
func CompileAll(sel graph.Selector, tags []Tag) ([]graph.Query, error) {
	queries := make([]graph.Query, 0, len(tags))
	for _, t := range tags {
		q, err := Compile(sel, t)
		if err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, nil
}

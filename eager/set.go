package eager

import (
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/internal/bitmap"
)

// Set is a materialized, immutable vertex set.
//
// Sets derived from one another share a dictionary, so intersecting them is
// a plain bitmap AND. Sets from unrelated dictionaries are intersected by
// looking up the smaller side in the larger one's dictionary.
type Set struct {
	dict *bitmap.Dict
	bm   *bitmap.Bitmap
}

// NewSet builds a set from ids. Duplicates are ignored.
func NewSet(ids []graph.VertexID) *Set {
	dict := bitmap.NewDict()
	bm := bitmap.New()
	for _, id := range ids {
		bm.Add(dict.Intern(id))
	}
	return &Set{dict: dict, bm: bm}
}

// Len returns the number of vertices in the set.
func (s *Set) Len() int { return int(s.bm.Cardinality()) }

// IsEmpty reports whether the set has no vertices.
func (s *Set) IsEmpty() bool { return s.bm.IsEmpty() }

// Contains reports whether id is in the set.
func (s *Set) Contains(id graph.VertexID) bool {
	slot, ok := s.dict.Lookup(id)
	return ok && s.bm.Contains(slot)
}

// IDs returns the vertex IDs in sorted order.
func (s *Set) IDs() []graph.VertexID {
	return graph.SortIDs(s.dict.Resolve(s.bm))
}

// Intersect returns the vertices present in both s and o.
func (s *Set) Intersect(o *Set) *Set {
	if s.dict == o.dict {
		return &Set{dict: s.dict, bm: bitmap.And(s.bm, o.bm)}
	}
	big, small := s, o
	if small.Len() > big.Len() {
		big, small = small, big
	}
	out := bitmap.New()
	for _, id := range small.dict.Resolve(small.bm) {
		if slot, ok := big.dict.Lookup(id); ok && big.bm.Contains(slot) {
			out.Add(slot)
		}
	}
	return &Set{dict: big.dict, bm: out}
}

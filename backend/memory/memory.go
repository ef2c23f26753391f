// Package memory provides an in-memory graph backend with an inverted index
// over vertex attributes.
//
// Architecture:
//   - Primary storage: map[slot]Document (attributes by vertex)
//   - Inverted index: map[name]map[valueKey]*Bitmap (posting lists)
//
// Queries are lazy conjunctions of (name, valueKey) predicates. Intersect
// only concatenates predicates; Materialize ANDs the posting lists smallest
// first under a read lock, so every result reflects one consistent view of
// the graph.
package memory

import (
	"context"
	"sync"

	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/internal/bitmap"
	"github.com/hupe1980/tagfind/value"
)

// Graph is an in-memory vertex store. It is safe for concurrent use.
type Graph struct {
	mu sync.RWMutex

	dict *bitmap.Dict

	// Primary attribute storage (slot -> document)
	documents map[uint32]value.Document

	// Inverted index: name -> valueKey -> bitmap of slots
	inverted map[string]map[string]*bitmap.Bitmap

	// Every live slot; the universe query.
	all *bitmap.Bitmap
}

var (
	_ graph.WritableBackend = (*Graph)(nil)
	_ graph.EmptinessProber = (*Graph)(nil)
	_ graph.Universe        = (*Graph)(nil)
	_ graph.Reader          = (*Graph)(nil)
)

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		dict:      bitmap.NewDict(),
		documents: make(map[uint32]value.Document),
		inverted:  make(map[string]map[string]*bitmap.Bitmap),
		all:       bitmap.New(),
	}
}

type predicate struct {
	name string
	key  string
}

// query is a conjunction of predicates. No predicates selects every vertex.
type query struct {
	owner *Graph
	preds []predicate
}

// VertexSetForEquality implements graph.Selector.
func (g *Graph) VertexSetForEquality(name string, v value.Value) (graph.Query, error) {
	if name == "" {
		return nil, graph.InvalidName(name, "empty name")
	}
	if !v.Valid() {
		return nil, graph.InvalidName(name, "invalid value")
	}
	return &query{owner: g, preds: []predicate{{name: name, key: v.Key()}}}, nil
}

// AllVertices implements graph.Universe.
func (g *Graph) AllVertices(context.Context) (graph.Query, error) {
	return &query{owner: g}, nil
}

// Intersect implements graph.Intersector. It never touches the index.
func (g *Graph) Intersect(_ context.Context, a, b graph.Query) (graph.Query, error) {
	qa, err := g.own(a)
	if err != nil {
		return nil, err
	}
	qb, err := g.own(b)
	if err != nil {
		return nil, err
	}

	preds := make([]predicate, 0, len(qa.preds)+len(qb.preds))
	seen := make(map[predicate]struct{}, cap(preds))
	for _, src := range [][]predicate{qa.preds, qb.preds} {
		for _, p := range src {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			preds = append(preds, p)
		}
	}
	return &query{owner: g, preds: preds}, nil
}

// Materialize implements graph.Materializer.
func (g *Graph) Materialize(ctx context.Context, q graph.Query) ([]graph.VertexID, error) {
	mq, err := g.own(q)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, graph.ClassifyContext(err)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	return graph.SortIDs(g.dict.Resolve(g.evalLocked(mq))), nil
}

// IsEmpty implements graph.EmptinessProber.
func (g *Graph) IsEmpty(ctx context.Context, q graph.Query) (bool, error) {
	mq, err := g.own(q)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, graph.ClassifyContext(err)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.evalLocked(mq).IsEmpty(), nil
}

// evalLocked computes the bitmap of q. Caller must hold g.mu.RLock().
// The returned bitmap may alias index state and must not be modified.
func (g *Graph) evalLocked(q *query) *bitmap.Bitmap {
	if len(q.preds) == 0 {
		return g.all
	}
	bms := make([]*bitmap.Bitmap, 0, len(q.preds))
	for _, p := range q.preds {
		bm := g.getBitmapLocked(p)
		if bm == nil {
			// Predicate has no matches - result is empty.
			return bitmap.New()
		}
		bms = append(bms, bm)
	}
	if len(bms) == 1 {
		return bms[0]
	}
	return bitmap.And(bms...)
}

// getBitmapLocked retrieves the posting list for a predicate.
// Returns nil if no vertex matches. Caller must hold g.mu.RLock().
func (g *Graph) getBitmapLocked(p predicate) *bitmap.Bitmap {
	valueMap, ok := g.inverted[p.name]
	if !ok {
		return nil
	}
	return valueMap[p.key]
}

func (g *Graph) own(q graph.Query) (*query, error) {
	mq, ok := q.(*query)
	if !ok || mq.owner != g {
		return nil, &graph.ErrQueryType{Backend: "memory", Query: q}
	}
	return mq, nil
}

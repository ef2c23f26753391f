package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/value"
	"github.com/stretchr/testify/require"
)

// Vertex is one vertex of a test dataset.
type Vertex struct {
	ID    graph.VertexID
	Attrs value.Document
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewSource(r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// Dataset generates n vertices. Each vertex gets every attribute in names
// with probability 3/4; values are drawn from a small domain of the given
// cardinality so that predicates overlap. Attribute kinds rotate through
// string, int and bool by attribute position.
func (r *RNG) Dataset(n int, names []string, cardinality int) []Vertex {
	out := make([]Vertex, n)
	for i := range out {
		attrs := make(value.Document, len(names))
		for j, name := range names {
			if r.Intn(4) == 0 {
				continue
			}
			attrs[name] = domainValue(j, r.Intn(cardinality))
		}
		out[i] = Vertex{ID: graph.VertexID(fmt.Sprintf("v%04d", i)), Attrs: attrs}
	}
	return out
}

// RandomTags draws k tags over names from the same value domain as Dataset.
func (r *RNG) RandomTags(k int, names []string, cardinality int) []tagfind.Tag {
	tags := make([]tagfind.Tag, k)
	for i := range tags {
		j := r.Intn(len(names))
		tags[i] = tagfind.Tag{Name: names[j], Value: domainValue(j, r.Intn(cardinality))}
	}
	return tags
}

func domainValue(attr, n int) value.Value {
	switch attr % 3 {
	case 0:
		return value.String(fmt.Sprintf("s%d", n))
	case 1:
		return value.Int(int64(n))
	default:
		return value.Bool(n%2 == 0)
	}
}

// ExactMatch computes the ground truth for tags by scanning every vertex.
func ExactMatch(vertices []Vertex, tags []tagfind.Tag) []graph.VertexID {
	out := []graph.VertexID{}
	for _, v := range vertices {
		if matchesAll(v.Attrs, tags) {
			out = append(out, v.ID)
		}
	}
	return graph.SortIDs(out)
}

func matchesAll(attrs value.Document, tags []tagfind.Tag) bool {
	for _, t := range tags {
		got, ok := attrs[t.Name]
		if !ok || !got.Equal(t.Value) {
			return false
		}
	}
	return true
}

// Load writes every vertex through w.
func Load(t testing.TB, w graph.Writer, vertices []Vertex) {
	t.Helper()
	ctx := context.Background()
	for _, v := range vertices {
		require.NoError(t, w.AddVertex(ctx, v.ID, v.Attrs))
	}
}

// IDs converts strings to vertex IDs.
func IDs(ids ...string) []graph.VertexID {
	out := make([]graph.VertexID, len(ids))
	for i, id := range ids {
		out[i] = graph.VertexID(id)
	}
	return out
}

package testutil

import (
	"context"
	"math"
	"testing"

	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SuiteConfig tunes RunBackendSuite for slower backends.
type SuiteConfig struct {
	// RandomVertices is the size of the random dataset. 0 means 200.
	RandomVertices int
	// RandomQueries is the number of random tag lists checked. 0 means 50.
	RandomQueries int
}

// RunBackendSuite runs the conformance tests against fresh backends created
// by newBackend.
func RunBackendSuite(t *testing.T, newBackend func(t *testing.T) graph.WritableBackend, cfgs ...SuiteConfig) {
	cfg := SuiteConfig{RandomVertices: 200, RandomQueries: 50}
	if len(cfgs) > 0 {
		if cfgs[0].RandomVertices > 0 {
			cfg.RandomVertices = cfgs[0].RandomVertices
		}
		if cfgs[0].RandomQueries > 0 {
			cfg.RandomQueries = cfgs[0].RandomQueries
		}
	}

	ctx := context.Background()
	red := tagfind.MustTag("color", "red")
	large := tagfind.MustTag("size", "large")

	scenario := func(t *testing.T) *tagfind.TagStore {
		store := tagfind.NewTagStore(newBackend(t))
		for _, id := range []graph.VertexID{"A", "B", "C"} {
			require.NoError(t, store.Tag(ctx, id, []tagfind.Tag{red}))
		}
		for _, id := range []graph.VertexID{"B", "C", "D"} {
			require.NoError(t, store.Tag(ctx, id, []tagfind.Tag{large}))
		}
		return store
	}

	t.Run("Intersection", func(t *testing.T) {
		store := scenario(t)
		res, err := store.Find(ctx, []tagfind.Tag{red, large})
		require.NoError(t, err)
		assert.Equal(t, IDs("B", "C"), res.IDs)
	})

	t.Run("SharedTag", func(t *testing.T) {
		store := tagfind.NewTagStore(newBackend(t))
		destination := tagfind.MustTag("destination", "google.com")
		require.NoError(t, store.Tag(ctx, "series-1", []tagfind.Tag{destination, tagfind.MustTag("source", "probe0")}))
		require.NoError(t, store.Tag(ctx, "series-2", []tagfind.Tag{destination, tagfind.MustTag("source", "probe1")}))

		res, err := store.Find(ctx, []tagfind.Tag{destination})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Len())

		res, err = store.Find(ctx, []tagfind.Tag{destination, tagfind.MustTag("source", "probe1")})
		require.NoError(t, err)
		assert.Equal(t, IDs("series-2"), res.IDs)
	})

	t.Run("DuplicateTags", func(t *testing.T) {
		store := scenario(t)
		once, err := store.Find(ctx, []tagfind.Tag{red})
		require.NoError(t, err)
		twice, err := store.Find(ctx, []tagfind.Tag{red, red})
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	})

	t.Run("OrderIndependence", func(t *testing.T) {
		store := scenario(t)
		abc := []tagfind.Tag{red, large, tagfind.MustTag("color", "red")}
		want, err := store.Find(ctx, abc)
		require.NoError(t, err)
		for _, perm := range [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}} {
			tags := []tagfind.Tag{abc[perm[0]], abc[perm[1]], abc[perm[2]]}
			got, err := store.Find(ctx, tags)
			require.NoError(t, err)
			assert.Equal(t, want, got, "permutation %v", perm)
		}
	})

	t.Run("SingletonIdentity", func(t *testing.T) {
		store := scenario(t)
		q, err := tagfind.Compile(store.Backend(), red)
		require.NoError(t, err)
		ids, err := store.Backend().Materialize(ctx, q)
		require.NoError(t, err)

		res, err := store.Evaluate(ctx, []graph.Query{q})
		require.NoError(t, err)
		assert.Equal(t, graph.SortIDs(ids), res.IDs)
	})

	t.Run("NoMatch", func(t *testing.T) {
		store := scenario(t)
		res, err := store.Find(ctx, []tagfind.Tag{red, tagfind.MustTag("size", "small")})
		require.NoError(t, err)
		assert.True(t, res.IsEmpty())

		res, err = store.Find(ctx, []tagfind.Tag{tagfind.MustTag("shape", "round"), red})
		require.NoError(t, err)
		assert.True(t, res.IsEmpty())
	})

	t.Run("TypedValues", func(t *testing.T) {
		store := tagfind.NewTagStore(newBackend(t))
		require.NoError(t, store.Tag(ctx, "n1", []tagfind.Tag{
			tagfind.MustTag("port", 443), tagfind.MustTag("secure", true), tagfind.MustTag("load", 0.5),
		}))
		require.NoError(t, store.Tag(ctx, "n2", []tagfind.Tag{
			tagfind.MustTag("port", 80), tagfind.MustTag("secure", false), tagfind.MustTag("load", 0.5),
		}))

		res, err := store.Find(ctx, []tagfind.Tag{tagfind.MustTag("port", 443)})
		require.NoError(t, err)
		assert.Equal(t, IDs("n1"), res.IDs)

		res, err = store.Find(ctx, []tagfind.Tag{tagfind.MustTag("secure", false), tagfind.MustTag("load", 0.5)})
		require.NoError(t, err)
		assert.Equal(t, IDs("n2"), res.IDs)

		// "443" the string is not 443 the number.
		res, err = store.Find(ctx, []tagfind.Tag{tagfind.MustTag("port", "443")})
		require.NoError(t, err)
		assert.True(t, res.IsEmpty())
	})

	t.Run("AttributeOverwrite", func(t *testing.T) {
		store := tagfind.NewTagStore(newBackend(t))
		require.NoError(t, store.Tag(ctx, "x", []tagfind.Tag{red, large}))
		require.NoError(t, store.Tag(ctx, "x", []tagfind.Tag{tagfind.MustTag("color", "blue")}))

		res, err := store.Find(ctx, []tagfind.Tag{red})
		require.NoError(t, err)
		assert.True(t, res.IsEmpty())

		res, err = store.Find(ctx, []tagfind.Tag{tagfind.MustTag("color", "blue"), large})
		require.NoError(t, err)
		assert.Equal(t, IDs("x"), res.IDs)
	})

	t.Run("Tags", func(t *testing.T) {
		b := newBackend(t)
		if _, ok := b.(graph.Reader); !ok {
			t.Skip("backend does not read attributes")
		}
		store := tagfind.NewTagStore(b)
		require.NoError(t, store.Tag(ctx, "x", []tagfind.Tag{red, tagfind.MustTag("port", 443)}))
		require.NoError(t, store.Tag(ctx, "x", []tagfind.Tag{tagfind.MustTag("load", 0.5), tagfind.MustTag("secure", true)}))

		tags, ok, err := store.Tags(ctx, "x")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []tagfind.Tag{
			red,
			tagfind.MustTag("load", 0.5),
			tagfind.MustTag("port", 443),
			tagfind.MustTag("secure", true),
		}, tags)

		_, ok, err = store.Tags(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("InvalidPredicate", func(t *testing.T) {
		store := scenario(t)
		_, err := store.Find(ctx, []tagfind.Tag{red, {Name: "", Value: value.String("x")}})
		assert.ErrorIs(t, err, tagfind.ErrInvalidPredicate)

		_, err = store.Backend().VertexSetForEquality("", value.String("x"))
		assert.ErrorIs(t, err, graph.ErrInvalidPredicate)
	})

	t.Run("NonFiniteValues", func(t *testing.T) {
		b := newBackend(t)
		store := tagfind.NewTagStore(b)
		for _, f := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
			bad := tagfind.Tag{Name: "load", Value: value.Float(f)}
			assert.ErrorIs(t, store.Tag(ctx, "A", []tagfind.Tag{bad}), tagfind.ErrInvalidPredicate, "%v", f)
			assert.ErrorIs(t, b.AddVertex(ctx, "A", value.Document{"load": value.Float(f)}), graph.ErrInvalidPredicate, "%v", f)

			_, err := store.Find(ctx, []tagfind.Tag{bad})
			assert.ErrorIs(t, err, tagfind.ErrInvalidPredicate, "%v", f)
		}
	})

	t.Run("EmptyTags", func(t *testing.T) {
		store := scenario(t)
		_, err := store.Find(ctx, nil)
		assert.ErrorIs(t, err, tagfind.ErrNoTags)

		all := tagfind.New(store.Backend(), tagfind.WithEmptyTags(tagfind.MatchAll))
		res, err := all.Find(ctx, nil)
		if _, ok := store.Backend().(graph.Universe); !ok {
			assert.ErrorIs(t, err, tagfind.ErrNoTags)
			return
		}
		require.NoError(t, err)
		assert.Equal(t, IDs("A", "B", "C", "D"), res.IDs)
	})

	t.Run("MonotonicShrinkage", func(t *testing.T) {
		store := scenario(t)
		tags := []tagfind.Tag{red, large, tagfind.MustTag("size", "small")}
		prev := -1
		for n := 1; n <= len(tags); n++ {
			res, err := store.Find(ctx, tags[:n])
			require.NoError(t, err)
			if prev >= 0 {
				assert.LessOrEqual(t, res.Len(), prev)
			}
			prev = res.Len()
		}
	})

	t.Run("RandomAgainstScan", func(t *testing.T) {
		names := []string{"a", "b", "c", "d", "e", "f"}
		rng := NewRNG(4711)
		vertices := rng.Dataset(cfg.RandomVertices, names, 3)

		b := newBackend(t)
		Load(t, b, vertices)
		e := tagfind.New(b)

		for i := 0; i < cfg.RandomQueries; i++ {
			tags := rng.RandomTags(1+rng.Intn(4), names, 3)
			res, err := e.Find(ctx, tags)
			require.NoError(t, err)
			assert.Equal(t, ExactMatch(vertices, tags), res.IDs, "tags %v", tags)
		}
	})
}

package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/backend/memory"
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/testutil"
	"github.com/hupe1980/tagfind/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_Conformance(t *testing.T) {
	testutil.RunBackendSuite(t, func(t *testing.T) graph.WritableBackend {
		return memory.New()
	})
}

func TestGraph_IntersectIsLazy(t *testing.T) {
	ctx := context.Background()
	g := memory.New()
	require.NoError(t, g.AddVertex(ctx, "A", value.Document{"color": value.String("red")}))

	red, err := g.VertexSetForEquality("color", value.String("red"))
	require.NoError(t, err)
	blue, err := g.VertexSetForEquality("color", value.String("blue"))
	require.NoError(t, err)

	q, err := g.Intersect(ctx, red, red)
	require.NoError(t, err)

	// Writes after composing are visible at materialization time.
	require.NoError(t, g.AddVertex(ctx, "B", value.Document{"color": value.String("red")}))
	ids, err := g.Materialize(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, testutil.IDs("A", "B"), ids)

	q, err = g.Intersect(ctx, red, blue)
	require.NoError(t, err)
	empty, err := g.IsEmpty(ctx, q)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestGraph_NumericKindsShareIndex(t *testing.T) {
	ctx := context.Background()
	g := memory.New()
	require.NoError(t, g.AddVertex(ctx, "i", value.Document{"n": value.Int(3)}))
	require.NoError(t, g.AddVertex(ctx, "f", value.Document{"n": value.Float(3)}))
	require.NoError(t, g.AddVertex(ctx, "h", value.Document{"n": value.Float(3.5)}))

	q, err := g.VertexSetForEquality("n", value.Int(3))
	require.NoError(t, err)
	ids, err := g.Materialize(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, testutil.IDs("f", "i"), ids)
}

func TestGraph_ForeignQuery(t *testing.T) {
	ctx := context.Background()
	a, b := memory.New(), memory.New()

	qa, err := a.VertexSetForEquality("x", value.Int(1))
	require.NoError(t, err)
	qb, err := b.VertexSetForEquality("x", value.Int(1))
	require.NoError(t, err)

	_, err = a.Intersect(ctx, qa, qb)
	assert.ErrorIs(t, err, graph.ErrInvalidPredicate)

	var qerr *graph.ErrQueryType
	assert.ErrorAs(t, err, &qerr)

	_, err = a.Materialize(ctx, "not a query")
	assert.ErrorIs(t, err, graph.ErrInvalidPredicate)
}

func TestGraph_CanceledContext(t *testing.T) {
	g := memory.New()
	q, err := g.VertexSetForEquality("x", value.Int(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Materialize(ctx, q)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, graph.ErrExecutionTimeout)
}

func TestGraph_WriteValidation(t *testing.T) {
	ctx := context.Background()
	g := memory.New()

	assert.ErrorIs(t, g.AddVertex(ctx, "", value.Document{"a": value.Int(1)}), memory.ErrEmptyID)
	assert.ErrorIs(t, g.AddVertex(ctx, "x", value.Document{"": value.Int(1)}), graph.ErrInvalidPredicate)
	assert.Equal(t, 0, g.Len())
}

func TestGraph_RemoveVertex(t *testing.T) {
	ctx := context.Background()
	g := memory.New()
	require.NoError(t, g.AddVertex(ctx, "A", value.Document{"color": value.String("red")}))
	require.NoError(t, g.AddVertex(ctx, "B", value.Document{"color": value.String("red")}))

	assert.True(t, g.RemoveVertex("A"))
	assert.False(t, g.RemoveVertex("A"))

	res, err := tagfind.New(g).Find(ctx, []tagfind.Tag{tagfind.MustTag("color", "red")})
	require.NoError(t, err)
	assert.Equal(t, testutil.IDs("B"), res.IDs)

	_, ok, err := g.Attributes(ctx, "A")
	require.NoError(t, err)
	assert.False(t, ok)

	// The freed slot is reused without leaking old attributes.
	require.NoError(t, g.AddVertex(ctx, "C", value.Document{"size": value.String("large")}))
	res, err = tagfind.New(g).Find(ctx, []tagfind.Tag{tagfind.MustTag("color", "red")})
	require.NoError(t, err)
	assert.Equal(t, testutil.IDs("B"), res.IDs)
}

func TestGraph_Stats(t *testing.T) {
	ctx := context.Background()
	g := memory.New()
	require.NoError(t, g.AddVertex(ctx, "A", value.Document{"color": value.String("red"), "size": value.Int(1)}))
	require.NoError(t, g.AddVertex(ctx, "B", value.Document{"color": value.String("red")}))
	require.NoError(t, g.AddVertex(ctx, "C", value.Document{"color": value.String("blue")}))

	stats := g.GetStats()
	assert.Equal(t, 3, stats.VertexCount)
	assert.Equal(t, 2, stats.AttributeCount)
	assert.Equal(t, 3, stats.BitmapCount)
	assert.Equal(t, uint64(4), stats.TotalCardinality)
	assert.Positive(t, stats.MemoryBytes)

	attrs, ok, err := g.Attributes(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	attrs["color"] = value.String("green")
	again, _, _ := g.Attributes(ctx, "A")
	assert.Equal(t, value.String("red"), again["color"])
}

func TestGraph_ConcurrentReadWrite(t *testing.T) {
	ctx := context.Background()
	g := memory.New()
	e := tagfind.New(g)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := graph.VertexID(fmt.Sprintf("w%d-%d", w, i))
				assert.NoError(t, g.AddVertex(ctx, id, value.Document{
					"worker": value.Int(int64(w)),
					"parity": value.Bool(i%2 == 0),
				}))
			}
		}()
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, err := e.Find(ctx, []tagfind.Tag{tagfind.MustTag("worker", r), tagfind.MustTag("parity", true)})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	res, err := e.Find(ctx, []tagfind.Tag{tagfind.MustTag("worker", 2), tagfind.MustTag("parity", true)})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Len())
}

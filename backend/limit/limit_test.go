package limit

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/tagfind/backend/memory"
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/resource"
	"github.com/hupe1980/tagfind/testutil"
	"github.com/hupe1980/tagfind/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gated blocks Materialize until release is closed.
type gated struct {
	graph.Backend
	entered chan struct{}
	release chan struct{}
}

func (g *gated) Materialize(ctx context.Context, q graph.Query) ([]graph.VertexID, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Backend.Materialize(ctx, q)
}

func TestLimit_Conformance(t *testing.T) {
	testutil.RunBackendSuite(t, func(t *testing.T) graph.WritableBackend {
		b, ok := Wrap(memory.New(), resource.Config{MaxInFlight: 4}).(graph.WritableBackend)
		require.True(t, ok)
		return b
	}, testutil.SuiteConfig{RandomVertices: 80, RandomQueries: 20})
}

func TestLimit_Capabilities(t *testing.T) {
	full := Wrap(memory.New(), resource.Config{})
	_, ok := full.(graph.EmptinessProber)
	assert.True(t, ok)
	_, ok = full.(graph.Universe)
	assert.True(t, ok)
	_, ok = full.(graph.Writer)
	assert.True(t, ok)
	_, ok = full.(graph.Reader)
	assert.True(t, ok)

	// Embedding the interface hides everything but the core methods.
	readOnly := Wrap(struct{ graph.Backend }{memory.New()}, resource.Config{})
	_, ok = readOnly.(graph.EmptinessProber)
	assert.False(t, ok)
	_, ok = readOnly.(graph.Universe)
	assert.False(t, ok)
	_, ok = readOnly.(graph.Writer)
	assert.False(t, ok)
	_, ok = readOnly.(graph.Reader)
	assert.False(t, ok)

	l := New(struct{ graph.Backend }{memory.New()}, nil)
	empty, err := l.IsEmpty(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, empty)
	_, err = l.AllVertices(context.Background())
	assert.ErrorIs(t, err, graph.ErrUnsupported)
	assert.ErrorIs(t, l.AddVertex(context.Background(), "a", nil), graph.ErrUnsupported)
	_, _, err = l.Attributes(context.Background(), "a")
	assert.ErrorIs(t, err, graph.ErrUnsupported)
}

func TestLimit_InFlight(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	require.NoError(t, mem.AddVertex(ctx, "a", value.Document{"color": value.String("red")}))

	g := &gated{Backend: mem, entered: make(chan struct{}, 1), release: make(chan struct{})}
	rc := resource.NewController(resource.Config{MaxInFlight: 1})
	b := WrapController(g, rc)

	q, err := b.VertexSetForEquality("color", value.String("red"))
	require.NoError(t, err)

	done := make(chan []graph.VertexID)
	go func() {
		ids, err := b.Materialize(ctx, q)
		assert.NoError(t, err)
		done <- ids
	}()
	<-g.entered
	assert.Equal(t, int64(1), rc.InFlight())

	// The only slot is taken: a bounded second call times out.
	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = b.Materialize(tctx, q)
	assert.ErrorIs(t, err, graph.ErrExecutionTimeout)

	close(g.release)
	assert.Equal(t, testutil.IDs("a"), <-done)
	assert.Equal(t, int64(0), rc.InFlight())
}

func TestLimit_Rate(t *testing.T) {
	ctx := context.Background()
	b := Wrap(memory.New(), resource.Config{RequestsPerSecond: 1, Burst: 1})

	q, err := b.VertexSetForEquality("color", value.String("red"))
	require.NoError(t, err)

	_, err = b.Materialize(ctx, q)
	require.NoError(t, err)

	// Building predicates is never limited.
	for i := 0; i < 10; i++ {
		_, err = b.VertexSetForEquality("color", value.String("red"))
		require.NoError(t, err)
	}

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = b.Materialize(tctx, q)
	assert.ErrorIs(t, err, graph.ErrExecutionTimeout)
}

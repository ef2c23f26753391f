package bitmap

import (
	"slices"
	"testing"

	"github.com/hupe1980/tagfind/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmap_Basic(t *testing.T) {
	bm := New()
	assert.True(t, bm.IsEmpty())

	bm.Add(1)
	bm.Add(5)
	bm.Add(5)
	assert.Equal(t, uint64(2), bm.Cardinality())
	assert.True(t, bm.Contains(5))

	bm.Remove(5)
	assert.False(t, bm.Contains(5))
	assert.Equal(t, []uint32{1}, slices.Collect(bm.Iterator()))
}

func TestAnd(t *testing.T) {
	a := Of(1, 2, 3, 4)
	b := Of(2, 3, 9)
	c := Of(3, 2)

	out := And(a, b, c)
	assert.Equal(t, []uint32{2, 3}, slices.Collect(out.Iterator()))

	// Inputs are untouched.
	assert.Equal(t, uint64(4), a.Cardinality())
	assert.Equal(t, uint64(3), b.Cardinality())

	assert.True(t, And().IsEmpty())
	assert.True(t, And(a, nil).IsEmpty())

	single := And(a)
	single.Add(100)
	assert.False(t, a.Contains(100))
}

func TestAnd_ShortCircuitsOnEmpty(t *testing.T) {
	out := And(Of(1), Of(2), Of(1, 2))
	assert.True(t, out.IsEmpty())
}

func TestDict_InternLookupRelease(t *testing.T) {
	d := NewDict()
	a := d.Intern("A")
	b := d.Intern("B")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, d.Intern("A"))
	assert.Equal(t, 2, d.Len())

	slot, ok := d.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, b, slot)

	d.Release("A")
	_, ok = d.Lookup("A")
	assert.False(t, ok)
	_, ok = d.ID(a)
	assert.False(t, ok)

	// Freed slots are reused.
	c := d.Intern("C")
	assert.Equal(t, a, c)
	id, ok := d.ID(c)
	require.True(t, ok)
	assert.Equal(t, graph.VertexID("C"), id)

	_, ok = d.ID(99)
	assert.False(t, ok)
}

func TestDict_Resolve(t *testing.T) {
	d := NewDict()
	bm := New()
	for _, id := range []graph.VertexID{"x", "y", "z"} {
		bm.Add(d.Intern(id))
	}
	d.Release("y")
	assert.Equal(t, []graph.VertexID{"x", "z"}, d.Resolve(bm))
}

package graph

import (
	"context"
	"testing"

	"github.com/hupe1980/tagfind/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coreBackend struct{}

func (coreBackend) VertexSetForEquality(string, value.Value) (Query, error) { return nil, nil }
func (coreBackend) Intersect(context.Context, Query, Query) (Query, error) { return nil, nil }
func (coreBackend) Materialize(context.Context, Query) ([]VertexID, error) { return nil, nil }

type fullBackend struct{ coreBackend }

func (fullBackend) IsEmpty(context.Context, Query) (bool, error)              { return true, nil }
func (fullBackend) AllVertices(context.Context) (Query, error)                { return "all", nil }
func (fullBackend) AddVertex(context.Context, VertexID, value.Document) error { return nil }
func (fullBackend) Attributes(context.Context, VertexID) (value.Document, bool, error) {
	return value.Document{"k": value.String("v")}, true, nil
}

func TestCompose(t *testing.T) {
	full := fullBackend{}
	caps := CapabilitiesOf(full)
	require.NotNil(t, caps.Reader)

	// Every subset of the four capabilities.
	for mask := 0; mask < 16; mask++ {
		var c Capabilities
		if mask&1 != 0 {
			c.Prober = caps.Prober
		}
		if mask&2 != 0 {
			c.Universe = caps.Universe
		}
		if mask&4 != 0 {
			c.Writer = caps.Writer
		}
		if mask&8 != 0 {
			c.Reader = caps.Reader
		}

		b := Compose(coreBackend{}, c)
		_, p := b.(EmptinessProber)
		_, u := b.(Universe)
		_, w := b.(Writer)
		_, r := b.(Reader)
		assert.Equal(t, mask&1 != 0, p, "mask %04b", mask)
		assert.Equal(t, mask&2 != 0, u, "mask %04b", mask)
		assert.Equal(t, mask&4 != 0, w, "mask %04b", mask)
		assert.Equal(t, mask&8 != 0, r, "mask %04b", mask)
	}

	assert.Equal(t, Capabilities{}, CapabilitiesOf(coreBackend{}))

	b := Compose(coreBackend{}, caps)
	q, err := b.(Universe).AllVertices(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "all", q)

	attrs, ok, err := b.(Reader).Attributes(context.Background(), "a")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, value.Document{"k": value.String("v")}, attrs)
}

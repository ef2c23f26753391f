package testutil

import (
	"testing"

	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/value"
	"github.com/stretchr/testify/assert"
)

func TestDataset(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.Dataset(50, []string{"a", "b", "c"}, 3)

	assert.Equal(t, 50, len(v))
	assert.Equal(t, "v0000", string(v[0].ID))
	for _, vert := range v {
		if got, ok := vert.Attrs["a"]; ok {
			assert.Equal(t, value.KindString, got.Kind())
		}
		if got, ok := vert.Attrs["b"]; ok {
			assert.Equal(t, value.KindInt, got.Kind())
		}
		if got, ok := vert.Attrs["c"]; ok {
			assert.Equal(t, value.KindBool, got.Kind())
		}
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(7)
	first := rng.Dataset(10, []string{"a", "b"}, 4)

	rng.Reset()
	second := rng.Dataset(10, []string{"a", "b"}, 4)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(7), rng.Seed())
}

func TestExactMatch(t *testing.T) {
	vertices := []Vertex{
		{ID: "b", Attrs: value.Document{"color": value.String("red"), "n": value.Int(1)}},
		{ID: "a", Attrs: value.Document{"color": value.String("red"), "n": value.Float(1)}},
		{ID: "c", Attrs: value.Document{"color": value.String("blue")}},
	}

	got := ExactMatch(vertices, []tagfind.Tag{tagfind.MustTag("color", "red")})
	assert.Equal(t, IDs("a", "b"), got)

	got = ExactMatch(vertices, []tagfind.Tag{tagfind.MustTag("n", 1)})
	assert.Equal(t, IDs("a", "b"), got)

	got = ExactMatch(vertices, []tagfind.Tag{tagfind.MustTag("color", "red"), tagfind.MustTag("color", "blue")})
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

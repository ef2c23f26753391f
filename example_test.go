package tagfind_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/backend/memory"
	"github.com/hupe1980/tagfind/graph"
)

// Example demonstrates tagging vertices and finding them again.
func Example() {
	ctx := context.Background()

	store := tagfind.NewTagStore(memory.New())
	for id, tags := range map[string][]string{
		"A": {"color=red"},
		"B": {"color=red", "size=large"},
		"C": {"color=red", "size=large"},
		"D": {"size=large"},
	} {
		parsed, err := tagfind.ParseTags(tags)
		if err != nil {
			log.Fatal(err)
		}
		if err := store.Tag(ctx, graph.VertexID(id), parsed); err != nil {
			log.Fatal(err)
		}
	}

	res, err := store.Find(ctx, []tagfind.Tag{
		tagfind.MustTag("color", "red"),
		tagfind.MustTag("size", "large"),
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Len(), res.Contains("B"), res.Contains("C"), res.Contains("A"))
	// Output: 2 true true false
}

// ExampleParseTag shows the textual tag syntax used by the CLI.
func ExampleParseTag() {
	for _, s := range []string{"color=red", "size:int=3", "active:bool=true"} {
		t, err := tagfind.ParseTag(s)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(t.Name, t.Value.Kind(), t)
	}
	// Output:
	// color string color=red
	// size int size:int=3
	// active bool active:bool=true
}

// ExampleWithEmptyTags demonstrates the two empty-tag policies.
func ExampleWithEmptyTags() {
	ctx := context.Background()
	g := memory.New()
	store := tagfind.NewTagStore(g)
	_ = store.Tag(ctx, "A", []tagfind.Tag{tagfind.MustTag("k", "v")})

	_, err := store.Find(ctx, nil)
	fmt.Println(errors.Is(err, tagfind.ErrNoTags))

	all := tagfind.New(g, tagfind.WithEmptyTags(tagfind.MatchAll))
	res, _ := all.Find(ctx, nil)
	fmt.Println(res.Strings())
	// Output:
	// true
	// [A]
}

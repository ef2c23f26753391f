// Package tagfind finds graph vertices that match every one of a set of
// attribute equality tags.
//
// Each tag (name, value) is compiled into a backend query selecting the
// vertices whose attribute equals the value. The engine then folds the
// queries left to right with the backend's intersection and materializes the
// final set:
//
//	g := memory.New()
//	store := tagfind.NewTagStore(g)
//	_ = store.Tag(ctx, "A", []tagfind.Tag{tagfind.MustTag("color", "red")})
//
//	res, err := store.Find(ctx, []tagfind.Tag{
//	    tagfind.MustTag("color", "red"),
//	    tagfind.MustTag("size", "large"),
//	})
//
// # Backends
//
// Backends implement graph.Backend. Push-down backends (memory, neo4j,
// dynamodb) compose queries natively and evaluate the conjunction in one
// pass. Backends that can only list the vertices of one predicate (badger,
// s3, minio) are wrapped with eager.Wrap, which intersects roaring bitmaps in
// memory.
//
// # Short-circuiting
//
// When the backend implements graph.EmptinessProber the engine checks the
// running intersection after every step and stops once it is empty, without
// executing the remaining queries.
//
// # Empty tag lists
//
// An empty tag list fails with ErrNoTags by default. WithEmptyTags(MatchAll)
// returns every vertex instead, for backends implementing graph.Universe.
//
// # Errors
//
// Invalid tags fail with ErrInvalidPredicate before any backend work.
// Backend failures (ErrBackendUnavailable, ErrExecutionTimeout, ...) are
// returned unchanged; the engine never retries and never returns partial
// results.
package tagfind

// Package testutil provides testing utilities for tagfind backends.
//
// This package is intended for use in tests only. It provides a seeded
// random dataset generator, a brute-force ground truth and a conformance
// suite every graph.WritableBackend is expected to pass.
//
// # Random Datasets
//
//	rng := testutil.NewRNG(seed)
//	vertices := rng.Dataset(500, []string{"a", "b", "c"}, 4)
//	tags := rng.RandomTags(2, []string{"a", "b", "c"}, 4)
//
// # Ground Truth
//
//	want := testutil.ExactMatch(vertices, tags)
//
// # Conformance
//
//	testutil.RunBackendSuite(t, func(t *testing.T) graph.WritableBackend {
//	    return memory.New()
//	})
package testutil

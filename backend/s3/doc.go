// Package s3 provides an Amazon S3 tag store.
//
// Every (attribute, value, vertex) triple is a zero-byte object, and every
// vertex has a small JSON record object with its attributes. The vertices of
// a predicate are enumerated with a paginated ListObjectsV2 over the
// predicate's key prefix.
//
// S3 cannot intersect listings, so the store is used through Backend, which
// wraps it with eager.WrapFull.
//
// Usage:
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStoreFromConfig(cfg, "my-bucket", "tags/")
//	engine := tagfind.New(store.Backend())
package s3

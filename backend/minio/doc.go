// Package minio provides a MinIO/S3-compatible tag store.
//
// This package enables tag storage on:
//   - MinIO (self-hosted S3-compatible storage)
//   - Ceph RADOS Gateway
//   - Any other S3-compatible object store
//
// It uses the same key layout as the s3 package: a zero-byte object per
// (attribute, value, vertex) triple plus a JSON record per vertex.
//
// # Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := tagminio.NewStore(client, "tags", "prod/")
//	engine := tagfind.New(store.Backend())
package minio

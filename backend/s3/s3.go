package s3

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/tagfind/eager"
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/internal/awserr"
	"github.com/hupe1980/tagfind/internal/keyspace"
	"github.com/hupe1980/tagfind/value"
)

// Client is the subset of the S3 API used by Store. *s3.Client satisfies
// it.
type Client interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ErrEmptyID is returned when a vertex is written without an ID.
var ErrEmptyID = errors.New("s3: empty vertex id")

// Store is a graph.Source over an S3 bucket.
type Store struct {
	client Client
	bucket string
	keys   keyspace.Space
}

var _ eager.FullSource = (*Store)(nil)

// NewStore creates a new S3 tag store.
// rootPrefix is prepended to all keys (e.g. "tags/").
func NewStore(client Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		keys:   keyspace.New(rootPrefix),
	}
}

// NewStoreFromConfig creates a store with a client built from cfg.
func NewStoreFromConfig(cfg aws.Config, bucket, rootPrefix string, optFns ...func(*s3.Options)) *Store {
	return NewStore(s3.NewFromConfig(cfg, optFns...), bucket, rootPrefix)
}

// Backend returns the store wrapped with in-memory intersection.
func (s *Store) Backend() *eager.Full {
	return eager.WrapFull(s)
}

type listing struct {
	owner  *Store
	prefix string
}

// VertexSetForEquality implements graph.Selector.
func (s *Store) VertexSetForEquality(name string, v value.Value) (graph.Query, error) {
	if name == "" {
		return nil, graph.InvalidName(name, "empty name")
	}
	if !v.Valid() {
		return nil, graph.InvalidName(name, "invalid value")
	}
	return &listing{owner: s, prefix: s.keys.TagPrefix(name, v)}, nil
}

// AllVertices implements graph.Universe.
func (s *Store) AllVertices(context.Context) (graph.Query, error) {
	return &listing{owner: s, prefix: s.keys.VertexPrefix()}, nil
}

// Materialize implements graph.Materializer by listing the query prefix.
func (s *Store) Materialize(ctx context.Context, q graph.Query) ([]graph.VertexID, error) {
	l, ok := q.(*listing)
	if !ok || l.owner != s {
		return nil, &graph.ErrQueryType{Backend: "s3", Query: q}
	}

	var ids []graph.VertexID

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(l.prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, awserr.Classify(err)
		}
		for _, obj := range page.Contents {
			id, err := s.keys.IDFromKey(aws.ToString(obj.Key))
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// AddVertex implements graph.Writer.
//
// S3 has no transactions: tag objects are written first and the vertex
// record last, so a failed write leaves at most extra tag objects for
// values the record does not hold yet. Concurrent writers to the same
// vertex must be serialized by the caller.
func (s *Store) AddVertex(ctx context.Context, id graph.VertexID, attrs value.Document) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := attrs.Validate(); err != nil {
		return errors.Join(graph.ErrInvalidPredicate, err)
	}

	old, err := s.record(ctx, id)
	if err != nil {
		return err
	}
	merged, stale, fresh := s.keys.Diff(id, old, attrs)

	for _, key := range fresh {
		if err := s.put(ctx, key, nil); err != nil {
			return err
		}
	}
	record, err := keyspace.EncodeDocument(merged)
	if err != nil {
		return err
	}
	if err := s.put(ctx, s.keys.Vertex(id), record); err != nil {
		return err
	}
	for _, key := range stale {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return awserr.Classify(err)
		}
	}
	return nil
}

// Attributes implements graph.Reader.
func (s *Store) Attributes(ctx context.Context, id graph.VertexID) (value.Document, bool, error) {
	doc, err := s.record(ctx, id)
	if err != nil || doc == nil {
		return nil, false, err
	}
	return doc, true, nil
}

// record reads the vertex record. A missing record yields nil, nil.
func (s *Store) record(ctx context.Context, id graph.VertexID) (value.Document, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keys.Vertex(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil
		}
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, nil
		}
		return nil, awserr.Classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, awserr.Classify(err)
	}
	return keyspace.DecodeDocument(data)
}

func (s *Store) put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	return awserr.Classify(err)
}

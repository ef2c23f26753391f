package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/hupe1980/tagfind/eager"
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/internal/keyspace"
	"github.com/hupe1980/tagfind/value"
	"github.com/minio/minio-go/v7"
)

// ErrEmptyID is returned when a vertex is written without an ID.
var ErrEmptyID = errors.New("minio: empty vertex id")

// Store is a graph.Source over a MinIO (or other S3-compatible) bucket.
type Store struct {
	client *minio.Client
	bucket string
	keys   keyspace.Space
}

var _ eager.FullSource = (*Store)(nil)

// NewStore creates a new MinIO tag store.
// bucket is the MinIO bucket name.
// rootPrefix is prepended to all keys (e.g. "tags/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		keys:   keyspace.New(rootPrefix),
	}
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
		return nil, &graph.ErrQueryType{Backend: "minio", Query: q}
	}

	// Cancelling stops the listing goroutine if we return early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ids []graph.VertexID
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    l.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, classify(obj.Err)
		}
		id, err := s.keys.IDFromKey(obj.Key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

// AddVertex implements graph.Writer. Tag objects are written before the
// vertex record; stale tag objects are removed last.
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
		if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			if !notFound(err) {
				return classify(err)
			}
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

func (s *Store) record(ctx context.Context, id graph.VertexID) (value.Document, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.keys.Vertex(id), minio.GetObjectOptions{})
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, classify(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return keyspace.DecodeDocument(data)
}

func (s *Store) put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return classify(err)
}

func notFound(err error) bool {
	errResp := minio.ToErrorResponse(err)
	return errResp.Code == "NoSuchKey" || errResp.Code == "NotFound"
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return graph.Timeout(err)
	}
	if errResp := minio.ToErrorResponse(err); errResp.StatusCode >= http.StatusInternalServerError ||
		errResp.StatusCode == http.StatusTooManyRequests {
		return graph.Unavailable(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return graph.Unavailable(err)
	}
	return err
}

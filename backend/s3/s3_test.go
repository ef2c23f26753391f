package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/testutil"
	"github.com/hupe1980/tagfind/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory bucket. Listings are paged with a small page
// size so pagination is always exercised.
type fakeClient struct {
	mu       sync.Mutex
	bucket   string
	objects  map[string][]byte
	pageSize int
	lists    int
	listErr  error
}

func newFakeClient(bucket string) *fakeClient {
	return &fakeClient{bucket: bucket, objects: make(map[string][]byte), pageSize: 7}
}

func (f *fakeClient) checkBucket(bucket *string) error {
	if aws.ToString(bucket) != f.bucket {
		return &types.NoSuchBucket{Message: aws.String("no such bucket")}
	}
	return nil
}

func (f *fakeClient) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) && k > aws.ToString(in.ContinuationToken) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeClient) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (f *fakeClient) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	var data []byte
	if in.Body != nil {
		var err error
		if data, err = io.ReadAll(in.Body); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if err := f.checkBucket(in.Bucket); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestStore_Conformance(t *testing.T) {
	testutil.RunBackendSuite(t, func(t *testing.T) graph.WritableBackend {
		return NewStore(newFakeClient("bucket"), "bucket", "tags").Backend()
	}, testutil.SuiteConfig{RandomVertices: 80, RandomQueries: 25})
}

func TestStore_Layout(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient("bucket")
	store := NewStore(client, "bucket", "tags/")

	require.NoError(t, store.AddVertex(ctx, "A", value.Document{"color": value.String("red")}))
	require.NoError(t, store.AddVertex(ctx, "A", value.Document{"color": value.String("blue")}))

	keys := make([]string, 0, len(client.objects))
	for k := range client.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	assert.Equal(t, []string{"tags/t/color/s:blue/A", "tags/v/A"}, keys)
	assert.Empty(t, client.objects["tags/t/color/s:blue/A"])

	attrs, ok, err := store.Attributes(ctx, "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value.Document{"color": value.String("blue")}, attrs)

	_, ok, err = store.Attributes(ctx, "B")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Pagination(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient("bucket")
	store := NewStore(client, "bucket", "")

	for i := 0; i < 20; i++ {
		id := graph.VertexID(string(rune('a' + i)))
		require.NoError(t, store.AddVertex(ctx, id, value.Document{"k": value.Int(1)}))
	}

	client.lists = 0
	q, err := store.VertexSetForEquality("k", value.Int(1))
	require.NoError(t, err)
	ids, err := store.Materialize(ctx, q)
	require.NoError(t, err)
	assert.Len(t, ids, 20)
	assert.Equal(t, 3, client.lists)
}

func TestStore_ShortCircuitSkipsListing(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient("bucket")
	store := NewStore(client, "bucket", "")
	require.NoError(t, store.AddVertex(ctx, "A", value.Document{"a": value.Int(1), "b": value.Int(1)}))

	client.lists = 0
	res, err := tagfind.New(store.Backend()).Find(ctx, []tagfind.Tag{
		tagfind.MustTag("a", 2),
		tagfind.MustTag("a", 1),
		tagfind.MustTag("b", 1),
	})
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
	assert.Equal(t, 1, client.lists)
}

func TestStore_ErrorClassification(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient("bucket")
	store := NewStore(client, "bucket", "")
	q, err := store.VertexSetForEquality("k", value.Int(1))
	require.NoError(t, err)

	client.listErr = &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	_, err = store.Materialize(ctx, q)
	assert.ErrorIs(t, err, graph.ErrBackendUnavailable)

	client.listErr = nil
	_, err = NewStore(client, "other", "").Materialize(ctx, q)
	assert.ErrorIs(t, err, graph.ErrInvalidPredicate, "foreign query")

	other := NewStore(client, "other", "")
	q2, err := other.VertexSetForEquality("k", value.Int(1))
	require.NoError(t, err)
	_, err = other.Materialize(ctx, q2)
	var nsb *types.NoSuchBucket
	assert.ErrorAs(t, err, &nsb)

	assert.ErrorIs(t, store.AddVertex(ctx, "", value.Document{"k": value.Int(1)}), ErrEmptyID)
	assert.ErrorIs(t, store.AddVertex(ctx, "x", value.Document{"": value.Int(1)}), graph.ErrInvalidPredicate)
}

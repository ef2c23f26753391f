package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/tagfind"
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/testutil"
	"github.com/hupe1980/tagfind/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory DynamoDB table keyed by "id". It understands
// exactly the expressions Table renders: conjunctive equality filters and
// SET update lists.
type fakeClient struct {
	mu       sync.RWMutex
	table    string
	items    map[string]map[string]types.AttributeValue
	pageSize int
	scans    []*dynamodb.ScanInput
	scanErr  error
}

func newFakeClient(table string) *fakeClient {
	return &fakeClient{table: table, items: make(map[string]map[string]types.AttributeValue), pageSize: 5}
}

func (f *fakeClient) checkTable(name *string) error {
	if aws.ToString(name) != f.table {
		return &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return nil
}

func (f *fakeClient) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.checkTable(in.TableName); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.scans = append(f.scans, in)
	scanErr := f.scanErr
	f.mu.Unlock()
	if scanErr != nil {
		return nil, scanErr
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]string, 0, len(f.items))
	for id := range f.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	if start, ok := in.ExclusiveStartKey["id"].(*types.AttributeValueMemberS); ok {
		i, _ := slices.BinarySearch(ids, start.Value)
		if i < len(ids) && ids[i] == start.Value {
			i++
		}
		ids = ids[i:]
	}

	out := &dynamodb.ScanOutput{}
	if len(ids) > f.pageSize {
		ids = ids[:f.pageSize]
		out.LastEvaluatedKey = map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: ids[len(ids)-1]}}
	}
	for _, id := range ids {
		item := f.items[id]
		ok, err := matches(item, in)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Items = append(out.Items, project(item, in))
		}
	}
	out.Count = int32(len(out.Items))
	out.ScannedCount = int32(len(ids))
	return out, nil
}

func matches(item map[string]types.AttributeValue, in *dynamodb.ScanInput) (bool, error) {
	if in.FilterExpression == nil {
		return true, nil
	}
	for _, term := range strings.Split(*in.FilterExpression, " AND ") {
		n, v, ok := strings.Cut(term, " = ")
		if !ok {
			return false, fmt.Errorf("unsupported filter term %q", term)
		}
		got, ok := item[in.ExpressionAttributeNames[n]]
		if !ok {
			return false, nil
		}
		want := in.ExpressionAttributeValues[v]
		gv, err := fromAttribute(got)
		if err != nil {
			return false, nil
		}
		wv, err := fromAttribute(want)
		if err != nil {
			return false, err
		}
		if !gv.Equal(wv) {
			return false, nil
		}
	}
	return true, nil
}

func project(item map[string]types.AttributeValue, in *dynamodb.ScanInput) map[string]types.AttributeValue {
	if in.ProjectionExpression == nil {
		return item
	}
	out := make(map[string]types.AttributeValue)
	for _, p := range strings.Split(*in.ProjectionExpression, ",") {
		name := in.ExpressionAttributeNames[strings.TrimSpace(p)]
		if av, ok := item[name]; ok {
			out[name] = av
		}
	}
	return out
}

func (f *fakeClient) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if err := f.checkTable(in.TableName); err != nil {
		return nil, err
	}
	id := in.Key["id"].(*types.AttributeValueMemberS).Value

	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[id]
	if !ok {
		item = map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
		f.items[id] = item
	}
	if in.UpdateExpression == nil {
		return &dynamodb.UpdateItemOutput{}, nil
	}
	expr, ok := strings.CutPrefix(*in.UpdateExpression, "SET ")
	if !ok {
		return nil, fmt.Errorf("unsupported update %q", *in.UpdateExpression)
	}
	for _, assign := range strings.Split(expr, ", ") {
		n, v, _ := strings.Cut(assign, " = ")
		item[in.ExpressionAttributeNames[n]] = in.ExpressionAttributeValues[v]
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeClient) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if err := f.checkTable(in.TableName); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	id := in.Key["id"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[id]}, nil
}

func TestTable_Conformance(t *testing.T) {
	testutil.RunBackendSuite(t, func(t *testing.T) graph.WritableBackend {
		return New(newFakeClient("vertices"), "vertices")
	}, testutil.SuiteConfig{RandomVertices: 100, RandomQueries: 30})
}

func TestTable_PushDownIsOneScan(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient("vertices")
	table := New(client, "vertices")
	store := tagfind.NewTagStore(table)

	for i := 0; i < 12; i++ {
		require.NoError(t, store.Tag(ctx, graph.VertexID(fmt.Sprintf("v%02d", i)), []tagfind.Tag{
			tagfind.MustTag("color", "red"),
			tagfind.MustTag("size", i%3),
		}))
	}

	client.scans = nil
	res, err := store.Find(ctx, []tagfind.Tag{
		tagfind.MustTag("color", "red"),
		tagfind.MustTag("size", 0),
		tagfind.MustTag("color", "red"),
	})
	require.NoError(t, err)
	assert.Equal(t, testutil.IDs("v00", "v03", "v06", "v09"), res.IDs)

	// 12 items at 5 per page: three pages of the same filtered scan.
	require.Len(t, client.scans, 3)
	first := client.scans[0]
	assert.Equal(t, "#n0 = :v0 AND #n1 = :v1", aws.ToString(first.FilterExpression))
	assert.Equal(t, "#id", aws.ToString(first.ProjectionExpression))
	assert.Equal(t, map[string]string{"#id": "id", "#n0": "color", "#n1": "size"}, first.ExpressionAttributeNames)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "0"}, first.ExpressionAttributeValues[":v1"])
	assert.True(t, aws.ToBool(first.ConsistentRead))
}

func TestTable_Numbers(t *testing.T) {
	ctx := context.Background()
	table := New(newFakeClient("vertices"), "vertices")
	require.NoError(t, table.AddVertex(ctx, "a", value.Document{"n": value.Float(2)}))
	require.NoError(t, table.AddVertex(ctx, "b", value.Document{"n": value.Float(2.5)}))

	q, err := table.VertexSetForEquality("n", value.Int(2))
	require.NoError(t, err)
	ids, err := table.Materialize(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, testutil.IDs("a"), ids)

	attrs, ok, err := table.Attributes(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value.Document{"n": value.Float(2.5)}, attrs)

	_, ok, err = table.Attributes(ctx, "zzz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTable_AttributesSkipsForeignTypes(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient("vertices")
	table := New(client, "vertices")
	require.NoError(t, table.AddVertex(ctx, "a", value.Document{"color": value.String("red")}))

	client.mu.Lock()
	item := client.items["a"]
	item["history"] = &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: "x"}}}
	item["blob"] = &types.AttributeValueMemberB{Value: []byte{1, 2}}
	item["huge"] = &types.AttributeValueMemberN{Value: "1e400"}
	client.mu.Unlock()

	attrs, ok, err := table.Attributes(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, value.Document{"color": value.String("red")}, attrs)
}

func TestTable_ReservedAndInvalid(t *testing.T) {
	ctx := context.Background()
	table := New(newFakeClient("vertices"), "vertices")

	_, err := table.VertexSetForEquality("id", value.String("x"))
	assert.ErrorIs(t, err, graph.ErrInvalidPredicate)
	_, err = table.VertexSetForEquality("n", value.Value{})
	assert.ErrorIs(t, err, graph.ErrInvalidPredicate)

	assert.ErrorIs(t, table.AddVertex(ctx, "x", value.Document{"id": value.String("y")}), graph.ErrInvalidPredicate)
	assert.ErrorIs(t, table.AddVertex(ctx, "", value.Document{"k": value.Int(1)}), ErrEmptyID)

	q, err := New(newFakeClient("vertices"), "vertices").AllVertices(ctx)
	require.NoError(t, err)
	_, err = table.Materialize(ctx, q)
	assert.ErrorIs(t, err, graph.ErrInvalidPredicate)
}

func TestTable_ErrorClassification(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient("vertices")
	table := New(client, "vertices")
	q, err := table.AllVertices(ctx)
	require.NoError(t, err)

	client.scanErr = &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	_, err = table.Materialize(ctx, q)
	assert.ErrorIs(t, err, graph.ErrBackendUnavailable)

	client.scanErr = nil
	missing := New(client, "missing")
	q, err = missing.AllVertices(ctx)
	require.NoError(t, err)
	_, err = missing.Materialize(ctx, q)
	var rnf *types.ResourceNotFoundException
	assert.ErrorAs(t, err, &rnf)
	assert.NotErrorIs(t, err, graph.ErrBackendUnavailable)
}

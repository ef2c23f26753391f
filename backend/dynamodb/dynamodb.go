// Package dynamodb stores vertices in an Amazon DynamoDB table, one item per
// vertex and one top-level attribute per tag.
//
// Equality predicates are pushed down: Intersect only concatenates
// predicates, and Materialize issues a single paginated Scan whose
// FilterExpression is the conjunction of all of them.
//
// Table schema:
//   - Partition key: id (string) - the vertex ID
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name tagfind-vertices \
//	  --attribute-definitions AttributeName=id,AttributeType=S \
//	  --key-schema AttributeName=id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/internal/awserr"
	"github.com/hupe1980/tagfind/value"
)

// IDAttribute is the partition key attribute holding the vertex ID. It
// cannot be used as a tag name.
const IDAttribute = "id"

// ErrEmptyID is returned when a vertex is written without an ID.
var ErrEmptyID = errors.New("dynamodb: empty vertex id")

// Client is the subset of the DynamoDB API used by Table. *dynamodb.Client
// satisfies it.
type Client interface {
	dynamodb.ScanAPIClient
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// Table is a push-down graph backend over a DynamoDB table.
type Table struct {
	client    Client
	tableName string
}

var (
	_ graph.WritableBackend = (*Table)(nil)
	_ graph.Universe        = (*Table)(nil)
	_ graph.Reader          = (*Table)(nil)
)

// New creates a backend on tableName.
func New(client Client, tableName string) *Table {
	return &Table{client: client, tableName: tableName}
}

// NewFromConfig creates a backend with a client built from cfg.
func NewFromConfig(cfg aws.Config, tableName string, optFns ...func(*dynamodb.Options)) *Table {
	return New(dynamodb.NewFromConfig(cfg, optFns...), tableName)
}

type predicate struct {
	name string
	key  string // value.Key, for deduplication
	attr types.AttributeValue
}

// scan is a conjunction of predicates. No predicates selects every item.
type scan struct {
	owner *Table
	preds []predicate
}

// VertexSetForEquality implements graph.Selector.
func (t *Table) VertexSetForEquality(name string, v value.Value) (graph.Query, error) {
	if name == "" {
		return nil, graph.InvalidName(name, "empty name")
	}
	if name == IDAttribute {
		return nil, graph.InvalidName(name, "reserved for the vertex id")
	}
	attr, err := toAttribute(v)
	if err != nil {
		return nil, fmt.Errorf("%w: attribute %q: %w", graph.ErrInvalidPredicate, name, err)
	}
	return &scan{owner: t, preds: []predicate{{name: name, key: v.Key(), attr: attr}}}, nil
}

// AllVertices implements graph.Universe.
func (t *Table) AllVertices(context.Context) (graph.Query, error) {
	return &scan{owner: t}, nil
}

// Intersect implements graph.Intersector without any request.
func (t *Table) Intersect(_ context.Context, a, b graph.Query) (graph.Query, error) {
	sa, err := t.own(a)
	if err != nil {
		return nil, err
	}
	sb, err := t.own(b)
	if err != nil {
		return nil, err
	}

	type dedup struct{ name, key string }
	preds := make([]predicate, 0, len(sa.preds)+len(sb.preds))
	seen := make(map[dedup]struct{}, cap(preds))
	for _, src := range [][]predicate{sa.preds, sb.preds} {
		for _, p := range src {
			k := dedup{p.name, p.key}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			preds = append(preds, p)
		}
	}
	return &scan{owner: t, preds: preds}, nil
}

// Materialize implements graph.Materializer with one paginated Scan.
func (t *Table) Materialize(ctx context.Context, q graph.Query) ([]graph.VertexID, error) {
	s, err := t.own(q)
	if err != nil {
		return nil, err
	}

	paginator := dynamodb.NewScanPaginator(t.client, t.scanInput(s))

	var ids []graph.VertexID
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, awserr.Classify(err)
		}
		for _, item := range page.Items {
			id, ok := item[IDAttribute].(*types.AttributeValueMemberS)
			if !ok {
				return nil, fmt.Errorf("dynamodb: item without string %q attribute", IDAttribute)
			}
			ids = append(ids, graph.VertexID(id.Value))
		}
	}
	return ids, nil
}

// scanInput renders s as `#n0 = :v0 AND #n1 = :v1 ...` projecting only the
// id attribute.
func (t *Table) scanInput(s *scan) *dynamodb.ScanInput {
	in := &dynamodb.ScanInput{
		TableName:                aws.String(t.tableName),
		ConsistentRead:           aws.Bool(true),
		ProjectionExpression:     aws.String("#id"),
		ExpressionAttributeNames: map[string]string{"#id": IDAttribute},
	}
	if len(s.preds) == 0 {
		return in
	}

	terms := make([]string, len(s.preds))
	in.ExpressionAttributeValues = make(map[string]types.AttributeValue, len(s.preds))
	for i, p := range s.preds {
		n, v := fmt.Sprintf("#n%d", i), fmt.Sprintf(":v%d", i)
		in.ExpressionAttributeNames[n] = p.name
		in.ExpressionAttributeValues[v] = p.attr
		terms[i] = n + " = " + v
	}
	in.FilterExpression = aws.String(strings.Join(terms, " AND "))
	return in
}

// AddVertex implements graph.Writer with a single UpdateItem, which creates
// the item if needed and leaves attributes not in attrs untouched.
func (t *Table) AddVertex(ctx context.Context, id graph.VertexID, attrs value.Document) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := attrs.Validate(); err != nil {
		return errors.Join(graph.ErrInvalidPredicate, err)
	}
	if _, reserved := attrs[IDAttribute]; reserved {
		return graph.InvalidName(IDAttribute, "reserved for the vertex id")
	}

	in := &dynamodb.UpdateItemInput{
		TableName: aws.String(t.tableName),
		Key: map[string]types.AttributeValue{
			IDAttribute: &types.AttributeValueMemberS{Value: string(id)},
		},
	}
	if len(attrs) > 0 {
		in.ExpressionAttributeNames = make(map[string]string, len(attrs))
		in.ExpressionAttributeValues = make(map[string]types.AttributeValue, len(attrs))
		sets := make([]string, 0, len(attrs))
		i := 0
		for name, v := range attrs {
			attr, err := toAttribute(v)
			if err != nil {
				return errors.Join(graph.ErrInvalidPredicate, err)
			}
			n, a := fmt.Sprintf("#a%d", i), fmt.Sprintf(":a%d", i)
			in.ExpressionAttributeNames[n] = name
			in.ExpressionAttributeValues[a] = attr
			sets = append(sets, n+" = "+a)
			i++
		}
		in.UpdateExpression = aws.String("SET " + strings.Join(sets, ", "))
	}

	if _, err := t.client.UpdateItem(ctx, in); err != nil {
		return awserr.Classify(err)
	}
	return nil
}

// Attributes implements graph.Reader.
//
// Only attributes of type S, N and BOOL are tag values. Items may carry
// other attributes written by other clients of the table (lists, maps, sets,
// binary); those are left out of the document, as are N values that do not
// parse as a finite number.
func (t *Table) Attributes(ctx context.Context, id graph.VertexID) (value.Document, bool, error) {
	resp, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.tableName),
		Key:            map[string]types.AttributeValue{IDAttribute: &types.AttributeValueMemberS{Value: string(id)}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, awserr.Classify(err)
	}
	if len(resp.Item) == 0 {
		return nil, false, nil
	}
	doc := make(value.Document, len(resp.Item)-1)
	for name, av := range resp.Item {
		if name == IDAttribute {
			continue
		}
		v, err := fromAttribute(av)
		if err != nil {
			continue // not a tag value
		}
		doc[name] = v
	}
	return doc, true, nil
}

func (t *Table) own(q graph.Query) (*scan, error) {
	s, ok := q.(*scan)
	if !ok || s.owner != t {
		return nil, &graph.ErrQueryType{Backend: "dynamodb", Query: q}
	}
	return s, nil
}

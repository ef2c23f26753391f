// Package neo4j evaluates tag intersections inside Neo4j (or Memgraph) with
// a single Cypher query.
//
// Vertices are nodes with one label (default "Vertex") and an "id"
// property; every tag is a node property. Intersect concatenates
// predicates, so a conjunction of k tags is executed as
//
//	MATCH (v:Vertex) WHERE v[$n0] = $v0 AND ... AND v[$nk] = $vk
//	RETURN v.id AS id
//
// leaving index selection to the database planner.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/value"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
)

const (
	// IDProperty holds the vertex ID. It cannot be used as a tag name.
	IDProperty = "id"

	// DefaultLabel is the node label used when none is configured.
	DefaultLabel = "Vertex"
)

var labelPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrEmptyID is returned when a vertex is written without an ID.
var ErrEmptyID = errors.New("neo4j: empty vertex id")

// Graph is a push-down graph backend over a Neo4j database.
type Graph struct {
	driver   neo4j.DriverWithContext
	database string
	label    string
	owned    bool
}

var (
	_ graph.WritableBackend = (*Graph)(nil)
	_ graph.Universe        = (*Graph)(nil)
	_ graph.Reader          = (*Graph)(nil)
)

// Option configures a Graph.
type Option func(*Graph)

// WithDatabase selects the database. Empty means the server default.
func WithDatabase(name string) Option {
	return func(g *Graph) { g.database = name }
}

// WithLabel sets the node label of vertices.
func WithLabel(label string) Option {
	return func(g *Graph) { g.label = label }
}

// New creates a backend on an existing driver. Close does not close
// driver.
func New(driver neo4j.DriverWithContext, optFns ...Option) (*Graph, error) {
	g := &Graph{driver: driver, label: DefaultLabel}
	for _, fn := range optFns {
		fn(g)
	}
	if !labelPattern.MatchString(g.label) {
		return nil, fmt.Errorf("neo4j: invalid label %q", g.label)
	}
	return g, nil
}

// Open creates a driver for uri with basic auth and returns a backend that
// owns it.
func Open(uri, username, password string, optFns ...Option) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	g, err := New(driver, optFns...)
	if err != nil {
		_ = driver.Close(context.Background())
		return nil, err
	}
	g.owned = true
	return g, nil
}

// VerifyConnectivity checks that the server is reachable.
func (g *Graph) VerifyConnectivity(ctx context.Context) error {
	return classify(g.driver.VerifyConnectivity(ctx))
}

// Close closes the driver if the backend opened it.
func (g *Graph) Close(ctx context.Context) error {
	if !g.owned {
		return nil
	}
	return g.driver.Close(ctx)
}

type predicate struct {
	name string
	key  string // value.Key, for deduplication
	val  any
}

// match is a conjunction of property equalities. No predicates matches
// every vertex.
type match struct {
	owner *Graph
	preds []predicate
}

// VertexSetForEquality implements graph.Selector.
func (g *Graph) VertexSetForEquality(name string, v value.Value) (graph.Query, error) {
	if name == "" {
		return nil, graph.InvalidName(name, "empty name")
	}
	if name == IDProperty {
		return nil, graph.InvalidName(name, "reserved for the vertex id")
	}
	if !v.Valid() {
		return nil, graph.InvalidName(name, "invalid value")
	}
	return &match{owner: g, preds: []predicate{{name: name, key: v.Key(), val: v.Interface()}}}, nil
}

// AllVertices implements graph.Universe.
func (g *Graph) AllVertices(context.Context) (graph.Query, error) {
	return &match{owner: g}, nil
}

// Intersect implements graph.Intersector without contacting the server.
func (g *Graph) Intersect(_ context.Context, a, b graph.Query) (graph.Query, error) {
	ma, err := g.own(a)
	if err != nil {
		return nil, err
	}
	mb, err := g.own(b)
	if err != nil {
		return nil, err
	}

	type dedup struct{ name, key string }
	preds := make([]predicate, 0, len(ma.preds)+len(mb.preds))
	seen := make(map[dedup]struct{}, cap(preds))
	for _, src := range [][]predicate{ma.preds, mb.preds} {
		for _, p := range src {
			k := dedup{p.name, p.key}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			preds = append(preds, p)
		}
	}
	return &match{owner: g, preds: preds}, nil
}

// Materialize implements graph.Materializer.
func (g *Graph) Materialize(ctx context.Context, q graph.Query) ([]graph.VertexID, error) {
	m, err := g.own(q)
	if err != nil {
		return nil, err
	}
	query, params := g.cypher(m)

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var ids []graph.VertexID
		for res.Next(ctx) {
			raw, ok := res.Record().Get("id")
			if !ok {
				continue
			}
			id, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("neo4j: unexpected id type %T", raw)
			}
			ids = append(ids, graph.VertexID(id))
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, classify(err)
	}
	ids, _ := result.([]graph.VertexID)
	return ids, nil
}

// cypher renders m as a parameterized query. Property names travel as
// parameters and are accessed dynamically, so they need no escaping.
func (g *Graph) cypher(m *match) (string, map[string]any) {
	var b strings.Builder
	params := make(map[string]any, 2*len(m.preds))

	fmt.Fprintf(&b, "MATCH (v:`%s`)", g.label)
	for i, p := range m.preds {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		n, v := fmt.Sprintf("n%d", i), fmt.Sprintf("v%d", i)
		fmt.Fprintf(&b, "v[$%s] = $%s", n, v)
		params[n] = p.name
		params[v] = p.val
	}
	fmt.Fprintf(&b, " RETURN v.%s AS id", IDProperty)
	return b.String(), params
}

// AddVertex implements graph.Writer with MERGE on the id property followed
// by a property map merge.
func (g *Graph) AddVertex(ctx context.Context, id graph.VertexID, attrs value.Document) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := attrs.Validate(); err != nil {
		return errors.Join(graph.ErrInvalidPredicate, err)
	}
	if _, reserved := attrs[IDProperty]; reserved {
		return graph.InvalidName(IDProperty, "reserved for the vertex id")
	}

	props := make(map[string]any, len(attrs))
	for name, v := range attrs {
		props[name] = v.Interface()
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf("MERGE (v:`%s` {%s: $id}) SET v += $props", g.label, IDProperty)
		_, err := tx.Run(ctx, query, map[string]any{
			"id":    string(id),
			"props": props,
		})
		return nil, err
	})
	return classify(err)
}

// Attributes implements graph.Reader. Node properties that are not scalar
// tag values (lists, temporal and spatial types) are left out.
func (g *Graph) Attributes(ctx context.Context, id graph.VertexID) (value.Document, bool, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf("MATCH (v:`%s` {%s: $id}) RETURN properties(v) AS props LIMIT 1", g.label, IDProperty)
		res, err := tx.Run(ctx, query, map[string]any{"id": string(id)})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, res.Err()
		}
		raw, _ := res.Record().Get("props")
		props, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("neo4j: unexpected properties type %T", raw)
		}
		return props, nil
	})
	if err != nil {
		return nil, false, classify(err)
	}
	props, ok := result.(map[string]any)
	if !ok {
		return nil, false, nil
	}

	doc := make(value.Document, len(props))
	for name, raw := range props {
		if name == IDProperty {
			continue
		}
		v, err := value.FromAny(raw)
		if err != nil {
			continue
		}
		doc[name] = v
	}
	return doc, true, nil
}

// DeleteAll removes every vertex with the configured label.
func (g *Graph) DeleteAll(ctx context.Context) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, fmt.Sprintf("MATCH (v:`%s`) DETACH DELETE v", g.label), nil)
		return nil, err
	})
	return classify(err)
}

func (g *Graph) own(q graph.Query) (*match, error) {
	m, ok := q.(*match)
	if !ok || m.owner != g {
		return nil, &graph.ErrQueryType{Backend: "neo4j", Query: q}
	}
	return m, nil
}

// classify maps driver failures onto the graph error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return graph.Timeout(err)
	}
	if neo4j.IsConnectivityError(err) || neo4j.IsTransactionExecutionLimit(err) {
		return graph.Unavailable(err)
	}
	var dbErr *db.Neo4jError
	if errors.As(err, &dbErr) {
		switch {
		case strings.Contains(dbErr.Code, "TransactionTimedOut"):
			return graph.Timeout(err)
		case strings.HasPrefix(dbErr.Code, "Neo.TransientError."):
			return graph.Unavailable(err)
		}
	}
	return err
}

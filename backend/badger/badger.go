// Package badger stores vertex tags in an embedded Badger key-value store.
//
// Each (attribute, value, vertex) triple is one empty-valued key, so the
// vertices of a predicate are listed with a single prefix scan. Badger has no
// native set intersection; Backend wraps the store with eager.WrapFull, which
// intersects the scanned ID sets in memory.
//
// Usage:
//
//	store, err := badger.Open(badger.Options{Dir: "/var/lib/tagfind"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	engine := tagfind.New(store.Backend())
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/hupe1980/tagfind/eager"
	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/internal/keyspace"
	"github.com/hupe1980/tagfind/value"
)

// maxConflictRetries bounds how often a write is retried after a
// transaction conflict.
const maxConflictRetries = 5

// ErrEmptyID is returned when a vertex is written without an ID.
var ErrEmptyID = errors.New("badger: empty vertex id")

// Options configures Open.
type Options struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir string
	// InMemory keeps all data in memory. Useful for tests.
	InMemory bool
	// Prefix namespaces all keys of this store.
	Prefix string
	// Logger receives Badger's internal log output. Nil silences it.
	Logger *slog.Logger
}

// Store is a graph.Source over a Badger database.
type Store struct {
	db    *badgerdb.DB
	keys  keyspace.Space
	owned bool
}

var _ eager.FullSource = (*Store)(nil)

// Open opens (or creates) a Badger database and returns a store that owns
// it.
func Open(opts Options) (*Store, error) {
	bopts := badgerdb.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = badgerdb.DefaultOptions("").WithInMemory(true)
	}
	if opts.Logger != nil {
		bopts = bopts.WithLogger(newLogger(opts.Logger))
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badgerdb.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	s := New(db, opts.Prefix)
	s.owned = true
	return s, nil
}

// New returns a store on an already opened database. Close does not close
// db.
func New(db *badgerdb.DB, prefix string) *Store {
	return &Store{db: db, keys: keyspace.New(prefix)}
}

// Backend returns the store wrapped with in-memory intersection.
func (s *Store) Backend() *eager.Full {
	return eager.WrapFull(s)
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// scan selects the vertices found below a key prefix.
type scan struct {
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
	return &scan{owner: s, prefix: s.keys.TagPrefix(name, v)}, nil
}

// AllVertices implements graph.Universe.
func (s *Store) AllVertices(context.Context) (graph.Query, error) {
	return &scan{owner: s, prefix: s.keys.VertexPrefix()}, nil
}

// Materialize implements graph.Materializer with a key-only prefix scan.
func (s *Store) Materialize(ctx context.Context, q graph.Query) ([]graph.VertexID, error) {
	sc, ok := q.(*scan)
	if !ok || sc.owner != s {
		return nil, &graph.ErrQueryType{Backend: "badger", Query: q}
	}

	var ids []graph.VertexID
	err := s.db.View(func(txn *badgerdb.Txn) error {
		prefix := []byte(sc.prefix)
		it := txn.NewIterator(badgerdb.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			id, err := s.keys.IDFromKey(string(it.Item().Key()))
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return ids, nil
}

// AddVertex implements graph.Writer. The vertex record and its tag keys are
// updated in one transaction.
func (s *Store) AddVertex(ctx context.Context, id graph.VertexID, attrs value.Document) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := attrs.Validate(); err != nil {
		return errors.Join(graph.ErrInvalidPredicate, err)
	}

	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return graph.ClassifyContext(cerr)
		}
		err = s.db.Update(func(txn *badgerdb.Txn) error {
			return s.addVertexTxn(txn, id, attrs)
		})
		if !errors.Is(err, badgerdb.ErrConflict) {
			break
		}
	}
	return classify(err)
}

func (s *Store) addVertexTxn(txn *badgerdb.Txn, id graph.VertexID, attrs value.Document) error {
	recordKey := []byte(s.keys.Vertex(id))

	var old value.Document
	item, err := txn.Get(recordKey)
	switch {
	case errors.Is(err, badgerdb.ErrKeyNotFound):
	case err != nil:
		return err
	default:
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if old, err = keyspace.DecodeDocument(data); err != nil {
			return err
		}
	}

	merged, stale, fresh := s.keys.Diff(id, old, attrs)
	for _, k := range stale {
		if err := txn.Delete([]byte(k)); err != nil {
			return err
		}
	}
	for _, k := range fresh {
		if err := txn.Set([]byte(k), nil); err != nil {
			return err
		}
	}
	record, err := keyspace.EncodeDocument(merged)
	if err != nil {
		return err
	}
	return txn.Set(recordKey, record)
}

// Attributes implements graph.Reader.
func (s *Store) Attributes(_ context.Context, id graph.VertexID) (value.Document, bool, error) {
	var doc value.Document
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(s.keys.Vertex(id)))
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		doc, err = keyspace.DecodeDocument(data)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, classify(err)
	}
	return doc, true, nil
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badgerdb.ErrDBClosed), errors.Is(err, badgerdb.ErrConflict):
		return graph.Unavailable(err)
	default:
		return graph.ClassifyContext(err)
	}
}

// Package keyspace defines the flat key layout shared by the key-value and
// object-store backends.
//
// Every (attribute, value, vertex) triple is one key:
//
//	<prefix>t/<name>/<value key>/<vertex id>
//
// and every vertex has one record key holding its attribute document:
//
//	<prefix>v/<vertex id>
//
// Segments are URL path escaped, so a '/' inside a name, value or ID never
// splits a segment. Listing the keys below TagPrefix(name, v) yields exactly
// the vertices whose attribute name equals v.
package keyspace

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/value"
)

const (
	tagDir    = "t/"
	vertexDir = "v/"
)

// Space is a key layout below a fixed prefix.
type Space struct {
	prefix string
}

// New returns a key space rooted at prefix. A non-empty prefix is used as a
// directory: "tags" and "tags/" are equivalent.
func New(prefix string) Space {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return Space{prefix: prefix}
}

// Prefix returns the normalized root prefix.
func (s Space) Prefix() string { return s.prefix }

// TagPrefix returns the listing prefix of all vertices with name = v.
func (s Space) TagPrefix(name string, v value.Value) string {
	return s.prefix + tagDir + url.PathEscape(name) + "/" + url.PathEscape(v.Key()) + "/"
}

// Tag returns the key recording that vertex id has name = v.
func (s Space) Tag(name string, v value.Value, id graph.VertexID) string {
	return s.TagPrefix(name, v) + url.PathEscape(string(id))
}

// VertexPrefix returns the listing prefix of all vertex records.
func (s Space) VertexPrefix() string {
	return s.prefix + vertexDir
}

// Vertex returns the record key of vertex id.
func (s Space) Vertex(id graph.VertexID) string {
	return s.VertexPrefix() + url.PathEscape(string(id))
}

// IDFromKey extracts the vertex ID from a tag or vertex record key.
func (s Space) IDFromKey(key string) (graph.VertexID, error) {
	if !strings.HasPrefix(key, s.prefix) {
		return "", fmt.Errorf("keyspace: key %q outside prefix %q", key, s.prefix)
	}
	i := strings.LastIndexByte(key, '/')
	id, err := url.PathUnescape(key[i+1:])
	if err != nil {
		return "", fmt.Errorf("keyspace: key %q: %w", key, err)
	}
	if id == "" {
		return "", fmt.Errorf("keyspace: key %q has no vertex id", key)
	}
	return graph.VertexID(id), nil
}

// Diff merges attrs into old and returns the merged document together with
// the tag keys to delete (overwritten values) and to write (new values).
// old may be nil for a new vertex.
func (s Space) Diff(id graph.VertexID, old, attrs value.Document) (merged value.Document, stale, fresh []string) {
	merged = old.Clone()
	if merged == nil {
		merged = make(value.Document, len(attrs))
	}
	for name, v := range attrs {
		if prev, ok := merged[name]; ok {
			if prev.Key() == v.Key() {
				merged[name] = v
				continue
			}
			stale = append(stale, s.Tag(name, prev, id))
		}
		merged[name] = v
		fresh = append(fresh, s.Tag(name, v, id))
	}
	return merged, stale, fresh
}

// EncodeDocument serializes a vertex record.
func EncodeDocument(doc value.Document) ([]byte, error) {
	return json.Marshal(doc)
}

// DecodeDocument parses a vertex record written by EncodeDocument.
func DecodeDocument(data []byte) (value.Document, error) {
	if len(data) == 0 {
		return value.Document{}, nil
	}
	var doc value.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("keyspace: decode vertex record: %w", err)
	}
	return doc, nil
}

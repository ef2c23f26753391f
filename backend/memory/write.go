package memory

import (
	"context"
	"errors"

	"github.com/hupe1980/tagfind/graph"
	"github.com/hupe1980/tagfind/internal/bitmap"
	"github.com/hupe1980/tagfind/value"
)

// ErrEmptyID is returned when a vertex is written without an ID.
var ErrEmptyID = errors.New("empty vertex id")

// AddVertex implements graph.Writer. Attributes are merged into the existing
// attribute set; an attribute written again replaces its previous value.
func (g *Graph) AddVertex(_ context.Context, id graph.VertexID, attrs value.Document) error {
	if id == "" {
		return ErrEmptyID
	}
	if err := attrs.Validate(); err != nil {
		return errors.Join(graph.ErrInvalidPredicate, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	slot := g.dict.Intern(id)
	doc, exists := g.documents[slot]
	if !exists {
		doc = make(value.Document, len(attrs))
		g.documents[slot] = doc
		g.all.Add(slot)
	}

	for name, v := range attrs {
		if old, ok := doc[name]; ok {
			g.removeFromIndexLocked(slot, name, old)
		}
		doc[name] = v
		g.addToIndexLocked(slot, name, v)
	}
	return nil
}

// RemoveVertex deletes a vertex and all its attributes.
// It reports whether the vertex existed.
func (g *Graph) RemoveVertex(id graph.VertexID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	slot, ok := g.dict.Lookup(id)
	if !ok {
		return false
	}
	for name, v := range g.documents[slot] {
		g.removeFromIndexLocked(slot, name, v)
	}
	delete(g.documents, slot)
	g.all.Remove(slot)
	g.dict.Release(id)
	return true
}

// Attributes implements graph.Reader. It returns a copy of the attributes of
// a vertex and never fails.
func (g *Graph) Attributes(_ context.Context, id graph.VertexID) (value.Document, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	slot, ok := g.dict.Lookup(id)
	if !ok {
		return nil, false, nil
	}
	doc, ok := g.documents[slot]
	return doc.Clone(), ok, nil
}

// Len returns the number of vertices.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.documents)
}

// addToIndexLocked adds one attribute to the inverted index.
// Caller must hold g.mu.Lock().
func (g *Graph) addToIndexLocked(slot uint32, name string, v value.Value) {
	valueMap, ok := g.inverted[name]
	if !ok {
		valueMap = make(map[string]*bitmap.Bitmap)
		g.inverted[name] = valueMap
	}

	key := v.Key()
	bm, ok := valueMap[key]
	if !ok {
		bm = bitmap.New()
		valueMap[key] = bm
	}
	bm.Add(slot)
}

// removeFromIndexLocked removes one attribute from the inverted index.
// Caller must hold g.mu.Lock().
func (g *Graph) removeFromIndexLocked(slot uint32, name string, v value.Value) {
	valueMap, ok := g.inverted[name]
	if !ok {
		return
	}

	key := v.Key()
	bm, ok := valueMap[key]
	if !ok {
		return
	}
	bm.Remove(slot)

	// Clean up empty bitmaps
	if bm.IsEmpty() {
		delete(valueMap, key)
		if len(valueMap) == 0 {
			delete(g.inverted, name)
		}
	}
}

// Stats describes the size of the index.
type Stats struct {
	VertexCount      int    // Total vertices
	AttributeCount   int    // Number of indexed attribute names
	BitmapCount      int    // Total number of posting lists
	TotalCardinality uint64 // Sum of all posting list cardinalities
	MemoryBytes      uint64 // Estimated posting list memory usage
}

// GetStats returns statistics about the index.
func (g *Graph) GetStats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := Stats{
		VertexCount:    len(g.documents),
		AttributeCount: len(g.inverted),
	}
	for _, valueMap := range g.inverted {
		for _, bm := range valueMap {
			stats.BitmapCount++
			stats.TotalCardinality += bm.Cardinality()
			stats.MemoryBytes += bm.GetSizeInBytes()
		}
	}
	return stats
}

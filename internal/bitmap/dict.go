package bitmap

import (
	"github.com/hupe1980/tagfind/graph"
)

// Dict assigns dense uint32 slots to vertex IDs so that vertex sets can be
// stored as roaring bitmaps.
//
// Dict is not safe for concurrent mutation; callers synchronize.
type Dict struct {
	ids   []graph.VertexID
	index map[graph.VertexID]uint32
	free  []uint32
}

// NewDict creates an empty dictionary.
func NewDict() *Dict {
	return &Dict{index: make(map[graph.VertexID]uint32)}
}

// Intern returns the slot of id, assigning one if needed.
func (d *Dict) Intern(id graph.VertexID) uint32 {
	if slot, ok := d.index[id]; ok {
		return slot
	}
	var slot uint32
	if n := len(d.free); n > 0 {
		slot = d.free[n-1]
		d.free = d.free[:n-1]
		d.ids[slot] = id
	} else {
		slot = uint32(len(d.ids))
		d.ids = append(d.ids, id)
	}
	d.index[id] = slot
	return slot
}

// Lookup returns the slot of id if it has one.
func (d *Dict) Lookup(id graph.VertexID) (uint32, bool) {
	slot, ok := d.index[id]
	return slot, ok
}

// ID returns the vertex ID stored in slot.
func (d *Dict) ID(slot uint32) (graph.VertexID, bool) {
	if int(slot) >= len(d.ids) {
		return "", false
	}
	id := d.ids[slot]
	if got, ok := d.index[id]; !ok || got != slot {
		return "", false
	}
	return id, true
}

// Release frees the slot of id for reuse. The caller must remove the slot
// from every bitmap first.
func (d *Dict) Release(id graph.VertexID) {
	slot, ok := d.index[id]
	if !ok {
		return
	}
	delete(d.index, id)
	d.ids[slot] = ""
	d.free = append(d.free, slot)
}

// Len returns the number of interned IDs.
func (d *Dict) Len() int { return len(d.index) }

// Resolve translates the slots of bm into vertex IDs in slot order.
// Slots without an ID are skipped.
func (d *Dict) Resolve(bm *Bitmap) []graph.VertexID {
	out := make([]graph.VertexID, 0, bm.Cardinality())
	for slot := range bm.Iterator() {
		if id, ok := d.ID(slot); ok {
			out = append(out, id)
		}
	}
	return out
}

package bitmap

import (
	"cmp"
	"iter"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// Bitmap implements a 32-bit Roaring Bitmap over dictionary slots.
// It wraps the official roaring implementation.
type Bitmap struct {
	rb *roaring.Bitmap
}

// New creates a new empty bitmap.
func New() *Bitmap {
	return &Bitmap{rb: roaring.New()}
}

// Of creates a bitmap containing the given slots.
func Of(slots ...uint32) *Bitmap {
	return &Bitmap{rb: roaring.BitmapOf(slots...)}
}

// Add adds a slot to the bitmap.
func (b *Bitmap) Add(slot uint32) { b.rb.Add(slot) }

// Remove removes a slot from the bitmap.
func (b *Bitmap) Remove(slot uint32) { b.rb.Remove(slot) }

// Contains checks if a slot is in the bitmap.
func (b *Bitmap) Contains(slot uint32) bool { return b.rb.Contains(slot) }

// IsEmpty returns true if the bitmap is empty.
func (b *Bitmap) IsEmpty() bool { return b.rb.IsEmpty() }

// Cardinality returns the number of elements in the bitmap.
func (b *Bitmap) Cardinality() uint64 { return b.rb.GetCardinality() }

// Clone returns a deep copy of the bitmap.
func (b *Bitmap) Clone() *Bitmap { return &Bitmap{rb: b.rb.Clone()} }

// And intersects b with other in place.
func (b *Bitmap) And(other *Bitmap) { b.rb.And(other.rb) }

// Or merges other into b in place.
func (b *Bitmap) Or(other *Bitmap) { b.rb.Or(other.rb) }

// Intersects reports whether b and other share at least one slot.
func (b *Bitmap) Intersects(other *Bitmap) bool { return b.rb.Intersects(other.rb) }

// Iterator returns an iterator over the slots in ascending order.
func (b *Bitmap) Iterator() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		it := b.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// GetSizeInBytes returns the serialized size of the bitmap.
func (b *Bitmap) GetSizeInBytes() uint64 { return b.rb.GetSizeInBytes() }

// And returns the intersection of all bitmaps without modifying them.
// Bitmaps are combined smallest first. With no input it returns an empty
// bitmap.
func And(bms ...*Bitmap) *Bitmap {
	if len(bms) == 0 {
		return New()
	}
	rbs := make([]*roaring.Bitmap, len(bms))
	for i, bm := range bms {
		if bm == nil {
			return New()
		}
		rbs[i] = bm.rb
	}
	slices.SortFunc(rbs, func(a, b *roaring.Bitmap) int {
		return cmp.Compare(a.GetCardinality(), b.GetCardinality())
	})
	out := rbs[0].Clone()
	for _, rb := range rbs[1:] {
		if out.IsEmpty() {
			break
		}
		out.And(rb)
	}
	return &Bitmap{rb: out}
}

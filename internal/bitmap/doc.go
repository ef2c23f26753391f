// Package bitmap provides roaring bitmaps over dictionary-encoded vertex IDs.
//
// Vertex IDs are strings; roaring works on uint32. A Dict maps each ID to a
// dense slot, and a Bitmap holds slots. Bitmaps from different dictionaries
// must not be combined.
package bitmap

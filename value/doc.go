// Package value provides the closed scalar type used for vertex attributes
// and tag values: string, int64, float64 or bool.
//
// Values are compared with Equal and indexed by Key; two values that are
// Equal always share a Key, so index lookups and in-memory comparisons
// agree.
package value

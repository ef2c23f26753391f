package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrUnsupportedType is returned when a Go value has no scalar representation.
var ErrUnsupportedType = errors.New("unsupported value type")

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid is the zero Kind. It never matches anything.
	KindInvalid Kind = iota
	// KindString represents a string value.
	KindString
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindBool represents a boolean value.
	KindBool
)

// String returns the lower-case kind name used in tag syntax.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is a closed scalar: string, int64, float64 or bool.
//
// The representation avoids reflection on the hot path. The zero Value is
// KindInvalid and is rejected wherever a predicate is compiled.
type Value struct {
	kind Kind
	i64  int64
	f64  float64
	s    string
	b    bool
}

// String returns a string Value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Int returns an int64 Value.
func Int(v int64) Value { return Value{kind: KindInt, i64: v} }

// Float returns a float64 Value.
func Float(v float64) Value { return Value{kind: KindFloat, f64: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// FromAny converts a Go scalar into a Value.
//
// Only strings, booleans, signed and unsigned integers, and floats are
// accepted. Unsigned values above math.MaxInt64 are rejected.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		if !x.Valid() {
			return Value{}, fmt.Errorf("%w: invalid value", ErrUnsupportedType)
		}
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x)
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case json.Number:
		return fromNumber(string(x))
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedType, u)
	}
	return Int(int64(u)), nil
}

func fromFloat(f float64) (Value, error) {
	if !finite(f) {
		return Value{}, fmt.Errorf("%w: %v", ErrUnsupportedType, f)
	}
	return Float(f), nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func fromNumber(s string) (Value, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q is not a number", ErrUnsupportedType, s)
	}
	return fromFloat(f)
}

// Parse converts the textual form of a value of the given kind.
func Parse(kind Kind, s string) (Value, error) {
	switch kind {
	case KindString:
		return String(s), nil
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse int %q: %w", s, err)
		}
		return Int(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse float %q: %w", s, err)
		}
		return fromFloat(f)
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, fmt.Errorf("parse bool %q: %w", s, err)
		}
		return Bool(b), nil
	default:
		return Value{}, fmt.Errorf("%w: kind %s", ErrUnsupportedType, kind)
	}
}

// ParseKind resolves a kind name ("string", "int", "float", "bool").
func ParseKind(name string) (Kind, error) {
	switch name {
	case "", "string", "str":
		return KindString, nil
	case "int", "integer":
		return KindInt, nil
	case "float", "number":
		return KindFloat, nil
	case "bool", "boolean":
		return KindBool, nil
	default:
		return KindInvalid, fmt.Errorf("%w: kind %q", ErrUnsupportedType, name)
	}
}

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// Valid reports whether v holds one of the scalar kinds.
//
// NaN and infinite floats are not valid: NaN equals nothing, and neither
// has a JSON or DynamoDB number encoding.
func (v Value) Valid() bool {
	if v.kind == KindFloat {
		return finite(v.f64)
	}
	return v.kind != KindInvalid
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsInt64 returns the int64 value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i64, true
}

// AsFloat64 returns the float64 value if Kind is KindFloat.
func (v Value) AsFloat64() (float64, bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f64, true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Interface returns the Go scalar held by v, or nil for an invalid Value.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i64
	case KindFloat:
		return v.f64
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether two values are equal.
//
// Numbers compare by numeric value, so Int(3) equals Float(3). Invalid values
// are never equal to anything.
func (v Value) Equal(o Value) bool {
	if !v.Valid() || !o.Valid() {
		return false
	}
	if v.isNumber() && o.isNumber() {
		switch {
		case v.kind == KindInt && o.kind == KindInt:
			return v.i64 == o.i64
		case v.kind == KindFloat && o.kind == KindFloat:
			return v.f64 == o.f64
		case v.kind == KindInt:
			i, ok := integral(o.f64)
			return ok && i == v.i64
		default:
			i, ok := integral(v.f64)
			return ok && i == o.i64
		}
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	default:
		return false
	}
}

// Key returns a stable string representation for use in indexes.
//
// Values that are Equal have the same Key: integral floats inside the int64
// range share the key of the corresponding int.
//
// NOTE: Keys are persisted by key-value backends; keep them stable.
func (v Value) Key() string {
	switch v.kind {
	case KindString:
		return "s:" + v.s
	case KindInt:
		return "i:" + strconv.FormatInt(v.i64, 10)
	case KindFloat:
		if i, ok := integral(v.f64); ok {
			return "i:" + strconv.FormatInt(i, 10)
		}
		return "f:" + strconv.FormatUint(math.Float64bits(v.f64), 16)
	case KindBool:
		if v.b {
			return "b:1"
		}
		return "b:0"
	default:
		return "invalid"
	}
}

// String renders v for logs and CLI output.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i64, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f64, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes v as a plain JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid() {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a plain JSON scalar. Integral numbers become KindInt.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		*v = Value{}
		return nil
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) isNumber() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Document is the attribute set of one vertex.
type Document map[string]Value

// Clone returns a copy of d. Values are immutable, so a shallow copy suffices.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	clone := make(Document, len(d))
	for k, v := range d {
		clone[k] = v
	}
	return clone
}

// Validate checks that every key is non-empty and every value is valid.
func (d Document) Validate() error {
	for k, v := range d {
		if k == "" {
			return errors.New("empty attribute name")
		}
		if !v.Valid() {
			return fmt.Errorf("attribute %q: %w", k, ErrUnsupportedType)
		}
	}
	return nil
}

package tagfind

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/tagfind/value"
)

// Tag is an equality predicate on one named vertex attribute.
type Tag struct {
	Name  string      `json:"name"`
	Value value.Value `json:"value"`
}

// NewTag builds a tag from a Go scalar. Values outside the closed scalar set
// (string, integers, floats, bool) fail with ErrInvalidPredicate.
func NewTag(name string, v any) (Tag, error) {
	val, err := value.FromAny(v)
	if err != nil {
		return Tag{}, &PredicateError{Name: name, Reason: "unsupported value", cause: err}
	}
	t := Tag{Name: name, Value: val}
	if err := t.Validate(); err != nil {
		return Tag{}, err
	}
	return t, nil
}

// MustTag is like NewTag but panics on error. Intended for literals in tests
// and examples.
func MustTag(name string, v any) Tag {
	t, err := NewTag(name, v)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTag parses the textual form "name[:type]=value", where type is one
// of string (default), int, float or bool.
//
//	color=red
//	size:int=3
//	active:bool=true
func ParseTag(s string) (Tag, error) {
	lhs, raw, ok := strings.Cut(s, "=")
	if !ok {
		return Tag{}, &PredicateError{Name: s, Reason: "expected name=value"}
	}
	name, kindName, _ := strings.Cut(lhs, ":")
	kind, err := value.ParseKind(kindName)
	if err != nil {
		return Tag{}, &PredicateError{Name: name, Reason: "unknown type", cause: err}
	}
	v, err := value.Parse(kind, raw)
	if err != nil {
		return Tag{}, &PredicateError{Name: name, Reason: "malformed value", cause: err}
	}
	t := Tag{Name: name, Value: v}
	if err := t.Validate(); err != nil {
		return Tag{}, err
	}
	return t, nil
}

// ParseTags parses every element with ParseTag.
func ParseTags(ss []string) ([]Tag, error) {
	tags := make([]Tag, 0, len(ss))
	for _, s := range ss {
		t, err := ParseTag(s)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// Validate checks that the tag can be compiled into a predicate.
func (t Tag) Validate() error {
	if t.Name == "" {
		return &PredicateError{Name: t.Name, Reason: "empty name"}
	}
	if !t.Value.Valid() {
		if t.Value.Kind() == value.KindInvalid {
			return &PredicateError{Name: t.Name, Reason: "missing value"}
		}
		return &PredicateError{Name: t.Name, Reason: "invalid value"}
	}
	return nil
}

// String renders the tag in ParseTag syntax.
func (t Tag) String() string {
	if t.Value.Kind() == value.KindString {
		return fmt.Sprintf("%s=%s", t.Name, t.Value)
	}
	return fmt.Sprintf("%s:%s=%s", t.Name, t.Value.Kind(), t.Value)
}

// UnmarshalJSON decodes {"name": ..., "value": <scalar>} and validates the
// result.
func (t *Tag) UnmarshalJSON(data []byte) error {
	type alias Tag
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return &PredicateError{Reason: "malformed tag", cause: err}
	}
	tag := Tag(raw)
	if err := tag.Validate(); err != nil {
		return err
	}
	*t = tag
	return nil
}

// Document converts tags into a vertex attribute set. When a name repeats,
// the last value wins.
func Document(tags []Tag) value.Document {
	doc := make(value.Document, len(tags))
	for _, t := range tags {
		doc[t.Name] = t.Value
	}
	return doc
}

package tagfind

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tagfind/graph"
)

var (
	// ErrInvalidPredicate is returned when a tag cannot be compiled into a
	// backend query. Re-exported from the graph package.
	ErrInvalidPredicate = graph.ErrInvalidPredicate

	// ErrBackendUnavailable indicates a transient backend failure.
	// Re-exported from the graph package.
	ErrBackendUnavailable = graph.ErrBackendUnavailable

	// ErrExecutionTimeout indicates a backend time limit was exceeded.
	// Re-exported from the graph package.
	ErrExecutionTimeout = graph.ErrExecutionTimeout

	// ErrUnsupported is returned when the backend lacks an optional
	// capability. Re-exported from the graph package.
	ErrUnsupported = graph.ErrUnsupported

	// ErrNoTags is returned for an empty tag list unless the engine is
	// configured with WithEmptyTags(MatchAll) and the backend can enumerate
	// every vertex.
	ErrNoTags = errors.New("no tags given")

	// ErrReadOnly is returned by TagStore.Tag when the backend does not
	// accept writes.
	ErrReadOnly = errors.New("backend is read-only")
)

// PredicateError describes a tag that cannot be compiled.
// It matches ErrInvalidPredicate.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type PredicateError struct {
	Name   string
	Reason string
	cause  error
}

func (e *PredicateError) Error() string {
	msg := fmt.Sprintf("invalid predicate %q: %s", e.Name, e.Reason)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *PredicateError) Unwrap() error { return e.cause }

// Is reports whether target is ErrInvalidPredicate.
func (e *PredicateError) Is(target error) bool { return target == ErrInvalidPredicate }

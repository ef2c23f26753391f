package graph

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidPredicate is returned when a tag cannot be compiled into a
	// backend query (empty or unknown attribute name, unsupported value).
	ErrInvalidPredicate = errors.New("invalid predicate")

	// ErrBackendUnavailable indicates a transient infrastructure failure.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrExecutionTimeout indicates that a backend-imposed time limit was
	// exceeded.
	ErrExecutionTimeout = errors.New("execution timeout")

	// ErrUnsupported is returned by wrappers asked for an optional
	// capability the wrapped backend lacks.
	ErrUnsupported = errors.New("operation not supported by backend")
)

// ErrQueryType is returned when a backend receives a Query it did not
// create. It matches ErrInvalidPredicate.
type ErrQueryType struct {
	Backend string
	Query   Query
}

func (e *ErrQueryType) Error() string {
	return fmt.Sprintf("%s: unexpected query type %T", e.Backend, e.Query)
}

// Is reports whether target is ErrInvalidPredicate.
func (e *ErrQueryType) Is(target error) bool { return target == ErrInvalidPredicate }

// InvalidName returns an ErrInvalidPredicate error for an attribute name.
func InvalidName(name, reason string) error {
	return fmt.Errorf("%w: attribute %q: %s", ErrInvalidPredicate, name, reason)
}

// Unavailable wraps err as ErrBackendUnavailable. Nil stays nil.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}

// Timeout wraps err as ErrExecutionTimeout. Nil stays nil.
func Timeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrExecutionTimeout) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrExecutionTimeout, err)
}

// ClassifyContext maps context.DeadlineExceeded to ErrExecutionTimeout and
// returns other errors unchanged.
func ClassifyContext(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err)
	}
	return err
}

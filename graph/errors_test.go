package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrQueryType(t *testing.T) {
	err := &ErrQueryType{Backend: "memory", Query: 42}
	assert.ErrorIs(t, err, ErrInvalidPredicate)
	assert.Contains(t, err.Error(), "int")
}

func TestUnavailable(t *testing.T) {
	assert.NoError(t, Unavailable(nil))

	cause := errors.New("dial tcp: refused")
	err := Unavailable(cause)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, err, cause)

	// Already classified errors are not wrapped twice.
	assert.Same(t, err, Unavailable(err))
}

func TestTimeout(t *testing.T) {
	assert.NoError(t, Timeout(nil))
	err := Timeout(errors.New("slow"))
	assert.ErrorIs(t, err, ErrExecutionTimeout)
	assert.Same(t, err, Timeout(err))
}

func TestClassifyContext(t *testing.T) {
	err := ClassifyContext(fmt.Errorf("scan: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrExecutionTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other := errors.New("boom")
	assert.Equal(t, other, ClassifyContext(other))
	assert.NoError(t, ClassifyContext(nil))
}

func TestInvalidName(t *testing.T) {
	err := InvalidName("", "empty")
	assert.ErrorIs(t, err, ErrInvalidPredicate)
}

func TestSortIDs(t *testing.T) {
	ids := SortIDs([]VertexID{"c", "a", "b", "a", "c"})
	assert.Equal(t, []VertexID{"a", "b", "c"}, ids)
	assert.Empty(t, SortIDs(nil))
}

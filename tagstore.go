package tagfind

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/hupe1980/tagfind/graph"
)

// TagStore attaches tags to vertices and finds vertices by tags.
type TagStore struct {
	*Engine
	writer graph.Writer
	reader graph.Reader
}

// NewTagStore creates a tag store. If backend does not implement
// graph.Writer, Tag fails with ErrReadOnly. If it does not implement
// graph.Reader, Tags fails with ErrUnsupported.
func NewTagStore(backend graph.Backend, optFns ...Option) *TagStore {
	w, _ := backend.(graph.Writer)
	r, _ := backend.(graph.Reader)
	return &TagStore{
		Engine: New(backend, optFns...),
		writer: w,
		reader: r,
	}
}

// Tag attaches tags to vertex id. Existing attributes with the same name are
// replaced; other attributes are kept. Tagging with no tags is a no-op.
func (s *TagStore) Tag(ctx context.Context, id graph.VertexID, tags []Tag) (err error) {
	start := time.Now()
	defer func() {
		s.opts.logger.LogTag(ctx, string(id), len(tags), err)
		s.opts.metricsCollector.RecordTag(time.Since(start), err)
	}()

	if s.writer == nil {
		return ErrReadOnly
	}
	for _, t := range tags {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return s.writer.AddVertex(ctx, id, Document(tags))
}

// Tags returns the tags of vertex id sorted by name. ok is false when the
// vertex does not exist.
func (s *TagStore) Tags(ctx context.Context, id graph.VertexID) ([]Tag, bool, error) {
	if s.reader == nil {
		return nil, false, ErrUnsupported
	}
	attrs, ok, err := s.reader.Attributes(ctx, id)
	if err != nil || !ok {
		return nil, ok, err
	}
	tags := make([]Tag, 0, len(attrs))
	for name, v := range attrs {
		tags = append(tags, Tag{Name: name, Value: v})
	}
	slices.SortFunc(tags, func(a, b Tag) int { return strings.Compare(a.Name, b.Name) })
	return tags, true, nil
}

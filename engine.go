package tagfind

import (
	"context"
	"time"

	"github.com/hupe1980/tagfind/graph"
	"golang.org/x/sync/errgroup"
)

// Engine evaluates conjunctions of tags against a backend by intersecting
// one vertex set per tag.
//
// An Engine holds no state between calls and is safe for concurrent use.
type Engine struct {
	backend graph.Backend
	prober  graph.EmptinessProber // nil if the backend cannot probe
	opts    options
}

// New creates an engine over backend.
func New(backend graph.Backend, optFns ...Option) *Engine {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	prober, _ := backend.(graph.EmptinessProber)
	return &Engine{
		backend: backend,
		prober:  prober,
		opts:    opts,
	}
}

// Backend returns the backend the engine evaluates against.
func (e *Engine) Backend() graph.Backend { return e.backend }

// Find compiles tags and evaluates their intersection.
//
// Every tag is compiled before any backend query runs, so an invalid tag is
// reported even when an earlier predicate would have emptied the result.
func (e *Engine) Find(ctx context.Context, tags []Tag) (Result, error) {
	queries, err := CompileAll(e.backend, tags)
	if err != nil {
		e.opts.logger.WithTags(tags).LogFind(ctx, len(tags), 0, err)
		e.opts.metricsCollector.RecordFind(len(tags), 0, 0, err)
		return Result{}, err
	}
	return e.Evaluate(ctx, queries)
}

// Evaluate intersects the vertex sets of queries with a left fold:
//
//	result := queries[0]
//	for each later q: result = Intersect(result, q)
//
// When the backend implements graph.EmptinessProber the running result is
// probed before the first step and after every step, and the fold stops as
// soon as it is empty; the remaining queries are then never executed. A
// single query is materialized as is.
//
// The first backend error is returned as is. No partial result is ever
// returned.
func (e *Engine) Evaluate(ctx context.Context, queries []graph.Query) (res Result, err error) {
	start := time.Now()
	defer func() {
		e.opts.logger.LogFind(ctx, len(queries), res.Len(), err)
		e.opts.metricsCollector.RecordFind(len(queries), res.Len(), time.Since(start), err)
	}()

	if len(queries) == 0 {
		return e.evaluateEmpty(ctx)
	}

	result := queries[0]
	if len(queries) > 1 {
		empty, perr := e.isEmpty(ctx, result)
		if perr != nil {
			return Result{}, perr
		}
		if empty {
			e.shortCircuit(ctx, 0, len(queries)-1)
			return newResult(nil), nil
		}
	}
	for i := 1; i < len(queries); i++ {
		result, err = e.backend.Intersect(ctx, result, queries[i])
		if err != nil {
			return Result{}, err
		}
		e.opts.metricsCollector.RecordFoldStep()
		e.opts.logger.LogFoldStep(ctx, i, len(queries))

		empty, perr := e.isEmpty(ctx, result)
		if perr != nil {
			return Result{}, perr
		}
		if empty {
			e.shortCircuit(ctx, i, len(queries)-1-i)
			return newResult(nil), nil
		}
	}

	ids, err := e.backend.Materialize(ctx, result)
	if err != nil {
		return Result{}, err
	}
	return newResult(ids), nil
}

// isEmpty reports whether q is known to be empty. Without a prober nothing
// is known.
func (e *Engine) isEmpty(ctx context.Context, q graph.Query) (bool, error) {
	if e.prober == nil {
		return false, nil
	}
	return e.prober.IsEmpty(ctx, q)
}

func (e *Engine) shortCircuit(ctx context.Context, step, skipped int) {
	e.opts.metricsCollector.RecordShortCircuit(skipped)
	e.opts.logger.LogShortCircuit(ctx, step, skipped)
}

func (e *Engine) evaluateEmpty(ctx context.Context) (Result, error) {
	if e.opts.emptyTags != MatchAll {
		return Result{}, ErrNoTags
	}
	u, ok := e.backend.(graph.Universe)
	if !ok {
		return Result{}, ErrNoTags
	}
	all, err := u.AllVertices(ctx)
	if err != nil {
		return Result{}, err
	}
	ids, err := e.backend.Materialize(ctx, all)
	if err != nil {
		return Result{}, err
	}
	return newResult(ids), nil
}

// FindAll evaluates independent tag lists concurrently. Results are returned
// in input order. The first error cancels the remaining evaluations.
func (e *Engine) FindAll(ctx context.Context, tagLists [][]Tag) ([]Result, error) {
	results := make([]Result, len(tagLists))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.concurrency)

	for i, tags := range tagLists {
		g.Go(func() error {
			res, err := e.Find(gctx, tags)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Package resource bounds the load a process puts on a graph backend: how
// many backend calls may be in flight and how many may start per second.
package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/hupe1980/tagfind/graph"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxInFlight is the maximum number of concurrent backend calls.
	// If 0, concurrency is unlimited.
	MaxInFlight int64

	// RequestsPerSecond is the sustained rate of backend calls.
	// If 0, unlimited.
	RequestsPerSecond float64

	// Burst is the number of calls allowed above the sustained rate.
	// If 0, defaults to max(1, RequestsPerSecond).
	Burst int
}

// Controller admits backend calls.
type Controller struct {
	cfg Config

	// Concurrency
	sem      *semaphore.Weighted // nil if unlimited
	inFlight atomic.Int64

	// Rate
	limiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MaxInFlight > 0 {
		c.sem = semaphore.NewWeighted(cfg.MaxInFlight)
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = max(1, int(cfg.RequestsPerSecond))
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return c
}

// Config returns the limits c was created with.
func (c *Controller) Config() Config {
	return c.cfg
}

// Acquire blocks until the rate limit and the concurrency limit admit one
// more call. Running out of time while waiting yields an
// ErrExecutionTimeout error; cancellation is returned as is.
// Every successful Acquire must be paired with Release.
func (c *Controller) Acquire(ctx context.Context) error {
	if c == nil {
		return nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return waitError(ctx, err)
		}
	}

	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return waitError(ctx, err)
		}
	}

	c.inFlight.Add(1)
	return nil
}

// TryAcquire admits one call without blocking.
func (c *Controller) TryAcquire() bool {
	if c == nil {
		return true
	}

	if c.limiter != nil && !c.limiter.Allow() {
		return false
	}

	if c.sem != nil && !c.sem.TryAcquire(1) {
		return false
	}

	c.inFlight.Add(1)
	return true
}

// Release ends a call admitted by Acquire or TryAcquire.
func (c *Controller) Release() {
	if c == nil {
		return
	}

	if c.sem != nil {
		c.sem.Release(1)
	}
	c.inFlight.Add(-1)
}

// InFlight returns the number of admitted calls not yet released.
func (c *Controller) InFlight() int64 {
	return c.inFlight.Load()
}

// waitError classifies a failed wait. The rate limiter reports a deadline
// it cannot meet before the deadline passes, with an error of its own.
func waitError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	if _, ok := ctx.Deadline(); ok {
		return graph.Timeout(err)
	}
	return graph.ClassifyContext(err)
}

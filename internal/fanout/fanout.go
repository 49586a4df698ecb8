// Package fanout provides the concurrency primitives the pipeline is built
// on: an order-preserving bounded map, a settled variant that isolates
// per-item failures, and a deadline envelope for single operations.
package fanout

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Map runs fn over items with at most limit invocations in flight and
// returns results in input order. The first error cancels the remaining
// work and is returned to the caller; callers that want per-item isolation
// use MapSettled instead.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}
	if limit < 1 {
		limit = 1
	}
	if limit > len(items) {
		limit = len(items)
	}

	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Settled holds the outcome of one item from MapSettled.
type Settled[R any] struct {
	Value R
	Err   error
}

// MapSettled runs fn over items with at most limit invocations in flight,
// capturing each item's outcome instead of failing the whole batch. Output
// order matches input order. This is the degrade-to-default path; Map is
// the terminal-failure path.
func MapSettled[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) []Settled[R] {
	if len(items) == 0 {
		return []Settled[R]{}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > len(items) {
		limit = len(items)
	}

	results := make([]Settled[R], len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			r, err := fn(gctx, item)
			results[i] = Settled[R]{Value: r, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// IsDeadline reports whether err is a context deadline expiry.
func IsDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

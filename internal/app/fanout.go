package app

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds per-item I/O when the caller passes a non-positive limit.
const DefaultConcurrency = 8

// forEach runs fn for every item with at most limit calls in flight. fn owns
// its failures: nothing it does can stop the remaining items.
func forEach[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, i int, item T)) {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			fn(ctx, i, item)
			return nil
		})
	}
	_ = g.Wait()
}

package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fanOut calls fn for indexes 0..n-1 with at most limit calls in flight.
// Units record their own failures, so fanOut only stops dispatching once ctx
// is done.
func fanOut(ctx context.Context, n, limit int, fn func(ctx context.Context, i int)) {
	if limit <= 0 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
}

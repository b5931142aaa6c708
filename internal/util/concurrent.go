package util

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DoWorkList runs work for every item concurrently and returns results in
// input order. The first error cancels the context handed to the remaining
// work and is returned.
func DoWorkList[T any, R any](ctx context.Context, list []T, work func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(list))
	g, gctx := errgroup.WithContext(ctx)

	for i, item := range list {
		g.Go(func() error {
			r, err := work(gctx, item)
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

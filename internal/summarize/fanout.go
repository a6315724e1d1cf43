package summarize

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// mapOrdered calls fn for every index in [0, n) and returns the results by
// index. With limit <= 1 the calls run one after another; otherwise up to
// limit run at once and the first error cancels the rest.
func mapOrdered(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (string, error)) ([]string, error) {
	out := make([]string, n)

	if limit <= 1 {
		for i := 0; i < n; i++ {
			s, err := fn(ctx, i)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			s, err := fn(gctx, i)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

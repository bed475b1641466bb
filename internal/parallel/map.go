package parallel

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

var ErrInvalidLimit = errors.New("parallel: limit must be >= 1")

// Map runs mapFunc on every input with at most limit concurrent calls and
// blocks until all of them return. The i-th output belongs to the i-th
// input regardless of completion order.
//
// mapFunc can't fail: it must encode any failure in its result. Map does
// not stop on context cancellation, every input is passed to mapFunc.
//
//	out, err := parallel.Map(ctx, 4, jobs, executor.Execute)
func Map[E, D any](ctx context.Context, limit int, input []E, mapFunc func(context.Context, E) D) ([]D, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	out := make([]D, len(input))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, entry := range input {
		// blocks while limit goroutines are active
		g.Go(func() error {
			out[i] = mapFunc(ctx, entry)
			return nil
		})
	}
	_ = g.Wait() // goroutines do not return an error
	return out, nil
}

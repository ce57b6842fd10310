package wait

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// All runs the given waits concurrently and blocks until every one of them
// has finished. It returns the first error encountered; remaining waits are
// cancelled through the group context. Each wait is typically built with
// Engine.Waiter.
func All(ctx context.Context, waits ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range waits {
		w := w
		g.Go(func() error { return w(ctx) })
	}
	return g.Wait()
}

// Any runs the given waits concurrently and returns nil as soon as one of
// them succeeds, cancelling the rest. If every wait fails, the joined errors
// are returned. Any does not return until all waits have observed the
// cancellation and exited.
func Any(ctx context.Context, waits ...func(context.Context) error) error {
	if len(waits) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, len(waits))
	var wg sync.WaitGroup
	for _, w := range waits {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- w(ctx)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var errs []error
	for err := range results {
		if err == nil {
			cancel()
			// Drain so every goroutine has exited before returning.
			for range results {
			}
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Package parallel runs independent units of work on a bounded number of
// goroutines.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/riskassess/pkg/errors"
)

// Workers resolves an n_jobs style setting: values below 1 mean one worker
// per CPU, 1 means sequential.
func Workers(nJobs int) int {
	if nJobs < 1 {
		return runtime.NumCPU()
	}
	return nJobs
}

// ForEach calls fn(i) for i in [0, n) using at most workers goroutines and
// returns the first error. With workers <= 1 the calls run in order on the
// calling goroutine. A panic inside fn is returned as an error.
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			i := i
			if err := errors.SafeExecute(fmt.Sprintf("task %d", i), func() error { return fn(ctx, i) }); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return errors.SafeExecute(fmt.Sprintf("task %d", i), func() error { return fn(gctx, i) })
		})
	}
	return g.Wait()
}

// Parallelize splits [0, items) into at most workers contiguous ranges and
// calls fn on each range concurrently.
func Parallelize(items, workers int, fn func(start, end int)) {
	if items == 0 {
		return
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}

	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items <= threshold or workers <= 1, and Parallelize otherwise.
func ParallelizeWithThreshold(items, threshold, workers int, fn func(start, end int)) {
	if items <= threshold || workers <= 1 {
		fn(0, items)
		return
	}
	Parallelize(items, workers, fn)
}

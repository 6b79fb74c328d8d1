// Package worker runs independent jobs on a bounded number of goroutines.
//
// The engine uses it to reduce several targets at once. Each job must only
// touch state it owns: targets are not safe for concurrent use, so two jobs
// must never share a target or its spline solver.
package worker

import (
	"context"
	"sync"
)

// Semaphore provides a counting semaphore for controlling concurrency.
type Semaphore struct {
	permits chan struct{}
}

// NewSemaphore creates a new semaphore with the given number of permits.
func NewSemaphore(count int) *Semaphore {
	if count <= 0 {
		count = 1
	}
	s := &Semaphore{
		permits: make(chan struct{}, count),
	}
	for i := 0; i < count; i++ {
		s.permits <- struct{}{}
	}
	return s
}

// Acquire takes a permit, waiting until one is free or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case <-s.permits:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit to the semaphore.
func (s *Semaphore) Release() {
	select {
	case s.permits <- struct{}{}:
	default:
		// Semaphore is full, this shouldn't happen in normal use
	}
}

// Result is the outcome of one job.
type Result[T any] struct {
	Index int
	Value T
	Error error
}

// Progress counts finished jobs.
type Progress struct {
	Complete int
	Failed   int
	Total    int
}

// Percent returns the completion percentage.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Complete+p.Failed) / float64(p.Total) * 100
}

// Run calls fn for every index in [0, n) on at most workers goroutines and
// returns the results in index order. Jobs not yet started when ctx is done
// get ctx.Err() as their error. progress, when set, is called after each job
// from a single goroutine.
func Run[T any](ctx context.Context, n, workers int, fn func(ctx context.Context, i int) (T, error), progress func(Progress)) []Result[T] {
	results := make([]Result[T], n)
	if n == 0 {
		return results
	}
	workers = max(min(workers, n), 1)
	sem := NewSemaphore(workers)

	workChan := make(chan int, workers)
	resultChan := make(chan Result[T], n)

	var workerWg sync.WaitGroup
	for w := 0; w < workers; w++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for i := range workChan {
				if err := ctx.Err(); err != nil {
					sem.Release()
					resultChan <- Result[T]{Index: i, Error: err}
					continue
				}
				v, err := fn(ctx, i)
				sem.Release()
				resultChan <- Result[T]{Index: i, Value: v, Error: err}
			}
		}()
	}

	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		p := Progress{Total: n}
		for r := range resultChan {
			results[r.Index] = r
			if r.Error != nil {
				p.Failed++
			} else {
				p.Complete++
			}
			if progress != nil {
				progress(p)
			}
		}
	}()

	fed := 0
	for ; fed < n; fed++ {
		if err := sem.Acquire(ctx); err != nil {
			break
		}
		workChan <- fed
	}
	close(workChan)

	workerWg.Wait()
	for i := fed; i < n; i++ {
		resultChan <- Result[T]{Index: i, Error: ctx.Err()}
	}
	close(resultChan)
	collectorWg.Wait()

	return results
}

// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"fmt"
	"sync"
)

// A small bounded fan-out executor. Tasks are admitted in input order, at
// most Concurrency at a time, and results land at the task's input index so
// downstream aggregation is deterministic regardless of scheduling.

const DefaultConcurrency = 3

type Task[T any] func(ctx context.Context) T

type Options[T any] struct {
	// Concurrency caps in-flight tasks; <=0 means DefaultConcurrency.
	Concurrency int

	// ShouldStop is polled before admitting each task. Once it returns
	// true no further task starts; in-flight tasks run to completion.
	// Cancellation is cooperative only.
	ShouldStop func() bool

	// OnTaskStarted / OnTaskSettled fire per task, from the task's own
	// goroutine.
	OnTaskStarted func(index int)
	OnTaskSettled func(index int, result T)

	// Recover converts a panic escaping a task into that task's result so
	// one bad task never crashes the batch. Nil leaves the zero value.
	Recover func(index int, v any) T
}

// RunAll executes tasks with bounded concurrency and returns results in
// input order. The returned slice always has len(tasks) entries; tasks
// skipped because ShouldStop tripped keep their zero value.
func RunAll[T any](ctx context.Context, tasks []Task[T], opts Options[T]) []T {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]T, len(tasks))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, task := range tasks {
		// Acquire the slot first, then poll: a stop that trips while every
		// slot is busy must not admit the task waiting on the semaphore.
		sem <- struct{}{}
		if opts.ShouldStop != nil && opts.ShouldStop() {
			<-sem
			break
		}
		wg.Add(1)
		go func(i int, task Task[T]) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if v := recover(); v != nil {
					if opts.Recover != nil {
						results[i] = opts.Recover(i, v)
					}
					if opts.OnTaskSettled != nil {
						opts.OnTaskSettled(i, results[i])
					}
				}
			}()
			if opts.OnTaskStarted != nil {
				opts.OnTaskStarted(i)
			}
			results[i] = task(ctx)
			if opts.OnTaskSettled != nil {
				opts.OnTaskSettled(i, results[i])
			}
		}(i, task)
	}

	wg.Wait()
	return results
}

// PanicMessage renders a recovered value for error reporting.
func PanicMessage(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", v)
}

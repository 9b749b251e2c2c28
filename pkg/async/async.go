package async

import (
	"context"
	"fmt"
	"time"
)

// Future represents the result of an asynchronous computation.
type Future[U any] struct {
	result U
	err    error
	done   chan struct{}
}

// Await blocks until the computation completes.
func (f *Future[U]) Await() (U, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout returns ErrTimeout if the computation has not finished within timeout.
// The computation itself keeps running.
func (f *Future[U]) AwaitWithTimeout(timeout time.Duration) (U, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.result, f.err
	case <-timer.C:
		var zero U
		return zero, ErrTimeout
	}
}

// IsComplete reports whether the computation has finished, without blocking.
func (f *Future[U]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Async runs fn(ctx, param) in its own goroutine. A context that is already
// done short-circuits with ctx.Err(). A panic in fn completes the future with
// an error wrapping ErrPanic.
func Async[T any, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := &Future[U]{done: make(chan struct{})}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero U
				f.result, f.err = zero, fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()

		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}

		f.result, f.err = fn(ctx, param)
	}()

	return f
}

// Result is the settled outcome of one future.
type Result[U any] struct {
	Value U
	Err   error
}

// WaitAll waits for every future and returns the first error encountered, in order.
func WaitAll[U any](futures ...*Future[U]) ([]U, error) {
	results := make([]U, len(futures))

	for i, future := range futures {
		result, err := future.Await()
		results[i] = result
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

// Settle waits for every future and reports each outcome independently.
func Settle[U any](futures ...*Future[U]) []Result[U] {
	results := make([]Result[U], len(futures))
	for i, future := range futures {
		results[i].Value, results[i].Err = future.Await()
	}
	return results
}

// Map applies fn to every item with at most limit calls, and goroutines, in
// flight and settles all of them. Results keep the order of items. A limit
// below 1 means 1. Items still waiting for a slot when ctx is done fail with
// ctx.Err().
func Map[T any, U any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (U, error)) []Result[U] {
	if limit < 1 {
		limit = 1
	}
	sem := make(chan struct{}, limit)

	futures := make([]*Future[U], len(items))
	for i, item := range items {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			futures[i] = failed[U](ctx.Err())
			continue
		}
		futures[i] = Async(ctx, item, func(ctx context.Context, v T) (U, error) {
			defer func() { <-sem }()
			return fn(ctx, v)
		})
	}

	return Settle(futures...)
}

func failed[U any](err error) *Future[U] {
	f := &Future[U]{err: err, done: make(chan struct{})}
	close(f.done)
	return f
}

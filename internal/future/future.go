// Package future provides the deferred-computation primitive the
// orchestrator sequences its phases with: a Future that settles exactly
// once, an AllSettled barrier that never short-circuits, and Spawn for
// detached work nobody joins.
package future

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Result is the settled outcome of a Future.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the computation succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Future is a computation running on its own goroutine.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go starts fn and returns its Future. A panic inside fn settles the
// future with an error instead of crashing the process.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		var catcher panics.Catcher
		catcher.Try(func() {
			f.value, f.err = fn(ctx)
		})
		if recovered := catcher.Recovered(); recovered != nil {
			f.err = recovered.AsError()
		}
	}()

	return f
}

// Done is closed once the future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Settle blocks until the future settles and returns its outcome.
func (f *Future[T]) Settle() Result[T] {
	<-f.done
	return Result[T]{Value: f.value, Err: f.err}
}

// AllSettled waits for every future and returns their outcomes in input
// order. A failed future does not stop the wait for the others. The error
// is non-nil only when ctx ends first.
func AllSettled[T any](ctx context.Context, futures ...*Future[T]) ([]Result[T], error) {
	results := make([]Result[T], len(futures))
	for i, f := range futures {
		select {
		case <-f.done:
			results[i] = Result[T]{Value: f.value, Err: f.err}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return results, nil
}

// Spawn runs fn on a detached goroutine. It cannot be joined and nothing
// observes how it ends; a panic propagates like any goroutine panic.
func Spawn(fn func()) {
	go fn()
}

package executor

import (
	"context"
	"runtime/debug"
)

// Future holds the eventual result of a submitted task.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) complete(val T, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

// Resolved returns a future that already carries the given result.
func Resolved[T any](val T, err error) *Future[T] {
	f := newFuture[T]()
	f.complete(val, err)
	return f
}

// Done reports whether the result is ready, without blocking.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the result is ready or ctx is done. A ctx error does not
// stop the underlying task; it only abandons the wait.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit queues fn on the pool and returns a future for its result. A panic
// inside fn is recovered by the task runner and surfaces as a *PanicError on
// the future; it never takes down the worker. Submitting to a closed pool
// returns a future already resolved with ErrPoolClosed.
func Submit[T any](p *Pool, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()

	task := func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.complete(zero, &PanicError{Value: r, Stack: debug.Stack()})
			}
		}()
		f.complete(fn())
	}

	if err := p.enqueue(task); err != nil {
		var zero T
		f.complete(zero, err)
	}

	return f
}

// Package future provides a result slot that is completed exactly once.
package future

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrPending is returned by Result while the future is not complete.
var ErrPending = errors.New("future is not complete")

// Listener observes the terminal value of a Future.
type Listener[T any] func(value T, err error)

// Future holds a value or an error published by exactly one producer.
type Future[T any] struct {
	claimed atomic.Bool
	done    chan struct{}

	value T
	err   error

	mu        sync.Mutex
	listeners []Listener[T]
}

func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Complete publishes a value. It returns false if the future was already
// completed, in which case v is dropped.
func (f *Future[T]) Complete(v T) bool {
	return f.settle(v, nil)
}

// Fail publishes an error. It returns false if the future was already
// completed.
func (f *Future[T]) Fail(err error) bool {
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(v T, err error) bool {
	if !f.claimed.CompareAndSwap(false, true) {
		return false
	}
	f.value, f.err = v, err
	close(f.done)

	f.mu.Lock()
	listeners := f.listeners
	f.listeners = nil
	f.mu.Unlock()

	for _, l := range listeners {
		l(v, err)
	}
	return true
}

// Done is closed when the future completes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get waits for the result or for ctx to end. A ctx error does not affect the
// future itself.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the terminal value without blocking, or ErrPending.
func (f *Future[T]) Result() (T, error) {
	if !f.IsDone() {
		var zero T
		return zero, ErrPending
	}
	return f.value, f.err
}

// AddListener calls l once with the terminal value. If the future is already
// complete, l runs immediately on the calling goroutine; otherwise it runs on
// the goroutine that completes the future.
func (f *Future[T]) AddListener(l Listener[T]) {
	f.mu.Lock()
	if !f.IsDone() {
		f.listeners = append(f.listeners, l)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	l(f.value, f.err)
}

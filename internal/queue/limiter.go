// Package queue throttles expensive operations: at most N tasks run at
// once, the rest wait in a FIFO backlog, and submissions beyond an optional
// backlog limit are rejected.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrQueueFull is returned by Submit when the backlog is at its limit. The
// rejected task never runs.
var ErrQueueFull = errors.New("queue limit reached")

// Limiter runs submitted tasks with bounded parallelism. Tasks start in the
// order they were submitted; there is no priority.
type Limiter struct {
	maxConcurrent int
	maxQueued     int

	mu      sync.Mutex
	backlog []func()
	running int
}

// NewLimiter creates a Limiter. A maxConcurrent or maxQueued of zero or
// less means unbounded.
func NewLimiter(maxConcurrent, maxQueued int) *Limiter {
	return &Limiter{
		maxConcurrent: maxConcurrent,
		maxQueued:     maxQueued,
	}
}

// Running returns the number of tasks currently executing.
func (l *Limiter) Running() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Queued returns the number of tasks waiting to start.
func (l *Limiter) Queued() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.backlog)
}

func (l *Limiter) enqueue(job func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.maxQueued > 0 && len(l.backlog) >= l.maxQueued {
		return ErrQueueFull
	}
	l.backlog = append(l.backlog, job)
	l.dispatchLocked()
	return nil
}

// dispatchLocked starts backlog entries while there is a free slot. The
// caller must hold l.mu so that no two dispatch decisions race for a slot.
func (l *Limiter) dispatchLocked() {
	for len(l.backlog) > 0 && (l.maxConcurrent <= 0 || l.running < l.maxConcurrent) {
		job := l.backlog[0]
		l.backlog[0] = nil
		l.backlog = l.backlog[1:]
		l.running++
		go l.run(job)
	}
}

func (l *Limiter) run(job func()) {
	defer func() {
		l.mu.Lock()
		l.running--
		l.dispatchLocked()
		l.mu.Unlock()
	}()
	job()
}

// Future is the deferred result of a submitted task.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the task has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes or ctx is done. Giving up on the
// wait does not stop the task.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit schedules task on the limiter. A task that panics resolves its
// future with an error, the same as one that returns an error.
func Submit[T any](l *Limiter, task func() (T, error)) (*Future[T], error) {
	f := newFuture[T]()
	err := l.enqueue(func() {
		value, err := call(task)
		f.resolve(value, err)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func call[T any](task func() (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value = zero
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task()
}

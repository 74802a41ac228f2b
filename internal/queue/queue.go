package queue

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Queue is the caller-facing wrapper around a Limiter. It additionally
// counts submitted tasks that have not finished yet, for diagnostics.
type Queue struct {
	limiter   *Limiter
	remaining atomic.Int64
}

// New creates a Queue running at most concurrency tasks at once with an
// unbounded backlog.
func New(concurrency int) *Queue {
	return NewWithLimit(concurrency, 0)
}

// NewWithLimit creates a Queue whose backlog is capped at maxQueued.
func NewWithLimit(concurrency, maxQueued int) *Queue {
	return &Queue{limiter: NewLimiter(concurrency, maxQueued)}
}

// Add submits task to the queue.
func Add[T any](q *Queue, task func() (T, error)) (*Future[T], error) {
	q.remaining.Add(1)
	f, err := Submit(q.limiter, func() (T, error) {
		defer q.remaining.Add(-1)
		return task()
	})
	if err != nil {
		q.remaining.Add(-1)
		return nil, err
	}
	return f, nil
}

// Remaining returns the number of submitted tasks that are queued or
// running.
func (q *Queue) Remaining() int {
	return int(q.remaining.Load())
}

// Running returns the number of tasks currently executing.
func (q *Queue) Running() int {
	return q.limiter.Running()
}

// Queued returns the number of tasks waiting for a slot.
func (q *Queue) Queued() int {
	return q.limiter.Queued()
}

// Await waits for every future and returns their values in order. If any
// task failed, the first error is returned, but only after all tasks have
// finished; failing tasks do not cancel their siblings.
func Await[T any](ctx context.Context, futures []*Future[T]) ([]T, error) {
	values := make([]T, len(futures))
	var g errgroup.Group
	for i, f := range futures {
		g.Go(func() error {
			v, err := f.Wait(ctx)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

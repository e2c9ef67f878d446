// Package queue provides a channel that never blocks its producers.
package queue

import (
	"context"
	"sync"

	"github.com/xaionaro-go/observability"
)

// Unbounded buffers pushed values in memory and delivers them in order
// on Out. Push never blocks. After Close, pending values are still
// delivered and then Out is closed, unless the queue is discarded.
type Unbounded[T any] struct {
	mu        sync.Mutex
	pending   []T
	closed    bool
	discarded bool
	wake      chan struct{}
	stop      chan struct{}
	out       chan T
}

// NewUnbounded starts the delivery goroutine; it exits once the queue is
// closed and drained, when it is discarded, or when ctx is done.
func NewUnbounded[T any](ctx context.Context) *Unbounded[T] {
	q := &Unbounded[T]{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		out:  make(chan T),
	}
	observability.Go(ctx, func(ctx context.Context) {
		q.pump(ctx)
	})
	return q
}

// Out returns the delivery channel
func (q *Unbounded[T]) Out() <-chan T {
	return q.out
}

// Push enqueues v. It returns false if the queue is already closed.
func (q *Unbounded[T]) Push(v T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, v)
	q.mu.Unlock()
	q.signal()
	return true
}

// Close stops accepting values. Safe to call more than once.
func (q *Unbounded[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Discard closes the queue and drops the values nobody received yet, so
// the delivery goroutine ends even if the consumer went away. Safe to call
// more than once.
func (q *Unbounded[T]) Discard() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.pending = nil
	if !q.discarded {
		q.discarded = true
		close(q.stop)
	}
}

func (q *Unbounded[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Unbounded[T]) pump(ctx context.Context) {
	defer close(q.out)
	for {
		q.mu.Lock()
		batch := q.pending
		q.pending = nil
		closed := q.closed
		q.mu.Unlock()

		for _, v := range batch {
			select {
			case <-q.stop:
				return
			default:
			}
			select {
			case q.out <- v:
			case <-q.stop:
				return
			case <-ctx.Done():
				return
			}
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}

		select {
		case <-q.wake:
		case <-q.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

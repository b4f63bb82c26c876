package mpris

import "sync"

// Queue is a Dispatcher that hands intents to the application's own loop
// instead of running handlers on the caller's goroutine. Dispatch blocks
// while the queue is full.
type Queue struct {
	ch        chan Intent
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue returns a queue buffering up to size intents
func NewQueue(size int) *Queue {
	if size < 0 {
		size = 0
	}
	return &Queue{
		ch:   make(chan Intent, size),
		done: make(chan struct{}),
	}
}

// Dispatch enqueues in. It fails with ErrQueueClosed once Close was called.
func (q *Queue) Dispatch(in Intent) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- in:
		return nil
	case <-q.done:
		return ErrQueueClosed
	}
}

// Intents is the receive side consumed by the application loop.
// The channel is never closed; select on Done to stop.
func (q *Queue) Intents() <-chan Intent {
	return q.ch
}

// Done is closed when the queue is closed
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Close stops the queue. Blocked and later Dispatch calls fail.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

package engine

import (
	"sync"

	"github.com/roach88/threadgate/internal/dag"
)

// intentQueue is a thread-safe FIFO queue of intents for one thread.
//
// The queue is unbounded so that bursts of submissions for one thread
// never block independent callers. Enqueuing is safe from any
// goroutine; a single worker goroutine dequeues, which is what
// serializes event appends per thread.
//
// A buffered signal channel (size 1) coalesces availability signals and
// lets the worker wait without spinning.
type intentQueue struct {
	mu      sync.Mutex
	intents []dag.Intent
	closed  bool
	signal  chan struct{}
}

func newIntentQueue() *intentQueue {
	return &intentQueue{
		intents: make([]dag.Intent, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds an intent to the back of the queue.
// Returns false if the queue is closed.
func (q *intentQueue) Enqueue(in dag.Intent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.intents = append(q.intents, in)

	// Non-blocking: the buffer of 1 coalesces repeated signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (zero, false) if the queue is empty.
func (q *intentQueue) TryDequeue() (dag.Intent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.intents) == 0 {
		return dag.Intent{}, false
	}

	in := q.intents[0]

	// Nil out the slot so the backing array does not retain the
	// intent's payload until reallocation.
	q.intents[0] = dag.Intent{}
	if len(q.intents) == 1 {
		q.intents = q.intents[:0]
	} else {
		q.intents = q.intents[1:]
	}

	return in, true
}

// Wait returns the availability signal channel for select-based waiting.
// The channel is closed when the queue closes.
func (q *intentQueue) Wait() <-chan struct{} {
	return q.signal
}

// Drained reports whether the queue is closed and empty.
func (q *intentQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.intents) == 0
}

// Close marks the queue closed and wakes the worker.
// Already-enqueued intents are still drained.
func (q *intentQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

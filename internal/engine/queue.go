package engine

import (
	"sync"

	"github.com/roach88/unistore/internal/ir"
)

// Event is one action waiting to be processed, tagged with its flow.
type Event struct {
	Flow   string
	Action ir.Action
}

// eventQueue is an unbounded, thread-safe FIFO.
//
// It is unbounded so a subscriber can Follow with any number of actions
// without blocking the Run goroutine that is calling it. The signal
// channel lets Run wait on the queue and a context at the same time.
type eventQueue struct {
	mu      sync.Mutex
	events  []Event
	pending map[string]int // queued events per flow
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events:  make([]Event, 0, 64),
		pending: make(map[string]int),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue appends e. Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)
	q.pending[e.Flow]++

	// Non-blocking; the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Clear the slot so the payload can be collected.
	q.events[0] = Event{}
	if q.pending[e.Flow]--; q.pending[e.Flow] <= 0 {
		delete(q.pending, e.Flow)
	}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that fires when events may be available. It is
// closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Pending returns the number of queued events carrying flow.
func (q *eventQueue) Pending(flow string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending[flow]
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops further enqueues and wakes any waiter. Queued events can
// still be dequeued.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

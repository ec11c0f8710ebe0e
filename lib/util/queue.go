package util

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// node represents a single element in the queue
type node[T any] struct {
	value T
	next  atomic.Pointer[node[T]]
}

// Queue is an unbounded multi-producer single-consumer queue.
// Producers append to a linked list with CAS operations, a single internal
// goroutine moves the values in push order onto the Recv() channel.
type Queue[T any] struct {
	head     atomic.Pointer[node[T]]
	tail     atomic.Pointer[node[T]]
	out      chan T
	consumer sync.WaitGroup
	size     atomic.Int64

	// pushMu orders Push against Close: once Close returned, no Push is in flight
	pushMu sync.RWMutex
	closed atomic.Bool

	// condition variable for the idle consumer
	mu   sync.Mutex
	cond *sync.Cond
}

// NewQueue creates a new queue and starts its consumer goroutine.
func NewQueue[T any]() *Queue[T] {
	// sentinel node (dummy node at the beginning)
	sentinel := &node[T]{}

	q := &Queue[T]{
		out: make(chan T),
	}
	q.cond = sync.NewCond(&q.mu)

	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push appends a value to the queue.
// Returns false if the queue is closed, the value is then not enqueued.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *Queue[T]) Push(value T) bool {
	q.pushMu.RLock()
	defer q.pushMu.RUnlock()

	if q.closed.Load() {
		return false
	}

	newNode := &node[T]{value: value}
	var backoff uint8 = 0

	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()
		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// may fail if another producer already moved the tail, that's fine
				q.tail.CompareAndSwap(tailNode, newNode)
				q.size.Add(1)
				q.wake()
				return true
			}
		} else {
			// help a producer that linked its node but did not move the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// spin at low contention, yield at high contention
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// wake signals the consumer while holding its lock so no wakeup is lost
func (q *Queue[T]) wake() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// consume moves values from the linked list to the output channel
func (q *Queue[T]) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	var zero T
	for {
		head := q.head.Load()
		next := head.next.Load()

		if next != nil {
			value := next.value
			q.head.Store(next)
			q.out <- value
			q.size.Add(-1)
			next.value = zero // help the gc
			continue
		}

		q.mu.Lock()
		// re-check under the lock, Push and Close signal while holding it
		if q.head.Load().next.Load() == nil {
			if q.closed.Load() {
				q.mu.Unlock()
				return
			}
			q.cond.Wait()
		}
		q.mu.Unlock()
	}
}

// Recv returns the receive-only channel of the queue.
// The channel is closed once the queue is closed and all values were delivered.
func (q *Queue[T]) Recv() <-chan T {
	return q.out
}

// Close closes the queue for writes.
// Values already pushed are still delivered through Recv().
func (q *Queue[T]) Close() {
	q.pushMu.Lock()
	q.closed.Store(true)
	q.pushMu.Unlock()
	q.wake()
}

// IsClosed returns true if the queue is closed.
func (q *Queue[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns the number of values that were pushed but not received yet.
func (q *Queue[T]) Len() int {
	return int(q.size.Load())
}

package eventmodels

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// FIFOQueue is a bounded, non-blocking-read queue used to hand work
// between pubsub callbacks and long-running workers.
type FIFOQueue[T any] struct {
	caller  string
	queue   chan T
	mutex   *sync.Mutex
	counter uint
}

func NewFIFOQueue[T any](caller string, size int) *FIFOQueue[T] {
	return &FIFOQueue[T]{
		caller: caller,
		queue:  make(chan T, size),
		mutex:  &sync.Mutex{},
	}
}

func (q *FIFOQueue[T]) Enqueue(item T) {
	q.mutex.Lock()
	q.counter++
	counter := q.counter
	q.mutex.Unlock()

	log.Tracef("%v: enqueueing item: %v, count=%v", q.caller, item, counter)
	q.queue <- item
}

func (q *FIFOQueue[T]) Dequeue() (T, bool) {
	select {
	case item := <-q.queue:
		q.mutex.Lock()
		q.counter--
		q.mutex.Unlock()

		return item, true
	default:
		var zero T
		return zero, false
	}
}

func (q *FIFOQueue[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return int(q.counter)
}

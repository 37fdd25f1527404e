package sched

import "sync"

// PriorityQueue is a set of FIFO queues, one per priority class.
//
// Pop always returns the head of the lowest non-empty class. Within a class
// items come out in push order.
//
// PriorityQueue is safe for concurrent use.
type PriorityQueue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queues [numClasses]fifo[T]
	size   int
	closed bool
}

// NewPriorityQueue creates an empty queue.
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	q := &PriorityQueue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends item to the tail of class and wakes one waiting Pop.
// It returns false if the queue is closed. Unknown classes are treated
// as LeastWanted.
func (q *PriorityQueue[T]) Push(item T, class PriorityClass) bool {
	if !class.Valid() {
		class = LeastWanted
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.queues[class].push(item)
	q.size++
	q.mu.Unlock()

	q.cond.Signal()
	return true
}

// Pop blocks until an item is available or the queue is closed.
// It returns false once the queue is closed, even if items remain.
func (q *PriorityQueue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

// TryPop returns the next item without blocking.
func (q *PriorityQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 || q.closed {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

// Len returns the number of queued items over all classes.
func (q *PriorityQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// LenClass returns the number of queued items in class.
func (q *PriorityQueue[T]) LenClass(class PriorityClass) int {
	if !class.Valid() {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queues[class].len()
}

// Close wakes every waiting Pop and rejects further pushes. Items still
// queued are returned so the caller can account for them.
// Close is safe to call multiple times; later calls return nil.
func (q *PriorityQueue[T]) Close() []T {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	rest := make([]T, 0, q.size)
	for i := range q.queues {
		for q.queues[i].len() > 0 {
			rest = append(rest, q.queues[i].pop())
		}
	}
	q.size = 0
	q.mu.Unlock()

	q.cond.Broadcast()
	return rest
}

// Closed reports whether Close was called.
func (q *PriorityQueue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// popLocked scans classes in priority order. Caller holds q.mu and has
// checked q.size > 0.
func (q *PriorityQueue[T]) popLocked() T {
	for i := range q.queues {
		if q.queues[i].len() > 0 {
			q.size--
			return q.queues[i].pop()
		}
	}
	panic("sched: queue size out of sync")
}

// fifo is a slice-backed queue. The consumed prefix is reclaimed once it
// dominates the backing array.
type fifo[T any] struct {
	items []T
	head  int
}

func (f *fifo[T]) len() int { return len(f.items) - f.head }

func (f *fifo[T]) push(item T) {
	if f.head > 0 && f.head >= len(f.items)/2 {
		n := copy(f.items, f.items[f.head:])
		clear(f.items[n:])
		f.items = f.items[:n]
		f.head = 0
	}
	f.items = append(f.items, item)
}

func (f *fifo[T]) pop() T {
	var zero T
	item := f.items[f.head]
	f.items[f.head] = zero
	f.head++
	if f.head == len(f.items) {
		f.items = f.items[:0]
		f.head = 0
	}
	return item
}

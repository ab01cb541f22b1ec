package engine

import "sync"

// queue is an unbounded FIFO that doubles its ring when it reaches 70% full.
// Send never blocks, so producers holding their own locks can use it; the
// single consumer waits on Ready and drains.
type queue[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool
	ready    chan struct{}

	// Stats
	totalReceived int64
	totalSent     int64
	resizeCount   int
}

// QueueStats describes the engine's event queue.
type QueueStats struct {
	Count         int   `json:"count"`    // Events waiting for the loop
	Capacity      int   `json:"capacity"` // Current ring size
	TotalReceived int64 `json:"total_received"`
	TotalSent     int64 `json:"total_sent"`
	ResizeCount   int   `json:"resize_count"`
}

func newQueue[T any](initialCapacity int) *queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &queue[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
		ready:    make(chan struct{}, 1),
	}
}

// Send appends an item. Returns false if the queue is closed.
func (q *queue[T]) Send(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	threshold := (q.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalReceived++

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready receives a value after one or more Sends.
func (q *queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Drain removes and returns all queued items in order.
func (q *queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	result := make([]T, q.count)
	var zero T
	for i := range result {
		result[i] = q.buf[q.head]
		q.buf[q.head] = zero // Clear reference for GC
		q.head = (q.head + 1) % q.capacity
	}
	q.totalSent += int64(q.count)
	q.count = 0

	return result
}

// Close closes the queue. After closing, Send returns false.
func (q *queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Stats returns queue statistics.
func (q *queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:         q.count,
		Capacity:      q.capacity,
		TotalReceived: q.totalReceived,
		TotalSent:     q.totalSent,
		ResizeCount:   q.resizeCount,
	}
}

// grow doubles the ring capacity. Must be called with lock held.
func (q *queue[T]) grow() {
	newCapacity := q.capacity * 2
	newBuf := make([]T, newCapacity)

	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.capacity = newCapacity
	q.resizeCount++
}

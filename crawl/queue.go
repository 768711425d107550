package crawl

// Queue is a FIFO queue that ignores items it has already seen.
type Queue[T comparable] struct {
	items   []T
	visited map[T]bool
	idx     int // current read position
}

// NewQueue creates an empty Queue.
func NewQueue[T comparable]() *Queue[T] {
	return &Queue[T]{
		visited: make(map[T]bool),
	}
}

// Add enqueues item if it hasn't been seen before and reports whether it
// was added.
func (q *Queue[T]) Add(item T) bool {
	if q.visited[item] {
		return false
	}
	q.visited[item] = true
	q.items = append(q.items, item)
	return true
}

// HasNext returns true if there are unprocessed items.
func (q *Queue[T]) HasNext() bool {
	return q.idx < len(q.items)
}

// Next returns the next unprocessed item and advances the pointer.
func (q *Queue[T]) Next() T {
	item := q.items[q.idx]
	q.idx++
	return item
}

// Len returns the number of unique items seen.
func (q *Queue[T]) Len() int {
	return len(q.visited)
}

// All returns every item in insertion order.
func (q *Queue[T]) All() []T {
	return q.items
}

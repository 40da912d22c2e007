package batch

import "sync"

// Item is one repository waiting to be scanned. Index is its position in the
// input list and orders the final report.
type Item struct {
	Index int
	Path  string
}

// Queue hands out repository paths in input order to any number of workers.
type Queue struct {
	mu     sync.Mutex
	items  []Item
	next   int
	closed bool
}

// NewQueue creates a queue over paths.
func NewQueue(paths []string) *Queue {
	items := make([]Item, len(paths))
	for i, p := range paths {
		items[i] = Item{Index: i, Path: p}
	}
	return &Queue{items: items}
}

// Next pops the next item. It returns false once the queue is drained or
// closed.
func (q *Queue) Next() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.next >= len(q.items) {
		return Item{}, false
	}
	item := q.items[q.next]
	q.next++
	return item, true
}

// Len returns the number of items the queue was created with.
func (q *Queue) Len() int {
	return len(q.items)
}

// Remaining returns how many items have not been handed out yet.
func (q *Queue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.next
}

// Close stops dispatching and returns the items that were never handed out.
// Calling Close again returns the same items.
func (q *Queue) Close() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return append([]Item(nil), q.items[q.next:]...)
}

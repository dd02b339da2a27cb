package plan

// Queue is the FIFO of pending track queries for a batch.
// It is owned by a single worker and is not safe for concurrent use.
type Queue struct {
	items []string
}

// NewQueue creates a queue holding items in order.
func NewQueue(items []string) *Queue {
	return &Queue{items: append([]string(nil), items...)}
}

// Len returns the number of pending queries.
func (q *Queue) Len() int {
	return len(q.items)
}

// Pop removes and returns the head of the queue.
func (q *Queue) Pop() (string, bool) {
	if len(q.items) == 0 {
		return "", false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// PushBack re-enqueues a query at the tail.
func (q *Queue) PushBack(item string) {
	q.items = append(q.items, item)
}

// Snapshot returns a copy of the pending queries in order.
func (q *Queue) Snapshot() []string {
	return append([]string(nil), q.items...)
}

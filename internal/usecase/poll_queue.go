package usecase

import "github.com/user/slot-watcher/internal/entity"

// PollQueue is the round-robin rotation of sources. The scheduler takes the
// head for every poll attempt and puts it back at the tail afterwards.
type PollQueue struct {
	items []entity.Source
}

// NewPollQueue creates a queue holding a copy of sources in order.
func NewPollQueue(sources []entity.Source) *PollQueue {
	items := make([]entity.Source, len(sources))
	copy(items, sources)
	return &PollQueue{items: items}
}

// Dequeue removes and returns the head of the queue.
func (q *PollQueue) Dequeue() (entity.Source, bool) {
	if len(q.items) == 0 {
		return entity.Source{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// Enqueue appends src at the tail.
func (q *PollQueue) Enqueue(src entity.Source) {
	q.items = append(q.items, src)
}

func (q *PollQueue) Len() int {
	return len(q.items)
}

// IDs returns the source ids in queue order.
func (q *PollQueue) IDs() []string {
	ids := make([]string, len(q.items))
	for i, src := range q.items {
		ids[i] = src.ID
	}
	return ids
}

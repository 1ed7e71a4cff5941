package schedule

import (
	"container/heap"
	"time"

	id "vaultkeeper/pkg/domain"
)

// Entry is one queued instruction awaiting its due moment.
type Entry struct {
	InstructionID id.InstructionID
	VaultID       id.VaultID
	DueAt         time.Time
	// seq is the enqueue order; it breaks ties between equal due times so
	// instructions fire in creation order.
	seq uint64
}

// dueQueue is a min-heap ordered by (DueAt, seq).
type dueQueue []*Entry

func (q dueQueue) Len() int { return len(q) }

func (q dueQueue) Less(i, j int) bool {
	if q[i].DueAt.Equal(q[j].DueAt) {
		return q[i].seq < q[j].seq
	}
	return q[i].DueAt.Before(q[j].DueAt)
}

func (q dueQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *dueQueue) Push(x any) { *q = append(*q, x.(*Entry)) }

func (q *dueQueue) Pop() any {
	old := *q
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return entry
}

var _ heap.Interface = (*dueQueue)(nil)

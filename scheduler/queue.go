package scheduler

import (
	"container/heap"

	"github.com/key4hep/avalanche-go/eventslot"
)

// TaskSpec describes one dispatchable unit of work: an algorithm ready to
// run against a specific slot's event. SlotIndex is always the owning
// top-level slot's index, used for occupancy accounting and stall
// detection; Slot is the actual EventSlot the algorithm runs against,
// which for event-view work is a sub-slot rather than s.slots[SlotIndex].
type TaskSpec struct {
	AlgPtr      Algorithm
	AlgIndex    int
	AlgName     string
	Rank        uint32
	Blocking    bool
	Accelerated bool
	SlotIndex   int
	Slot        *eventslot.EventSlot
	Context     eventslot.EventContext
	Handle      AlgorithmHandle

	seq uint64 // insertion order, for FIFO tie-break among equal ranks
}

// priorityQueue orders TaskSpecs by (Rank ascending, seq ascending). It is
// not safe for concurrent use; by design only the scheduler's single
// activation goroutine ever touches it.
type priorityQueue struct {
	items []*TaskSpec
}

func (pq *priorityQueue) Len() int { return len(pq.items) }

func (pq *priorityQueue) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.Rank != b.Rank {
		return a.Rank < b.Rank
	}
	return a.seq < b.seq
}

func (pq *priorityQueue) Swap(i, j int) { pq.items[i], pq.items[j] = pq.items[j], pq.items[i] }

func (pq *priorityQueue) Push(x any) { pq.items = append(pq.items, x.(*TaskSpec)) }

func (pq *priorityQueue) Pop() any {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = nil
	pq.items = pq.items[:n-1]
	return item
}

// push enqueues a TaskSpec in heap order.
func (pq *priorityQueue) push(t *TaskSpec) { heap.Push(pq, t) }

// peek returns, without removing, the highest-priority TaskSpec, or nil.
func (pq *priorityQueue) peek() *TaskSpec {
	if len(pq.items) == 0 {
		return nil
	}
	return pq.items[0]
}

// pop removes and returns the highest-priority TaskSpec, or nil.
func (pq *priorityQueue) pop() *TaskSpec {
	if len(pq.items) == 0 {
		return nil
	}
	return heap.Pop(pq).(*TaskSpec)
}

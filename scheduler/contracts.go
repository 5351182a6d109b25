package scheduler

import (
	"context"

	"github.com/key4hep/avalanche-go/eventslot"
)

// RunResult is the outcome an Algorithm reports from Run.
type RunResult uint8

const (
	Accepted RunResult = iota
	Rejected
	RunError
)

// Algorithm is the external collaborator contract an embedding
// application implements for each node registered with a
// precedence.GraphBuilder. The scheduler never constructs one; it only
// looks one up in the AlgorithmResourcePool by name and calls Run.
type Algorithm interface {
	Name() string
	Cardinality() int
	IsClonable() bool
	IsBlocking() bool
	IsAsynchronous() bool
	InputDataIDs() []string
	OutputDataIDs() []string
	Rank() uint32

	Run(ctx context.Context, event eventslot.EventContext) (RunResult, error)
}

// AlgorithmHandle is an opaque checkout token returned by
// AlgorithmResourcePool.Acquire and later passed back to Release.
type AlgorithmHandle interface{}

// AlgorithmResourcePool manages a (possibly cloned) pool of Algorithm
// instances. Acquire is only ever called from the scheduler's activation
// goroutine under a SCHEDULED transition; Release is only ever called
// from the task's completion closure, which also runs on the activation
// goroutine. The pool itself therefore needs no internal locking against
// the scheduler, though it may still be accessed concurrently by
// unrelated callers.
type AlgorithmResourcePool interface {
	Acquire(name string) (AlgorithmHandle, Algorithm, bool)
	Release(handle AlgorithmHandle)
}

// Whiteboard provides per-slot data store isolation. Algorithm bodies
// read and write through it; the scheduler only manages slot
// allocation and selection around Run calls.
type Whiteboard interface {
	SelectStore(slot int)
	ClearStore(slot int)
	AllocateStore(eventNumber int64) (slot int, ok bool)
	FreeStore(slot int)
}

// ConditionRange is a half-open validity interval for a condition data
// item, as returned by ConditionsService.ValidRanges.
type ConditionRange struct {
	Begin, End int64
}

// ConditionsService answers per-event validity queries for condition data
// nodes. It is a superset of precedence.ConditionsService (any
// implementation of this interface also satisfies that one).
type ConditionsService interface {
	IsValidID(eventID, dataID string) bool
	ValidRanges(dataID string) []ConditionRange
}

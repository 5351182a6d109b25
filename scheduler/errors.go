package scheduler

import (
	"errors"
	"fmt"

	"github.com/key4hep/avalanche-go/algstate"
	"github.com/key4hep/avalanche-go/precedence"
)

var (
	// ErrIllegalTransition mirrors algstate.ErrIllegalTransition at the
	// scheduler boundary; wrapped by *algstate.TransitionError.
	ErrIllegalTransition = algstate.ErrIllegalTransition
	// ErrGraphTopology marks a graph-construction failure adapted by
	// wrapGraphTopology, which keeps the *precedence.TopologyError
	// reachable through Unwrap. New does not validate the graph and
	// never returns it.
	ErrGraphTopology = errors.New("scheduler: graph topology error")
	// ErrStall marks a detected stall: some slot has an algorithm that can
	// never reach DATAREADY and no in-flight work remains to change that.
	// *StallError wraps ErrStall only; ErrMissingDependency is not
	// returned by this package.
	ErrMissingDependency = errors.New("scheduler: missing dependency")
	ErrStall             = errors.New("scheduler: stalled")
	// ErrResourceExhausted is never returned to a caller; it only
	// documents the RESOURCELESS transition's cause.
	ErrResourceExhausted = errors.New("scheduler: no algorithm instance available")
	// ErrSlotUnavailable is returned by PushNewEvent/PushNewEvents when
	// there are not enough free slots.
	ErrSlotUnavailable = errors.New("scheduler: no free slot")
	// ErrAlgorithmError marks an algorithm body reporting RunError.
	ErrAlgorithmError = errors.New("scheduler: algorithm reported an error")
	// ErrSchedulerShutdown is returned by the calls that post work to the
	// activation goroutine once Shutdown has been called, and by
	// PushNewEvent/PushNewEvents in the Failure state. PopFinishedEvent,
	// TryPopFinishedEvent and FreeSlots do not return it.
	ErrSchedulerShutdown = errors.New("scheduler: shutdown")
)

// StallError reports a detected stall in a specific slot.
type StallError struct {
	SlotIndex int
	Stuck     []string // algorithm names stuck short of DATAREADY
}

func (e *StallError) Error() string {
	return fmt.Sprintf("scheduler: slot %d stalled, stuck algorithms: %v", e.SlotIndex, e.Stuck)
}

func (e *StallError) Unwrap() error { return ErrStall }

// wrapGraphTopology adapts a precedence build error to ErrGraphTopology
// while preserving the original *precedence.TopologyError via Unwrap.
type graphTopologyError struct{ err error }

func (e *graphTopologyError) Error() string {
	return fmt.Sprintf("%v: %v", ErrGraphTopology, e.err)
}

func (e *graphTopologyError) Unwrap() []error { return []error{ErrGraphTopology, e.err} }

func wrapGraphTopology(err error) error {
	if err == nil {
		return nil
	}
	var topo *precedence.TopologyError
	if errors.As(err, &topo) {
		return &graphTopologyError{err: topo}
	}
	return &graphTopologyError{err: err}
}

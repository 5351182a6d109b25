package precedence

import (
	"github.com/key4hep/avalanche-go/algstate"
	"github.com/key4hep/avalanche-go/eventslot"
)

// RunSimulator answers "what would it take to finish this event" without
// running any real algorithm: it clones the slot, then repeatedly
// optimistically accepts every algorithm that becomes DATAREADY or
// RESOURCELESS until the head decision resolves. It never mutates the
// slot handed to it.
//
// It backs Service.Simulate, which the scheduler calls only as an
// optional pre-execution check (SimulateExecution), not as part of its
// real execution loop.
type RunSimulator struct{}

// Simulate returns the algorithms that would execute, in the order they
// became ready, to drive slot's event to a resolved head decision. It
// returns ErrNonTerminating if no further algorithm could be promoted in
// a full pass over the graph but the head is still unresolved, which
// indicates a malformed topology rather than a slow one.
func (RunSimulator) Simulate(g *Graph, slot *eventslot.EventSlot) ([]NodeIndex, error) {
	clone := slot.Clone()

	var sup Supervisor
	var du DecisionUpdater
	var executed []NodeIndex

	maxPasses := g.NumNodes() + 1
	for pass := 0; pass < maxPasses; pass++ {
		if _, err := sup.Resolve(g, clone, g.Head()); err != nil {
			return nil, err
		}
		if clone.HeadResolved(g.Head()) {
			return executed, nil
		}

		progressed := false
		for algIdx := 0; algIdx < g.NumAlgorithms(); algIdx++ {
			node := g.AlgorithmNode(algIdx)
			state, err := clone.AlgStates.Get(algIdx)
			if err != nil {
				return nil, err
			}
			if state != algstate.DATAREADY && state != algstate.RESOURCELESS {
				continue
			}
			if err := clone.AlgStates.Set(algIdx, algstate.SCHEDULED); err != nil {
				return nil, err
			}
			if err := clone.AlgStates.Set(algIdx, algstate.EVTACCEPTED); err != nil {
				return nil, err
			}
			if err := du.Apply(g, clone, node.Index, algstate.EVTACCEPTED); err != nil {
				return nil, err
			}
			executed = append(executed, node.Index)
			progressed = true
		}

		if clone.HeadResolved(g.Head()) {
			return executed, nil
		}
		if !progressed {
			return nil, ErrNonTerminating
		}
	}
	return nil, ErrNonTerminating
}

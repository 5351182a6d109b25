package precedence

import (
	"github.com/key4hep/avalanche-go/algstate"
	"github.com/key4hep/avalanche-go/eventslot"
)

// DataReadyPromoter is a stateless operator that advances an algorithm
// from algstate.CONTROLREADY to algstate.DATAREADY once every declared
// input is satisfied: plain data items must have been produced in the
// slot, condition items must validate against their ConditionsService
// handle for the slot's event.
type DataReadyPromoter struct{}

// PromoteAlgorithm attempts the CONTROLREADY -> DATAREADY transition for
// the algorithm at algIdx, returning true if it promoted.
func (DataReadyPromoter) PromoteAlgorithm(g *Graph, slot *eventslot.EventSlot, algIdx NodeIndex) (bool, error) {
	n := g.Node(algIdx)
	alg := n.Algorithm()

	state, err := slot.AlgStates.Get(alg.AlgIndex)
	if err != nil {
		return false, err
	}
	if state != algstate.CONTROLREADY {
		return false, nil
	}

	for _, inIdx := range alg.Inputs {
		in := g.Node(inIdx)
		if in.IsCondition() {
			d := in.Data()
			if d.Handle == nil || !d.Handle.IsValidID(slot.Context.ID.String(), d.ID) {
				return false, nil
			}
			continue
		}
		if !slot.Produced(inIdx) {
			return false, nil
		}
	}

	if err := slot.AlgStates.Set(alg.AlgIndex, algstate.DATAREADY); err != nil {
		return false, err
	}
	return true, nil
}

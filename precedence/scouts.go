package precedence

import "github.com/key4hep/avalanche-go/eventslot"

// ActiveLineageScout walks a node's decision-node ancestry, closest parent
// first. It is used by validateProducers to find the nearest common
// decision ancestor of a data item's producers.
type ActiveLineageScout struct{}

// Lineage returns the chain of ancestor decision nodes above idx, not
// including idx itself, ordered from nearest to furthest (the graph head
// is last).
func (ActiveLineageScout) Lineage(g *Graph, idx NodeIndex) []NodeIndex {
	var lineage []NodeIndex
	cur := idx
	for {
		n := g.Node(cur)
		var parents []NodeIndex
		switch n.Kind {
		case KindDecision:
			parents = n.Decision().Parents
		case KindAlgorithm:
			parents = n.Algorithm().Parents
		}
		if len(parents) == 0 {
			return lineage
		}
		cur = parents[0]
		lineage = append(lineage, cur)
	}
}

// SubSlotScout distinguishes two notions of "done" for an event-view
// sub-slot's entry point: HeadResolved (the entry decision itself has a
// True/False value) versus CFRulesResolved (every algorithm governed by
// that decision has additionally reached a terminal execution state, so
// no further activation within the sub-slot is possible). A sub-slot can
// be HeadResolved well before it is CFRulesResolved when PromptDecision
// short-circuited the aggregation while siblings are still executing.
type SubSlotScout struct{}

// CFRulesResolved reports whether every algorithm directly governed by the
// decision node at entryIdx has reached a terminal execution state.
func (s SubSlotScout) CFRulesResolved(g *Graph, slot *eventslot.EventSlot, entryIdx NodeIndex) bool {
	d := g.Node(entryIdx).Decision()
	for _, child := range d.Children {
		n := g.Node(child)
		switch n.Kind {
		case KindAlgorithm:
			alg := n.Algorithm()
			state, err := slot.AlgStates.Get(alg.AlgIndex)
			if err != nil || !isTerminal(state) {
				return false
			}
		case KindDecision:
			if !s.CFRulesResolved(g, slot, child) {
				return false
			}
		}
	}
	return true
}

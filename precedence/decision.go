package precedence

import (
	"github.com/key4hep/avalanche-go/algstate"
	"github.com/key4hep/avalanche-go/eventslot"
)

func boolToDecision(v bool) int8 {
	if v {
		return eventslot.True
	}
	return eventslot.False
}

func isTerminal(s algstate.State) bool {
	return s == algstate.EVTACCEPTED || s == algstate.EVTREJECTED || s == algstate.ERROR
}

// DecisionUpdater is the stateless operator invoked when an algorithm
// reaches a terminal execution state. It records the algorithm's own
// control-flow decision bit, marks its outputs produced, wakes any
// consumer whose inputs are now satisfied, and asks the Supervisor to
// re-aggregate every ancestor decision node.
type DecisionUpdater struct{}

// Apply records the outcome of algIdx reaching finalState and propagates
// its consequences through the graph.
func (DecisionUpdater) Apply(g *Graph, slot *eventslot.EventSlot, algIdx NodeIndex, finalState algstate.State) error {
	n := g.Node(algIdx)
	alg := n.Algorithm()

	passed := finalState == algstate.EVTACCEPTED
	if alg.Spec.Flags.Inverted {
		passed = !passed
	}
	if alg.Spec.Flags.AllPass {
		passed = true
	}
	slot.SetDecision(algIdx, boolToDecision(passed))

	if finalState != algstate.ERROR {
		for _, outIdx := range alg.Outputs {
			slot.MarkProduced(outIdx)
		}
		var promoter DataReadyPromoter
		for _, outIdx := range alg.Outputs {
			out := g.Node(outIdx)
			for _, consumer := range out.Data().Consumers {
				if _, err := promoter.PromoteAlgorithm(g, slot, consumer); err != nil {
					return err
				}
			}
		}
	}

	var sup Supervisor
	for _, parent := range alg.Parents {
		if _, err := sup.Resolve(g, slot, parent); err != nil {
			return err
		}
	}
	return nil
}

// Supervisor is the stateless operator that aggregates a DecisionNode's
// value from its children and activates newly-reachable branches. It is
// run once per slot (CauseRoot, starting at the graph head, or at a
// sub-slot's EntryPoint) to perform
// the initial INITIAL -> CONTROLREADY activation, and again from
// DecisionUpdater each time an algorithm completes, to re-aggregate
// ancestor decisions.
type Supervisor struct{}

// Resolve attempts to settle the decision at decisionIdx from its
// children, recursing into unresolved decision children to activate them
// and propagating upward through resolved parents. It returns true once
// decisionIdx itself has a value in slot.ControlFlowState.
func (s Supervisor) Resolve(g *Graph, slot *eventslot.EventSlot, decisionIdx NodeIndex) (bool, error) {
	if slot.HeadResolved(decisionIdx) {
		return true, nil
	}

	n := g.Node(decisionIdx)
	d := n.Decision()

	// When this slot has registered event-view sub-slots rooted at this
	// node, the node's "children" for aggregation purposes become the
	// per-sub-slot resolutions of the same node, rather than its graph
	// children: each sub-slot runs its own copy of the subtree under
	// decisionIdx independently (see eventslot.EventSlot.MakeSubSlot),
	// and only once every registered sub-slot has itself resolved
	// decisionIdx does the aggregate decision become visible here.
	if subs := slot.SubSlotsFor(n.Name); len(subs) > 0 {
		return s.resolveFromSubSlots(g, slot, decisionIdx, d, subs)
	}

	allResolved := true
	aggregate := !d.Flags.ModeOR // AND identity true, OR identity false

	for _, child := range d.Children {
		val, resolved, err := s.resolveChild(g, slot, child)
		if err != nil {
			return false, err
		}
		if !resolved {
			allResolved = false
			if !d.Flags.Concurrent {
				break
			}
			continue
		}

		if d.Flags.ModeOR {
			if val {
				aggregate = true
				if d.Flags.PromptDecision {
					allResolved = true
					break
				}
			}
		} else {
			if !val {
				aggregate = false
				if d.Flags.PromptDecision {
					allResolved = true
					break
				}
			}
		}
	}

	if !allResolved {
		return false, nil
	}

	return s.finalizeDecision(g, slot, decisionIdx, d, aggregate)
}

// resolveFromSubSlots aggregates decisionIdx's value across every sub-slot
// registered under its name in slot, with the active slot pointer
// conceptually swapped to each sub-slot in turn (spec.md §4.C). The
// aggregation rules (AND/OR, prompt short-circuit) are identical to the
// graph-children case in Resolve.
func (s Supervisor) resolveFromSubSlots(g *Graph, slot *eventslot.EventSlot, decisionIdx NodeIndex, d *DecisionNode, subs []*eventslot.EventSlot) (bool, error) {
	allResolved := true
	aggregate := !d.Flags.ModeOR

	for _, sub := range subs {
		resolved, err := s.Resolve(g, sub, decisionIdx)
		if err != nil {
			return false, err
		}
		if !resolved {
			allResolved = false
			continue
		}
		val := sub.Decision(decisionIdx) == eventslot.True

		if d.Flags.ModeOR {
			if val {
				aggregate = true
				if d.Flags.PromptDecision {
					allResolved = true
					break
				}
			}
		} else {
			if !val {
				aggregate = false
				if d.Flags.PromptDecision {
					allResolved = true
					break
				}
			}
		}
	}

	if !allResolved {
		return false, nil
	}
	return s.finalizeDecision(g, slot, decisionIdx, d, aggregate)
}

// finalizeDecision applies AllPass/Inverted, records the decision, and
// propagates upward to decisionIdx's parents, stopping at slot's own
// EntryPoint boundary (a sub-slot never writes decisions above the node it
// was rooted at; that is the enclosing slot's responsibility, driven by
// Service.BubbleSubSlot).
func (s Supervisor) finalizeDecision(g *Graph, slot *eventslot.EventSlot, decisionIdx NodeIndex, d *DecisionNode, aggregate bool) (bool, error) {
	if d.Flags.AllPass {
		aggregate = true
	}
	if d.Flags.Inverted {
		aggregate = !aggregate
	}

	slot.SetDecision(decisionIdx, boolToDecision(aggregate))

	if slot.EntryPoint != "" && g.Node(decisionIdx).Name == slot.EntryPoint {
		return true, nil
	}

	for _, parent := range d.Parents {
		if _, err := s.Resolve(g, slot, parent); err != nil {
			return false, err
		}
	}
	return true, nil
}

// resolveChild reports the resolved value of child and whether it has
// settled. For an unresolved decision child it recurses (which also
// activates that branch's algorithms); for an algorithm child still in
// algstate.INITIAL it performs the control-ready activation before
// reporting unresolved.
func (s Supervisor) resolveChild(g *Graph, slot *eventslot.EventSlot, child NodeIndex) (val bool, resolved bool, err error) {
	n := g.Node(child)
	switch n.Kind {
	case KindDecision:
		if slot.HeadResolved(child) {
			return slot.Decision(child) == eventslot.True, true, nil
		}
		if _, err := s.Resolve(g, slot, child); err != nil {
			return false, false, err
		}
		if !slot.HeadResolved(child) {
			s.activateBranch(g, slot, child)
			return false, false, nil
		}
		return slot.Decision(child) == eventslot.True, true, nil

	case KindAlgorithm:
		alg := n.Algorithm()
		state, err := slot.AlgStates.Get(alg.AlgIndex)
		if err != nil {
			return false, false, err
		}
		if state == algstate.INITIAL {
			if err := slot.AlgStates.Set(alg.AlgIndex, algstate.CONTROLREADY); err != nil {
				return false, false, err
			}
			var promoter DataReadyPromoter
			if _, err := promoter.PromoteAlgorithm(g, slot, child); err != nil {
				return false, false, err
			}
			state, err = slot.AlgStates.Get(alg.AlgIndex)
			if err != nil {
				return false, false, err
			}
		}
		if !isTerminal(state) {
			return false, false, nil
		}
		decided := slot.Decision(child)
		if decided == eventslot.Undecided {
			return false, false, nil
		}
		return decided == eventslot.True, true, nil
	}
	return false, false, nil
}

// activateBranch promotes every still-INITIAL algorithm reachable under
// decisionIdx to CONTROLREADY (and onward to DATAREADY where inputs are
// already satisfied), without requiring decisionIdx itself to resolve.
// This is what lets algorithms nested several decision hubs deep start
// executing as soon as their branch becomes reachable, rather than only
// once every ancestor decision has a final value.
func (s Supervisor) activateBranch(g *Graph, slot *eventslot.EventSlot, decisionIdx NodeIndex) {
	d := g.Node(decisionIdx).Decision()
	var promoter DataReadyPromoter
	for _, child := range d.Children {
		n := g.Node(child)
		switch n.Kind {
		case KindAlgorithm:
			alg := n.Algorithm()
			state, err := slot.AlgStates.Get(alg.AlgIndex)
			if err != nil {
				continue
			}
			if state == algstate.INITIAL {
				if err := slot.AlgStates.Set(alg.AlgIndex, algstate.CONTROLREADY); err == nil {
					_, _ = promoter.PromoteAlgorithm(g, slot, child)
				}
			}
		case KindDecision:
			if !slot.HeadResolved(child) {
				s.activateBranch(g, slot, child)
			}
		}
	}
}

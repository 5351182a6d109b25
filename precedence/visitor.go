package precedence

import "github.com/key4hep/avalanche-go/algstate"

// CauseKind distinguishes the two triggers for a precedence pass: the
// initial activation of an event (CauseRoot) and the completion of a
// single algorithm (CauseTask), which only needs to re-evaluate the nodes
// downstream of it.
type CauseKind uint8

const (
	CauseRoot CauseKind = iota
	CauseTask
)

// Cause identifies why Service.Iterate is being asked to make another
// pass over an EventSlot.
type Cause struct {
	Kind       CauseKind
	AlgIndex   int           // meaningful only when Kind == CauseTask
	FinalState algstate.State // meaningful only when Kind == CauseTask
}

// Visitor is implemented by stateless operators that walk the graph via
// Graph.Accept: one Enter/Visit pair per node kind, following the
// double-dispatch shape of the original design (spec.md §4). Enter
// decides whether to descend into a node at all; Visit performs the
// operator's work and reports whether traversal should continue into the
// node's children.
//
// Graph.Accept is a generic whole-graph pass for callers that supply
// their own Visitor; nothing in this package calls it, and WriteGraphML,
// DumpState and the rankers walk the graph directly. The runtime
// precedence operators — DataReadyPromoter, DecisionUpdater, Supervisor,
// RunSimulator — are invoked directly against the specific node(s) a state
// change concerns, rather than via a head-down Accept pass; a full
// traversal on every algorithm completion would revisit far more of the
// graph than the change touches. They do not implement Visitor.
type Visitor interface {
	EnterDecision(g *Graph, n *Node) bool
	VisitDecision(g *Graph, n *Node) (descend bool, err error)

	EnterAlgorithm(g *Graph, n *Node) bool
	VisitAlgorithm(g *Graph, n *Node) (descend bool, err error)

	EnterData(g *Graph, n *Node) bool
	VisitData(g *Graph, n *Node) (descend bool, err error)

	EnterCondition(g *Graph, n *Node) bool
	VisitCondition(g *Graph, n *Node) (descend bool, err error)
}

// Accept performs a depth-first traversal starting at root, dispatching to
// v's Enter/Visit methods by node kind. Decision node children are visited
// in declaration order regardless of DecisionFlags.Concurrent: Accept is
// a static walk with no notion of runtime concurrency.
func (g *Graph) Accept(root NodeIndex, v Visitor) error {
	return g.accept(root, v, make(map[NodeIndex]bool))
}

func (g *Graph) accept(idx NodeIndex, v Visitor, visited map[NodeIndex]bool) error {
	if visited[idx] {
		return nil
	}
	visited[idx] = true

	n := &g.nodes[idx]
	switch n.Kind {
	case KindDecision:
		if !v.EnterDecision(g, n) {
			return nil
		}
		descend, err := v.VisitDecision(g, n)
		if err != nil || !descend {
			return err
		}
		for _, c := range n.decision.Children {
			if err := g.accept(c, v, visited); err != nil {
				return err
			}
		}
	case KindAlgorithm:
		if !v.EnterAlgorithm(g, n) {
			return nil
		}
		_, err := v.VisitAlgorithm(g, n)
		return err
	case KindCondition:
		if !v.EnterCondition(g, n) {
			return nil
		}
		_, err := v.VisitCondition(g, n)
		return err
	default: // KindData
		if !v.EnterData(g, n) {
			return nil
		}
		_, err := v.VisitData(g, n)
		return err
	}
	return nil
}

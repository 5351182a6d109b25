package precedence

import "github.com/joeycumines/logiface"

// Graph is the frozen, arena-stored precedence rules graph produced by
// GraphBuilder.Build. It is immutable and safe for concurrent read-only
// use by any number of goroutines iterating distinct EventSlots.
type Graph struct {
	nodes    []Node
	byName   map[string]NodeIndex
	dataByID map[string]NodeIndex

	head     NodeIndex
	algOrder []NodeIndex // AlgIndex -> graph NodeIndex

	sink *logiface.Logger[logiface.Event]
}

// Head returns the NodeIndex of the root decision node.
func (g *Graph) Head() NodeIndex { return g.head }

// NumNodes returns the total arena size.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumAlgorithms returns the number of registered algorithms.
func (g *Graph) NumAlgorithms() int { return len(g.algOrder) }

// Node returns a pointer to the node at idx. Panics if idx is out of
// range; callers within this package only ever pass indices sourced from
// the graph itself.
func (g *Graph) Node(idx NodeIndex) *Node {
	return &g.nodes[idx]
}

// NodeByName looks up a node by its declared name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	idx, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return &g.nodes[idx], true
}

// DataByID looks up a data or condition node by its identifier.
func (g *Graph) DataByID(id string) (*Node, bool) {
	idx, ok := g.dataByID[id]
	if !ok {
		return nil, false
	}
	return &g.nodes[idx], true
}

// AlgorithmNode returns the graph node for the algorithm registered at
// algIndex.
func (g *Graph) AlgorithmNode(algIndex int) *Node {
	return &g.nodes[g.algOrder[algIndex]]
}

// Algorithms returns the algorithm nodes in AlgIndex order.
func (g *Graph) Algorithms() []NodeIndex {
	return g.algOrder
}

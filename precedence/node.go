package precedence

import "github.com/key4hep/avalanche-go/eventslot"

// NodeIndex aliases eventslot.NodeIndex, the stable integer identifier
// shared between the graph and the event slots it is iterated against.
type NodeIndex = eventslot.NodeIndex

// NodeKind tags which payload a Node carries. Go has no sum types, so the
// original's virtually-dispatched node hierarchy is replaced with one
// arena-stored struct per spec.md's re-architecture note (§9): parent and
// child links are NodeIndex values, never pointers, so the graph is
// trivially shareable by reference across event slots.
type NodeKind uint8

const (
	KindDecision NodeKind = iota
	KindAlgorithm
	KindData
	KindCondition
)

func (k NodeKind) String() string {
	switch k {
	case KindDecision:
		return "Decision"
	case KindAlgorithm:
		return "Algorithm"
	case KindData:
		return "Data"
	case KindCondition:
		return "Condition"
	default:
		return "Unknown"
	}
}

// DecisionFlags configures a control-flow decision hub.
type DecisionFlags struct {
	// Concurrent governs sibling traversal order: true allows children to
	// be considered in any order, false forces sequential evaluation,
	// breaking on the first unresolved child.
	Concurrent bool
	// PromptDecision allows short-circuiting before every child resolves.
	PromptDecision bool
	// ModeOR selects OR aggregation; false selects AND.
	ModeOR bool
	// AllPass forces a positive decision once every child has resolved,
	// regardless of their individual values.
	AllPass bool
	// Inverted flips the aggregated decision bit.
	Inverted bool
}

// DecisionNode is the payload for a KindDecision node.
type DecisionNode struct {
	Flags    DecisionFlags
	Children []NodeIndex
	Parents  []NodeIndex
}

// AlgorithmFlags configures an algorithm's role in control-flow decisions
// and scheduling.
type AlgorithmFlags struct {
	AllPass     bool
	Inverted    bool
	Blocking    bool
	Accelerated bool
}

// AlgorithmSpec is the caller-supplied description of an algorithm, passed
// to GraphBuilder.AddAlgorithm.
type AlgorithmSpec struct {
	Name    string
	Inputs  []string
	Outputs []string
	Flags   AlgorithmFlags

	// Cardinality, IsClonable, and IsAsynchronous mirror the Algorithm
	// collaborator contract (spec.md §6); they are stored on the graph so
	// Service.IsAsynchronous/IsBlocking can answer without a round trip to
	// the resource pool.
	Cardinality    int
	IsClonable     bool
	IsAsynchronous bool
}

// AlgorithmNode is the payload for a KindAlgorithm node.
type AlgorithmNode struct {
	Spec     AlgorithmSpec
	AlgIndex int // index into the AlgStateSet / algorithm index space
	Inputs   []NodeIndex
	Outputs  []NodeIndex
	Parents  []NodeIndex // control-flow parents; Build keeps them for every algorithm, including those that consume conditions
	Rank     uint32
}

// ConditionsService answers per-event validity queries for a condition
// data node. It is an external collaborator contract (spec.md §6); no
// implementation is provided by this package.
type ConditionsService interface {
	IsValidID(eventID string, dataID string) bool
}

// DataNode is the payload for both KindData and KindCondition nodes. For
// KindCondition, Handle is non-nil and is consulted instead of waiting on
// a producer algorithm.
type DataNode struct {
	ID        string
	Producers []NodeIndex
	Consumers []NodeIndex
	Handle    ConditionsService
}

// Node is a single arena-stored entity in the precedence graph. Accessor
// methods panic if called against the wrong Kind, per spec.md §9's
// direction to replace virtual dispatch with a tagged variant matched by
// visitors.
type Node struct {
	Kind  NodeKind
	Index NodeIndex
	Name  string

	decision  *DecisionNode
	algorithm *AlgorithmNode
	data      *DataNode
}

// Decision returns the DecisionNode payload. Panics if Kind != KindDecision.
func (n *Node) Decision() *DecisionNode {
	if n.Kind != KindDecision {
		panic("precedence: Decision() called on non-decision node " + n.Name)
	}
	return n.decision
}

// Algorithm returns the AlgorithmNode payload. Panics if Kind != KindAlgorithm.
func (n *Node) Algorithm() *AlgorithmNode {
	if n.Kind != KindAlgorithm {
		panic("precedence: Algorithm() called on non-algorithm node " + n.Name)
	}
	return n.algorithm
}

// Data returns the DataNode payload. Valid for both KindData and
// KindCondition; panics otherwise.
func (n *Node) Data() *DataNode {
	if n.Kind != KindData && n.Kind != KindCondition {
		panic("precedence: Data() called on non-data node " + n.Name)
	}
	return n.data
}

// IsCondition reports whether this is a KindCondition data node.
func (n *Node) IsCondition() bool {
	return n.Kind == KindCondition
}

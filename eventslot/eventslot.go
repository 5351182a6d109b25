package eventslot

import (
	"github.com/joeycumines/logiface"
	"github.com/key4hep/avalanche-go/algstate"
)

// NodeIndex is a stable integer identifier for a precedence graph node.
// It is defined here, rather than in package precedence, so that this
// package has no dependency on the graph implementation.
type NodeIndex int

// Decision values held in ControlFlowState.
const (
	Undecided int8 = -1
	False     int8 = 0
	True      int8 = 1
)

// EventSlot bundles the per-event workspace the precedence service
// iterates: algorithm states, control-flow decisions, the data-flow
// catalog, and (for event-view processing) a tree of sub-slots.
type EventSlot struct {
	// Context identifies the event currently occupying this slot.
	Context EventContext

	// AlgStates tracks each algorithm's position in the execution state
	// machine, for this slot (or sub-slot) only.
	AlgStates *algstate.AlgStateSet

	// ControlFlowState holds one decision per graph node: Undecided, False,
	// or True. Indexed by NodeIndex, length equal to the graph's node count.
	ControlFlowState []int8

	// DataFlowCatalog is the set of data node indices already produced in
	// this slot.
	DataFlowCatalog map[NodeIndex]struct{}

	// Complete is set once the slot's head decision has resolved and the
	// scheduler has signed it off.
	Complete bool

	// ParentSlot is nil for whole-event slots, and points to the owning
	// slot for event-view sub-slots.
	ParentSlot *EventSlot

	// SubSlots holds the sub-slot instances created via MakeSubSlot, owned
	// by this slot.
	SubSlots []*EventSlot

	// SubSlotsByNode maps a decision node name to the indices (into
	// SubSlots) of the sub-slots rooted there.
	SubSlotsByNode map[string][]int

	// EntryPoint is the decision node name this slot is rooted at. Empty
	// for whole-event slots.
	EntryPoint string

	sink *logiface.Logger[logiface.Event]
}

// New allocates an EventSlot for a graph with numAlgorithms algorithm
// nodes and numNodes total nodes (the length of ControlFlowState).
func New(ctx EventContext, numAlgorithms, numNodes int, sink *logiface.Logger[logiface.Event]) *EventSlot {
	s := &EventSlot{
		Context:        ctx,
		AlgStates:      algstate.New(numAlgorithms, sink),
		DataFlowCatalog: make(map[NodeIndex]struct{}),
		SubSlotsByNode: make(map[string][]int),
		sink:           sink,
	}
	s.ControlFlowState = newUndecidedVector(numNodes)
	return s
}

func newUndecidedVector(n int) []int8 {
	v := make([]int8, n)
	for i := range v {
		v[i] = Undecided
	}
	return v
}

// Reset reinitializes the slot for reuse with a new event, preserving its
// dimensions (algorithm count, node count) and EntryPoint.
func (s *EventSlot) Reset(ctx EventContext) {
	s.Context = ctx
	s.AlgStates.Reset()
	for i := range s.ControlFlowState {
		s.ControlFlowState[i] = Undecided
	}
	for k := range s.DataFlowCatalog {
		delete(s.DataFlowCatalog, k)
	}
	s.Complete = false
	s.SubSlots = s.SubSlots[:0]
	for k := range s.SubSlotsByNode {
		delete(s.SubSlotsByNode, k)
	}
}

// MakeSubSlot creates and registers a new sub-slot rooted at nodeName,
// sharing this slot's graph dimensions. It returns the sub-slot and its
// index within SubSlots (stable for the lifetime of this slot occupancy).
func (s *EventSlot) MakeSubSlot(nodeName string, ctx EventContext) (*EventSlot, int) {
	sub := New(ctx, s.AlgStates.Len(), len(s.ControlFlowState), s.sink)
	sub.ParentSlot = s
	sub.EntryPoint = nodeName

	idx := len(s.SubSlots)
	s.SubSlots = append(s.SubSlots, sub)
	s.SubSlotsByNode[nodeName] = append(s.SubSlotsByNode[nodeName], idx)
	return sub, idx
}

// Clone returns an independent copy of s's algorithm states, control-flow
// decisions, and data-flow catalog. Sub-slots and ParentSlot are not
// copied; a clone is a detached workspace, used by the precedence
// simulator to run a dry pass without disturbing the real slot.
func (s *EventSlot) Clone() *EventSlot {
	out := &EventSlot{
		Context:         s.Context,
		AlgStates:       s.AlgStates.Clone(),
		ControlFlowState: append([]int8(nil), s.ControlFlowState...),
		DataFlowCatalog: make(map[NodeIndex]struct{}, len(s.DataFlowCatalog)),
		SubSlotsByNode:  make(map[string][]int),
		sink:            s.sink,
	}
	for k := range s.DataFlowCatalog {
		out.DataFlowCatalog[k] = struct{}{}
	}
	return out
}

// HeadResolved reports whether the control-flow decision at headIndex has
// settled to True or False. For whole-event slots headIndex is the graph's
// head DecisionNode; for sub-slots it is the sub-slot's EntryPoint node.
func (s *EventSlot) HeadResolved(headIndex NodeIndex) bool {
	if int(headIndex) < 0 || int(headIndex) >= len(s.ControlFlowState) {
		return false
	}
	return s.ControlFlowState[headIndex] != Undecided
}

// Decision returns the current control-flow decision at index.
func (s *EventSlot) Decision(index NodeIndex) int8 {
	if int(index) < 0 || int(index) >= len(s.ControlFlowState) {
		return Undecided
	}
	return s.ControlFlowState[index]
}

// SetDecision writes a control-flow decision at index.
func (s *EventSlot) SetDecision(index NodeIndex, value int8) {
	if int(index) < 0 || int(index) >= len(s.ControlFlowState) {
		return
	}
	s.ControlFlowState[index] = value
}

// MarkProduced records that a data node has been produced in this slot.
func (s *EventSlot) MarkProduced(index NodeIndex) {
	s.DataFlowCatalog[index] = struct{}{}
}

// Produced reports whether a data node has been produced in this slot.
func (s *EventSlot) Produced(index NodeIndex) bool {
	_, ok := s.DataFlowCatalog[index]
	return ok
}

// SubSlotsFor returns the sub-slots registered under nodeName, or nil.
func (s *EventSlot) SubSlotsFor(nodeName string) []*EventSlot {
	indices := s.SubSlotsByNode[nodeName]
	if len(indices) == 0 {
		return nil
	}
	out := make([]*EventSlot, len(indices))
	for i, idx := range indices {
		out[i] = s.SubSlots[idx]
	}
	return out
}

package precedence

import (
	"fmt"

	"github.com/joeycumines/logiface"
	"github.com/key4hep/avalanche-go/algstate"
	"github.com/key4hep/avalanche-go/eventslot"
)

// serviceOptions follows the same functional-options shape as the rest of
// this module.
type serviceOptions struct {
	sink   *logiface.Logger[logiface.Event]
	ranker Ranker
}

// Option configures a Service.
type Option interface {
	applyService(*serviceOptions)
}

type optionFunc func(*serviceOptions)

func (f optionFunc) applyService(o *serviceOptions) { f(o) }

// WithLogSink attaches a structured logging sink. The Service stores it;
// no Service method logs through it.
func WithLogSink(sink *logiface.Logger[logiface.Event]) Option {
	return optionFunc(func(o *serviceOptions) { o.sink = sink })
}

// WithRanker selects the ranking strategy NewService applies to compute
// the initial priorities. Defaults to CriticalPathRanker. ApplyRanking
// takes its own ranker argument.
func WithRanker(r Ranker) Option {
	return optionFunc(func(o *serviceOptions) { o.ranker = r })
}

func resolveServiceOptions(opts []Option) serviceOptions {
	o := serviceOptions{ranker: &CriticalPathRanker{}}
	for _, opt := range opts {
		if opt != nil {
			opt.applyService(&o)
		}
	}
	return o
}

// Service is the read-only entry point the scheduler uses to drive a
// single EventSlot's precedence rules forward and to query static graph
// properties (priority, blocking/asynchronous classification). It holds
// no per-event state itself; all mutable state lives on the EventSlot
// passed to each call, so one Service safely serves any number of slots
// concurrently, as long as each slot is only ever touched by the
// scheduler's single activation goroutine at a time.
type Service struct {
	graph *Graph
	opts  serviceOptions
	ranks map[NodeIndex]uint32
}

// NewService wraps graph for iteration and simulation, computing initial
// ranks with the configured (or default) Ranker.
func NewService(graph *Graph, opts ...Option) *Service {
	svc := &Service{
		graph: graph,
		opts:  resolveServiceOptions(opts),
	}
	svc.ApplyRanking(svc.opts.ranker)
	return svc
}

// Graph returns the underlying precedence graph.
func (svc *Service) Graph() *Graph { return svc.graph }

// Iterate advances slot by one precedence pass for cause. For CauseRoot,
// it performs the initial activation of the graph's reachable algorithms
// (INITIAL -> CONTROLREADY -> DATAREADY as far as data allows), starting
// at the graph head for a whole-event slot and at the slot's EntryPoint
// node for a sub-slot. For
// CauseTask, it records the completion of the algorithm named in
// cause.AlgIndex at cause.FinalState and propagates the consequences:
// decision aggregation, consumer wake-up, and ancestor re-aggregation.
func (svc *Service) Iterate(slot *eventslot.EventSlot, cause Cause) error {
	switch cause.Kind {
	case CauseRoot:
		start := svc.graph.Head()
		if slot.EntryPoint != "" {
			node, ok := svc.graph.NodeByName(slot.EntryPoint)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownNode, slot.EntryPoint)
			}
			start = node.Index
		}
		var sup Supervisor
		_, err := sup.Resolve(svc.graph, slot, start)
		return err

	case CauseTask:
		node := svc.graph.AlgorithmNode(cause.AlgIndex)
		if err := slot.AlgStates.Set(cause.AlgIndex, cause.FinalState); err != nil {
			return err
		}
		var du DecisionUpdater
		return du.Apply(svc.graph, slot, node.Index, cause.FinalState)
	}
	return nil
}

// Simulate predicts the remaining execution needed to resolve slot's head
// decision, without mutating slot. See RunSimulator for the algorithm.
func (svc *Service) Simulate(slot *eventslot.EventSlot) ([]NodeIndex, error) {
	var sim RunSimulator
	return sim.Simulate(svc.graph, slot)
}

// CFRulesResolved reports whether every algorithm governed by the
// decision node at entryIdx (typically a sub-slot's EntryPoint) has
// reached a terminal execution state.
func (svc *Service) CFRulesResolved(slot *eventslot.EventSlot, entryIdx NodeIndex) bool {
	var scout SubSlotScout
	return scout.CFRulesResolved(svc.graph, slot, entryIdx)
}

// BubbleSubSlot re-aggregates slot's EntryPoint decision into the slot
// that spawned it. It is a no-op for whole-event slots (ParentSlot == nil).
// Called after every precedence pass against a sub-slot, it is the
// mechanism by which a sub-slot's progress becomes visible one level up —
// the parent only sees a new value once every sibling sub-slot registered
// under the same node name has itself resolved it (see Supervisor and
// SubSlotScout, spec.md §4.C-§4.D).
func (svc *Service) BubbleSubSlot(slot *eventslot.EventSlot) error {
	if slot.ParentSlot == nil {
		return nil
	}
	node, ok := svc.graph.NodeByName(slot.EntryPoint)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, slot.EntryPoint)
	}
	var sup Supervisor
	_, err := sup.Resolve(svc.graph, slot.ParentSlot, node.Index)
	return err
}

// Priority returns algIndex's current scheduling rank, lower is more
// urgent. See ApplyRanking.
func (svc *Service) Priority(algIndex int) uint32 {
	idx := svc.graph.AlgorithmNode(algIndex).Index
	return svc.ranks[idx]
}

// IsBlocking reports whether the algorithm is flagged as CPU-blocking
// (spec.md's definition of "blocking" takes precedence unless the
// algorithm is also Accelerated, in which case Accelerated wins; see
// GraphBuilder.AddAlgorithm's build-time warning).
func (svc *Service) IsBlocking(algIndex int) bool {
	flags := svc.graph.AlgorithmNode(algIndex).Algorithm().Spec.Flags
	return flags.Blocking && !flags.Accelerated
}

// IsAccelerated reports whether the algorithm should be routed to the
// accelerator-offload queue.
func (svc *Service) IsAccelerated(algIndex int) bool {
	return svc.graph.AlgorithmNode(algIndex).Algorithm().Spec.Flags.Accelerated
}

// IsAsynchronous reports whether the algorithm declared itself
// asynchronous (spec.md §6's Algorithm contract), meaning the scheduler
// should not block a worker goroutine waiting for its completion signal.
func (svc *Service) IsAsynchronous(algIndex int) bool {
	return svc.graph.AlgorithmNode(algIndex).Algorithm().Spec.IsAsynchronous
}

// AlgState is a small convenience wrapper so callers outside this package
// need not import algstate just to read a slot's algorithm state.
func (svc *Service) AlgState(slot *eventslot.EventSlot, algIndex int) (algstate.State, error) {
	return slot.AlgStates.Get(algIndex)
}

// ApplyRanking recomputes every algorithm's Priority using ranker. Safe to
// call between runs (e.g. after collecting timing feedback); it does not
// mutate graph topology.
func (svc *Service) ApplyRanking(ranker Ranker) {
	if ranker == nil {
		return
	}
	svc.opts.ranker = ranker
	ranks := make(map[NodeIndex]uint32, svc.graph.NumAlgorithms())
	for _, idx := range svc.graph.Algorithms() {
		ranks[idx] = ranker.Rank(svc.graph, idx)
	}
	svc.ranks = ranks
}

package precedence

// Ranker computes a scheduling priority for an algorithm node. Lower
// values mean higher priority (dispatched first); this matches the
// ascending (rank, insertion order) ordering used by the scheduler's
// priority queues.
//
// Ranking is metadata laid over the otherwise-frozen graph: topology
// never changes after GraphBuilder.Build, but ranks may be recomputed
// from runtime feedback (e.g. observed timing) between runs, via
// Service.ApplyRanking.
type Ranker interface {
	Rank(g *Graph, idx NodeIndex) uint32
}

// DeclarationOrderRanker ranks algorithms by their registration order,
// the simplest possible stable baseline.
type DeclarationOrderRanker struct{}

func (DeclarationOrderRanker) Rank(g *Graph, idx NodeIndex) uint32 {
	return uint32(g.Node(idx).Algorithm().AlgIndex)
}

// OutputFanOutRanker favors algorithms whose outputs unblock the most
// direct consumers, on the theory that running them sooner widens the
// pool of algorithms that can subsequently become data-ready.
type OutputFanOutRanker struct{}

func (OutputFanOutRanker) Rank(g *Graph, idx NodeIndex) uint32 {
	alg := g.Node(idx).Algorithm()
	var fanout uint32
	for _, outIdx := range alg.Outputs {
		fanout += uint32(len(g.Node(outIdx).Data().Consumers))
	}
	return ^uint32(0) - fanout
}

// InputCountRanker favors algorithms with fewer declared inputs, which
// tend to become data-ready earliest.
type InputCountRanker struct{}

func (InputCountRanker) Rank(g *Graph, idx NodeIndex) uint32 {
	return uint32(len(g.Node(idx).Algorithm().Inputs))
}

// CriticalPathRanker favors algorithms with the longest chain of
// transitive consumers, a HEFT-style heuristic: the longer the remaining
// downstream work an algorithm gates, the sooner it should run.
type CriticalPathRanker struct {
	depths map[NodeIndex]int
}

func (r *CriticalPathRanker) Rank(g *Graph, idx NodeIndex) uint32 {
	if r.depths == nil {
		r.depths = make(map[NodeIndex]int)
	}
	return ^uint32(0) - uint32(r.downstreamDepth(g, idx, make(map[NodeIndex]bool)))
}

func (r *CriticalPathRanker) downstreamDepth(g *Graph, idx NodeIndex, visiting map[NodeIndex]bool) int {
	if d, ok := r.depths[idx]; ok {
		return d
	}
	if visiting[idx] {
		return 0 // defensive: validateAcyclic already forbids this
	}
	visiting[idx] = true
	defer delete(visiting, idx)

	alg := g.Node(idx).Algorithm()
	best := 0
	for _, outIdx := range alg.Outputs {
		for _, consumer := range g.Node(outIdx).Data().Consumers {
			if d := 1 + r.downstreamDepth(g, consumer, visiting); d > best {
				best = d
			}
		}
	}
	r.depths[idx] = best
	return best
}

// BlockingFirstRanker dispatches CPU-blocking algorithms ahead of normal
// ones, so the bounded pool of blocking-capable workers is kept fed
// rather than left idle behind a queue of ordinary work.
type BlockingFirstRanker struct{}

func (BlockingFirstRanker) Rank(g *Graph, idx NodeIndex) uint32 {
	alg := g.Node(idx).Algorithm()
	if alg.Spec.Flags.Blocking {
		return uint32(alg.AlgIndex)
	}
	return 1 << 20 + uint32(alg.AlgIndex)
}

package precedence

// validateProducers ensures every non-condition data item with more than
// one producing algorithm is guarded: the producers must fall under
// distinct children of a common ancestor OR-mode DecisionNode, so at most
// one branch is ever live for a given event (spec.md §3, §8 scenario 4).
// An unconditional fan-in — no common OR ancestor, or two producers
// sharing the same immediate branch — leaves "is this data ready"
// ambiguous and is rejected.
func validateProducers(g *Graph) error {
	var scout ActiveLineageScout
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.Kind != KindData {
			continue
		}
		if len(n.data.Producers) < 2 {
			continue
		}
		if !producersAreGuarded(g, scout, n.data.Producers) {
			return &TopologyError{Op: "validateProducers", Names: []string{n.Name}, err: ErrMultipleProducers}
		}
	}
	return nil
}

// producersAreGuarded reports whether every pair of producers descends from
// a common OR-mode DecisionNode ancestor through distinct immediate
// children, i.e. control-flow guarantees at most one of them is reachable
// for a given event.
func producersAreGuarded(g *Graph, scout ActiveLineageScout, producers []NodeIndex) bool {
	lineages := make([][]NodeIndex, len(producers))
	for i, p := range producers {
		lineages[i] = append([]NodeIndex{p}, scout.Lineage(g, p)...)
	}
	for i := range producers {
		for j := i + 1; j < len(producers); j++ {
			if !pairGuarded(g, lineages[i], lineages[j]) {
				return false
			}
		}
	}
	return true
}

// pairGuarded finds the nearest common decision-node ancestor of two
// producer lineages and reports whether it is OR-mode and the two
// producers branch through distinct immediate children of it.
func pairGuarded(g *Graph, a, b []NodeIndex) bool {
	bSet := make(map[NodeIndex]int, len(b))
	for idx, n := range b {
		bSet[n] = idx
	}
	for ai, n := range a {
		if bi, ok := bSet[n]; ok {
			if n == a[0] || n == b[0] {
				// producers share an ancestor that is one of the producers
				// themselves (impossible for algorithm nodes) or the
				// lineage walk reached a shared algorithm; not a guard.
				return false
			}
			anc := g.Node(n)
			if anc.Kind != KindDecision || !anc.Decision().Flags.ModeOR {
				return false
			}
			childA := a[ai-1]
			childB := b[bi-1]
			return childA != childB
		}
	}
	return false
}

// validateHeadSingular ensures exactly one decision node has no parent.
// The builder's own invariants already guarantee this (only NewGraphBuilder
// creates a parentless decision node), but it is checked explicitly as a
// structural property of the frozen graph.
func validateHeadSingular(g *Graph) error {
	var heads []string
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.Kind == KindDecision && len(n.decision.Parents) == 0 {
			heads = append(heads, n.Name)
		}
	}
	if len(heads) != 1 {
		return &TopologyError{Op: "validateHeadSingular", Names: heads, err: ErrMultipleHeads}
	}
	return nil
}

// validateFlagContradictions rejects DecisionNode configurations that
// cannot be jointly satisfied: PromptDecision asks to short-circuit before
// every child resolves, AllPass forces waiting for every child to resolve
// before forcing a pass. Both set is a contradiction, per the resolution
// of the allPass/prompt interaction (see DESIGN.md). A node that sets both
// Concurrent and PromptDecision is not rejected: PromptDecision is cleared
// and a warning is logged.
func validateFlagContradictions(g *Graph) error {
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.Kind != KindDecision {
			continue
		}
		if n.decision.Flags.PromptDecision && n.decision.Flags.AllPass {
			return &TopologyError{Op: "validateFlagContradictions", Names: []string{n.Name}, err: ErrFlagContradiction}
		}
		if n.decision.Flags.Concurrent && n.decision.Flags.PromptDecision {
			n.decision.Flags.PromptDecision = false
			if g.sink != nil {
				g.sink.Warning().Str(`node`, n.Name).Log("concurrent and promptDecision both set; promptDecision discarded")
			}
		}
	}
	return nil
}

// validateAcyclic runs Tarjan's strongly-connected-components algorithm
// over the data-dependency subgraph induced by treating each algorithm as
// a vertex with an edge to every consumer of its outputs. A component of
// size greater than one means two or more algorithms each (indirectly)
// depend on the other's output, which no execution order can satisfy.
func validateAcyclic(g *Graph) error {
	adj := algorithmAdjacency(g)

	t := &tarjan{
		adj:     adj,
		index:   make(map[NodeIndex]int),
		lowlink: make(map[NodeIndex]int),
		onStack: make(map[NodeIndex]bool),
	}
	for algIdx := range adj {
		if _, seen := t.index[algIdx]; !seen {
			t.strongConnect(algIdx)
		}
	}
	for _, comp := range t.components {
		if len(comp) > 1 {
			names := make([]string, len(comp))
			for i, idx := range comp {
				names[i] = g.nodes[idx].Name
			}
			return &TopologyError{Op: "validateAcyclic", Names: names, err: ErrCycle}
		}
	}
	return nil
}

func algorithmAdjacency(g *Graph) map[NodeIndex][]NodeIndex {
	adj := make(map[NodeIndex][]NodeIndex)
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.Kind != KindAlgorithm {
			continue
		}
		adj[n.Index] = nil
	}
	for i := range g.nodes {
		n := &g.nodes[i]
		if n.Kind != KindData && n.Kind != KindCondition {
			continue
		}
		for _, producer := range n.data.Producers {
			adj[producer] = append(adj[producer], n.data.Consumers...)
		}
	}
	return adj
}

// tarjan is a minimal iterative-safe (but here recursive, since graphs are
// small and shallow in practice) Tarjan SCC implementation over the
// NodeIndex adjacency built by algorithmAdjacency.
type tarjan struct {
	adj     map[NodeIndex][]NodeIndex
	index   map[NodeIndex]int
	lowlink map[NodeIndex]int
	onStack map[NodeIndex]bool
	stack   []NodeIndex
	counter int

	components [][]NodeIndex
}

func (t *tarjan) strongConnect(v NodeIndex) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.adj[v] {
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var comp []NodeIndex
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.components = append(t.components, comp)
	}
}

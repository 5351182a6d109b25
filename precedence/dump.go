package precedence

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/key4hep/avalanche-go/eventslot"
)

// DumpState renders a human-readable snapshot of slot's progress against
// g, for stall diagnostics. It is deliberately verbose; callers are
// expected to throttle how often they invoke it (see scheduler's use of
// go-catrate).
func DumpState(w io.Writer, g *Graph, slot *eventslot.EventSlot) error {
	type algSnapshot struct {
		Name     string
		AlgIndex int
		State    string
		Decision string
	}

	snapshots := make([]algSnapshot, 0, g.NumAlgorithms())
	for _, idx := range g.Algorithms() {
		n := g.Node(idx)
		alg := n.Algorithm()
		state, err := slot.AlgStates.Get(alg.AlgIndex)
		if err != nil {
			return err
		}
		snapshots = append(snapshots, algSnapshot{
			Name:     n.Name,
			AlgIndex: alg.AlgIndex,
			State:    state.String(),
			Decision: decisionString(slot.Decision(idx)),
		})
	}

	if _, err := fmt.Fprintf(w, "event %s (slot %d, number %d): head resolved=%v\n",
		slot.Context.ID, slot.Context.SlotIndex, slot.Context.EventNumber, slot.HeadResolved(g.Head())); err != nil {
		return err
	}
	_, err := io.WriteString(w, spew.Sdump(snapshots))
	return err
}

func decisionString(v int8) string {
	switch v {
	case eventslot.True:
		return "True"
	case eventslot.False:
		return "False"
	default:
		return "Undecided"
	}
}

// WriteGraphML exports g's topology as GraphML for visualization. It is a
// diagnostic-only format: this package never parses it back.
func WriteGraphML(w io.Writer, g *Graph) error {
	if _, err := io.WriteString(w, xmlHeader); err != nil {
		return err
	}

	for i := range g.NumNodes() {
		n := g.Node(NodeIndex(i))
		if _, err := fmt.Fprintf(w, "    <node id=\"n%d\"><data key=\"kind\">%s</data><data key=\"name\">%s</data></node>\n",
			n.Index, n.Kind, n.Name); err != nil {
			return err
		}
	}

	edgeID := 0
	writeEdge := func(from, to NodeIndex, label string) error {
		_, err := fmt.Fprintf(w, "    <edge id=\"e%d\" source=\"n%d\" target=\"n%d\"><data key=\"label\">%s</data></edge>\n",
			edgeID, from, to, label)
		edgeID++
		return err
	}

	for i := range g.NumNodes() {
		n := g.Node(NodeIndex(i))
		switch n.Kind {
		case KindDecision:
			for _, c := range n.Decision().Children {
				if err := writeEdge(n.Index, c, "control"); err != nil {
					return err
				}
			}
		case KindAlgorithm:
			for _, d := range n.Algorithm().Outputs {
				if err := writeEdge(n.Index, d, "produces"); err != nil {
					return err
				}
			}
		}
	}

	_, err := io.WriteString(w, xmlFooter)
	return err
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns">
  <key id="kind" for="node" attr.name="kind" attr.type="string"/>
  <key id="name" for="node" attr.name="name" attr.type="string"/>
  <key id="label" for="edge" attr.name="label" attr.type="string"/>
  <graph id="precedence" edgedefault="directed">
`

const xmlFooter = `  </graph>
</graphml>
`

package precedence

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/key4hep/avalanche-go/eventslot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriticalPathRanker_longerChainRanksHigher(t *testing.T) {
	b := NewGraphBuilder("Root", DecisionFlags{})
	head := b.Head()
	b.AddAlgorithm(head, simpleSpec("A", nil, []string{"a_out"}))
	b.AddAlgorithm(head, simpleSpec("B", []string{"a_out"}, []string{"b_out"}))
	b.AddAlgorithm(head, simpleSpec("C", []string{"b_out"}, nil))
	b.AddAlgorithm(head, simpleSpec("Isolated", nil, nil))

	g, err := b.Build()
	require.NoError(t, err)

	r := &CriticalPathRanker{}
	aRank := r.Rank(g, mustNode(t, g, "A"))
	isolatedRank := r.Rank(g, mustNode(t, g, "Isolated"))
	assert.Less(t, aRank, isolatedRank, "A gates two more algorithms, so it should outrank Isolated")
}

func TestDeclarationOrderRanker(t *testing.T) {
	b := NewGraphBuilder("Root", DecisionFlags{})
	head := b.Head()
	b.AddAlgorithm(head, simpleSpec("First", nil, nil))
	b.AddAlgorithm(head, simpleSpec("Second", nil, nil))
	g, err := b.Build()
	require.NoError(t, err)

	var r DeclarationOrderRanker
	assert.Less(t, r.Rank(g, mustNode(t, g, "First")), r.Rank(g, mustNode(t, g, "Second")))
}

func mustNode(t *testing.T, g *Graph, name string) NodeIndex {
	t.Helper()
	n, ok := g.NodeByName(name)
	require.True(t, ok)
	return n.Index
}

func TestWriteGraphML(t *testing.T) {
	g := buildDiamond(t)
	var buf bytes.Buffer
	require.NoError(t, WriteGraphML(&buf, g))
	out := buf.String()
	assert.Contains(t, out, "<graphml")
	assert.Contains(t, out, "Join")
	assert.Contains(t, out, "</graphml>")
}

func TestDumpState(t *testing.T) {
	g := buildDiamond(t)
	slot := eventslot.New(eventslot.NewEventContext(uuid.Nil, 7), g.NumAlgorithms(), g.NumNodes(), nil)
	var buf bytes.Buffer
	require.NoError(t, DumpState(&buf, g, slot))
	assert.Contains(t, buf.String(), "Source")
}

package precedence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleSpec(name string, inputs, outputs []string) AlgorithmSpec {
	return AlgorithmSpec{Name: name, Inputs: inputs, Outputs: outputs}
}

func TestBuilder_linearChain(t *testing.T) {
	b := NewGraphBuilder("RootDecision", DecisionFlags{})
	head := b.Head()
	b.AddAlgorithm(head, simpleSpec("Producer", nil, []string{"raw"}))
	b.AddAlgorithm(head, simpleSpec("Consumer", []string{"raw"}, []string{"derived"}))

	g, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumAlgorithms())

	producer, ok := g.NodeByName("Producer")
	require.True(t, ok)
	assert.Equal(t, KindAlgorithm, producer.Kind)

	data, ok := g.DataByID("raw")
	require.True(t, ok)
	assert.Equal(t, KindData, data.Kind)
	require.Len(t, data.Data().Producers, 1)
	require.Len(t, data.Data().Consumers, 1)
}

func TestBuilder_multipleProducersRejected(t *testing.T) {
	b := NewGraphBuilder("Root", DecisionFlags{})
	head := b.Head()
	b.AddAlgorithm(head, simpleSpec("A", nil, []string{"x"}))
	b.AddAlgorithm(head, simpleSpec("B", nil, []string{"x"}))

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMultipleProducers)
}

func TestBuilder_multipleProducersGuardedBySiblingORBranches(t *testing.T) {
	b := NewGraphBuilder("Root", DecisionFlags{ModeOR: true})
	head := b.Head()
	branch1 := b.AddDecisionHub(head, "Branch1", DecisionFlags{})
	branch2 := b.AddDecisionHub(head, "Branch2", DecisionFlags{})
	b.AddAlgorithm(branch1, simpleSpec("P1", nil, []string{"shared"}))
	b.AddAlgorithm(branch2, simpleSpec("P2", nil, []string{"shared"}))

	g, err := b.Build()
	require.NoError(t, err)
	data, ok := g.DataByID("shared")
	require.True(t, ok)
	assert.Len(t, data.Data().Producers, 2)
}

func TestBuilder_multipleProducersUnguardedUnderANDRejected(t *testing.T) {
	b := NewGraphBuilder("Root", DecisionFlags{}) // AND mode
	head := b.Head()
	branch1 := b.AddDecisionHub(head, "Branch1", DecisionFlags{})
	branch2 := b.AddDecisionHub(head, "Branch2", DecisionFlags{})
	b.AddAlgorithm(branch1, simpleSpec("P1", nil, []string{"shared"}))
	b.AddAlgorithm(branch2, simpleSpec("P2", nil, []string{"shared"}))

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMultipleProducers)
}

func TestBuilder_cycleRejected(t *testing.T) {
	b := NewGraphBuilder("Root", DecisionFlags{})
	head := b.Head()
	b.AddAlgorithm(head, simpleSpec("A", []string{"b_out"}, []string{"a_out"}))
	b.AddAlgorithm(head, simpleSpec("B", []string{"a_out"}, []string{"b_out"}))

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestBuilder_flagContradictionRejected(t *testing.T) {
	b := NewGraphBuilder("Root", DecisionFlags{PromptDecision: true, AllPass: true})
	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFlagContradiction)
}

func TestBuilder_nestedDecisionHub(t *testing.T) {
	b := NewGraphBuilder("Root", DecisionFlags{})
	head := b.Head()
	sub := b.AddDecisionHub(head, "Analyzer", DecisionFlags{})
	b.AddAlgorithm(sub, simpleSpec("Inner", nil, nil))

	g, err := b.Build()
	require.NoError(t, err)

	analyzer, ok := g.NodeByName("Analyzer")
	require.True(t, ok)
	require.Equal(t, KindDecision, analyzer.Kind)
	assert.Len(t, analyzer.Decision().Children, 1)
	assert.Equal(t, []NodeIndex{head}, analyzer.Decision().Parents)
}

func TestBuilder_duplicateNameRejected(t *testing.T) {
	b := NewGraphBuilder("Root", DecisionFlags{})
	head := b.Head()
	b.AddAlgorithm(head, simpleSpec("Dup", nil, nil))
	b.AddAlgorithm(head, simpleSpec("Dup", nil, nil))

	_, err := b.Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateName))
}

func TestBuilder_conditionNode(t *testing.T) {
	b := NewGraphBuilder("Root", DecisionFlags{})
	head := b.Head()
	b.AddCondition("AlignmentTag", fakeConditions{valid: true})
	b.AddAlgorithm(head, simpleSpec("NeedsCondition", []string{"AlignmentTag"}, nil))

	g, err := b.Build()
	require.NoError(t, err)
	n, ok := g.DataByID("AlignmentTag")
	require.True(t, ok)
	assert.True(t, n.IsCondition())
	assert.Len(t, n.Data().Consumers, 1)
}

type fakeConditions struct{ valid bool }

func (f fakeConditions) IsValidID(eventID, dataID string) bool { return f.valid }

package eventslot

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_dimensionsAndDefaults(t *testing.T) {
	ctx := NewEventContext(uuid.Nil, 1)
	s := New(ctx, 3, 5, nil)

	assert.Equal(t, 3, s.AlgStates.Len())
	assert.Len(t, s.ControlFlowState, 5)
	for _, v := range s.ControlFlowState {
		assert.Equal(t, Undecided, v)
	}
	assert.False(t, s.Complete)
	assert.Nil(t, s.ParentSlot)
	assert.Empty(t, s.EntryPoint)
}

func TestSetDecisionAndHeadResolved(t *testing.T) {
	s := New(NewEventContext(uuid.Nil, 1), 1, 2, nil)
	assert.False(t, s.HeadResolved(0))
	s.SetDecision(0, True)
	assert.True(t, s.HeadResolved(0))
	assert.Equal(t, True, s.Decision(0))
}

func TestDataFlowCatalog(t *testing.T) {
	s := New(NewEventContext(uuid.Nil, 1), 1, 1, nil)
	assert.False(t, s.Produced(0))
	s.MarkProduced(0)
	assert.True(t, s.Produced(0))
}

func TestMakeSubSlot(t *testing.T) {
	parent := New(NewEventContext(uuid.Nil, 1), 4, 6, nil)
	sub1, idx1 := parent.MakeSubSlot("Analyzer", NewEventContext(uuid.Nil, 1))
	sub2, idx2 := parent.MakeSubSlot("Analyzer", NewEventContext(uuid.Nil, 1))

	require.Equal(t, 0, idx1)
	require.Equal(t, 1, idx2)
	assert.Same(t, parent, sub1.ParentSlot)
	assert.Equal(t, "Analyzer", sub1.EntryPoint)
	assert.Equal(t, 4, sub1.AlgStates.Len())
	assert.Len(t, sub1.ControlFlowState, 6)

	subs := parent.SubSlotsFor("Analyzer")
	require.Len(t, subs, 2)
	assert.Same(t, sub1, subs[0])
	assert.Same(t, sub2, subs[1])

	assert.Nil(t, parent.SubSlotsFor("NoSuchNode"))
}

func TestReset(t *testing.T) {
	s := New(NewEventContext(uuid.Nil, 1), 2, 2, nil)
	s.SetDecision(0, True)
	s.MarkProduced(0)
	require.NoError(t, s.AlgStates.Set(0, 1)) // CONTROLREADY
	s.MakeSubSlot("X", NewEventContext(uuid.Nil, 1))
	s.Complete = true

	newCtx := NewEventContext(uuid.Nil, 2)
	s.Reset(newCtx)

	assert.Equal(t, newCtx, s.Context)
	assert.False(t, s.Complete)
	assert.False(t, s.Produced(0))
	assert.Equal(t, Undecided, s.Decision(0))
	assert.Empty(t, s.SubSlots)
	assert.Empty(t, s.SubSlotsByNode)
}

func TestEventContext_defaultsID(t *testing.T) {
	ctx := NewEventContext(uuid.Nil, 42)
	assert.NotEqual(t, uuid.Nil, ctx.ID)
	assert.Equal(t, int64(42), ctx.EventNumber)
}

func TestEventContext_withFailure(t *testing.T) {
	ctx := NewEventContext(uuid.Nil, 1)
	failed := ctx.WithFailure("MyAlg", 7)
	assert.True(t, failed.Failed)
	assert.Equal(t, "MyAlg", failed.FailedAlgorithm)
	assert.False(t, ctx.Failed, "original context must not be mutated")
}

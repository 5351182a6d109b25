package algstate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_allInitial(t *testing.T) {
	s := New(5, nil)
	require.Equal(t, 5, s.Len())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, s.IndicesIn(INITIAL))
	for _, st := range []State{CONTROLREADY, DATAREADY, RESOURCELESS, SCHEDULED, EVTACCEPTED, EVTREJECTED, ERROR} {
		assert.False(t, s.Contains(st))
	}
}

func TestSet_legalChain(t *testing.T) {
	s := New(1, nil)
	require.NoError(t, s.Set(0, CONTROLREADY))
	require.NoError(t, s.Set(0, DATAREADY))
	require.NoError(t, s.Set(0, SCHEDULED))
	require.NoError(t, s.Set(0, EVTACCEPTED))

	got, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, EVTACCEPTED, got)
	assert.Equal(t, 1, s.Count(EVTACCEPTED))
}

func TestSet_selfTransitionIsNoOp(t *testing.T) {
	s := New(1, nil)
	require.NoError(t, s.Set(0, CONTROLREADY))
	require.NoError(t, s.Set(0, CONTROLREADY))
	assert.Equal(t, 1, s.Count(CONTROLREADY))
}

func TestSet_illegalTransitionForcesError(t *testing.T) {
	s := New(1, nil)
	// INITIAL -> DATAREADY is not legal; must skip CONTROLREADY.
	err := s.Set(0, DATAREADY)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.Index)
	assert.Equal(t, INITIAL, te.From)
	assert.Equal(t, DATAREADY, te.To)

	got, _ := s.Get(0)
	assert.Equal(t, ERROR, got)
	assert.Equal(t, 1, s.Count(ERROR))
	assert.Equal(t, 0, s.Count(INITIAL))
}

func TestSet_outOfRange(t *testing.T) {
	s := New(2, nil)
	err := s.Set(5, CONTROLREADY)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	_, err = s.Get(-1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestPartitionInvariant(t *testing.T) {
	s := New(10, nil)
	for i := 0; i < 10; i++ {
		if i%3 == 0 {
			require.NoError(t, s.Set(i, CONTROLREADY))
		}
	}
	seen := make(map[int]bool)
	for st := State(0); st < State(numStates); st++ {
		for _, idx := range s.IndicesIn(st) {
			assert.False(t, seen[idx], "index %d observed in more than one state", idx)
			seen[idx] = true
		}
	}
	assert.Len(t, seen, 10)
}

func TestReset(t *testing.T) {
	s := New(4, nil)
	require.NoError(t, s.Set(0, CONTROLREADY))
	require.NoError(t, s.Set(1, CONTROLREADY))
	require.NoError(t, s.Set(1, DATAREADY))

	s.Reset()

	assert.Equal(t, []int{0, 1, 2, 3}, s.IndicesIn(INITIAL))
	assert.Equal(t, 0, s.Count(CONTROLREADY))
	assert.Equal(t, 0, s.Count(DATAREADY))
}

func TestContainsAny(t *testing.T) {
	s := New(3, nil)
	require.NoError(t, s.Set(0, CONTROLREADY))
	assert.True(t, s.ContainsAny(DATAREADY, CONTROLREADY))
	assert.False(t, s.ContainsAny(DATAREADY, SCHEDULED))
}

func TestIndicesIn_isSnapshot(t *testing.T) {
	s := New(3, nil)
	snap := s.IndicesIn(INITIAL)
	require.NoError(t, s.Set(0, CONTROLREADY))
	// mutating the set after the snapshot was taken must not affect it.
	assert.Equal(t, []int{0, 1, 2}, snap)
	assert.Equal(t, []int{1, 2}, s.IndicesIn(INITIAL))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "INITIAL", INITIAL.String())
	assert.Equal(t, "ERROR", ERROR.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}

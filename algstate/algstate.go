package algstate

import (
	"sort"

	"github.com/joeycumines/logiface"
)

// AlgStateSet is a per-slot vector of algorithm states, plus the per-state
// index sets that partition [0, Len()) at every observable moment. It is
// the Go counterpart of the original framework's AlgsExecutionStates.
type AlgStateSet struct {
	states    []State
	indexSets [numStates]map[int]struct{}
	sink      *logiface.Logger[logiface.Event]
}

// New builds an AlgStateSet with n algorithms, all initialized to INITIAL.
// sink may be nil, in which case logging is a no-op.
func New(n int, sink *logiface.Logger[logiface.Event]) *AlgStateSet {
	s := &AlgStateSet{
		states: make([]State, n),
		sink:   sink,
	}
	for i := range s.indexSets {
		s.indexSets[i] = make(map[int]struct{}, n)
	}
	for i := 0; i < n; i++ {
		s.indexSets[INITIAL][i] = struct{}{}
	}
	return s
}

// Len returns the number of algorithms tracked.
func (s *AlgStateSet) Len() int {
	return len(s.states)
}

// Get returns the current state of algorithm i.
func (s *AlgStateSet) Get(i int) (State, error) {
	if i < 0 || i >= len(s.states) {
		return 0, &IndexError{Index: i, Len: len(s.states)}
	}
	return s.states[i], nil
}

// Set attempts to transition algorithm i to newState.
//
// A self-transition (newState == current state) always succeeds as a
// no-op, to simplify visitor idempotence. Any other transition not present
// in the legal-transition table forces the algorithm to ERROR, logs the
// violation, and returns a *TransitionError wrapping ErrIllegalTransition.
// An out-of-range index returns a *IndexError wrapping ErrIndexOutOfRange
// and mutates nothing.
func (s *AlgStateSet) Set(i int, newState State) error {
	if i < 0 || i >= len(s.states) {
		return &IndexError{Index: i, Len: len(s.states)}
	}

	current := s.states[i]
	if current == newState {
		return nil
	}

	if !isLegalTransition(current, newState) {
		err := &TransitionError{Index: i, From: current, To: newState}
		if s.sink != nil {
			s.sink.Err().
				Err(err).
				Int(`algorithm`, i).
				Str(`from`, current.String()).
				Str(`to`, newState.String()).
				Log(`illegal algorithm state transition, forcing ERROR`)
		}
		s.move(i, current, ERROR)
		return err
	}

	s.move(i, current, newState)
	return nil
}

// move updates both the flat state vector and the per-state index sets.
// Callers must have already validated the transition.
func (s *AlgStateSet) move(i int, from, to State) {
	delete(s.indexSets[from], i)
	s.indexSets[to][i] = struct{}{}
	s.states[i] = to
}

// Contains reports whether any algorithm currently holds state.
func (s *AlgStateSet) Contains(state State) bool {
	return len(s.indexSets[state]) > 0
}

// ContainsAny reports whether any algorithm currently holds any of states.
func (s *AlgStateSet) ContainsAny(states ...State) bool {
	for _, st := range states {
		if s.Contains(st) {
			return true
		}
	}
	return false
}

// Count returns the number of algorithms currently in state, without
// allocating a snapshot. Grounded on AlgsExecutionStates::sizeOfSubset.
func (s *AlgStateSet) Count(state State) int {
	return len(s.indexSets[state])
}

// IndicesIn returns a freshly allocated, ascending-sorted snapshot of the
// algorithm indices currently in state. A copy is required because the set
// mutates during the very activation pass that iterates over it.
func (s *AlgStateSet) IndicesIn(state State) []int {
	set := s.indexSets[state]
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Clone returns an independent copy of s, sharing no mutable state. Used
// by the precedence simulator to run a dry pass without disturbing the
// real slot.
func (s *AlgStateSet) Clone() *AlgStateSet {
	out := &AlgStateSet{
		states: append([]State(nil), s.states...),
		sink:   s.sink,
	}
	for i := range s.indexSets {
		out.indexSets[i] = make(map[int]struct{}, len(s.indexSets[i]))
		for k := range s.indexSets[i] {
			out.indexSets[i][k] = struct{}{}
		}
	}
	return out
}

// Reset reinitializes every algorithm to INITIAL.
func (s *AlgStateSet) Reset() {
	for st := range s.indexSets {
		for i := range s.indexSets[st] {
			delete(s.indexSets[st], i)
		}
	}
	for i := range s.states {
		s.states[i] = INITIAL
		s.indexSets[INITIAL][i] = struct{}{}
	}
}

// Package algstate implements the per-algorithm execution state machine
// shared by every event slot: a fixed-size vector of algorithm states plus
// the per-state index sets the scheduler scans on each activation pass.
//
// # State machine
//
// States are contiguous integers 0..7 (INITIAL through ERROR). Legal
// transitions are enumerated in the package-level transition table; any
// other requested transition forces the algorithm to ERROR, is logged
// through the AlgStateSet's message sink, and is returned to the caller as
// a *TransitionError (see AlgStateSet.Set).
//
// # Concurrency
//
// AlgStateSet is not safe for concurrent use. Per the scheduler's hybrid
// concurrency model, only the activation goroutine ever calls Set/Reset on
// a given slot's AlgStateSet; callers needing a stable view for iteration
// must use IndicesIn, which always returns a fresh snapshot.
package algstate

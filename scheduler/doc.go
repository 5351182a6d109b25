// Package scheduler implements the intra-event task scheduler: given a
// frozen precedence.Graph and a pool of Algorithm instances, it drives
// any number of concurrent EventSlots through their precedence rules,
// dispatching data-ready algorithms to a bounded worker arena and
// collecting finished events for the embedding application to pop.
//
// All slot and algorithm-state mutation happens on a single activation
// goroutine, reached only through the Scheduler's public methods (which
// post closures onto an internal actions channel) or through completion
// closures posted by worker goroutines once an algorithm body returns.
// Worker goroutines themselves touch no shared state beyond the
// Algorithm and AlgorithmResourcePool contracts; this is what lets the
// precedence graph, algstate.AlgStateSet, and eventslot.EventSlot types
// avoid internal locking entirely.
package scheduler

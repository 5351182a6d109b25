// Package eventslot implements the per-event workspace a scheduler hands to
// the precedence service on each activation pass: an algorithm state
// vector, a control-flow decision vector, and a data-flow catalog, plus
// the bookkeeping needed for nested "event view" sub-slots.
//
// EventSlot deliberately knows nothing about the shape of the precedence
// graph it will be iterated against — it is indexed purely by stable
// integer NodeIndex values and by algorithm index, so this package has no
// dependency on package precedence (precedence depends on this package,
// not the reverse).
package eventslot

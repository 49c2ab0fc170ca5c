// Package minilogic implements a small evaluator for the C statement subset
// produced and consumed by the branch rewrites.
//
// It is used to check that a rewritten construct behaves like the original
// one: both forms are evaluated against the same input environments and the
// resulting environments, call sequences and termination kinds are compared.
//
// Modeled:
//   - integer arithmetic, comparisons and logical operators
//   - assignments (plain, compound, increments)
//   - if/else, switch with fall-through and default, break, continue, return
//   - calls as opaque effects whose order and arguments are tracked
//
// Out of scope (reported as Unknown):
//   - loops, goto and labels
//   - declarations, pointers, aggregates and anything kept verbatim by the parser
package minilogic

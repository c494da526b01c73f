// Package vm implements the Tacit virtual machine: a stack-based,
// concatenative bytecode engine in the lineage of Forth and APL/J.
//
// Every value the engine manipulates is a single 32-bit NaN-boxed cell
// (see cell.go). Two stacks (data and return) live alongside a byte-
// addressed code segment, an interned string digest, and a bump-allocated
// global heap (see memory.go, digest.go). The engine (run.go, frame.go)
// fetches and dispatches one byte-sized opcode at a time, and implements
// both ordinary call/return and the resumable-function protocol that lets
// a compiled word suspend itself mid-body and be re-entered later without
// losing its locals.
//
// Package compiler is the only intended producer of bytecode for this
// engine; vm itself never parses source text.
package vm

package compiler

import "github.com/jhlagado/tacit/vm"

// bindingKind distinguishes the two things a word name can resolve to.
type bindingKind int

const (
	bindBuiltin bindingKind = iota
	bindWord
)

type binding struct {
	kind bindingKind
	op   vm.Op // valid when kind == bindBuiltin
	addr int   // CODE address, valid when kind == bindWord
}

// SymbolTable maps word names to their compiled meaning: a builtin
// opcode or a user-defined word's CODE address. Scoping is a single
// flat namespace with shadowing: redefining a name simply overwrites its
// binding for everything compiled afterwards, matching the teacher's own
// label table in asm/parser.go (a later definition wins; existing
// references already compiled are unaffected).
type SymbolTable struct {
	names map[string]binding
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{names: make(map[string]binding)}
}

func (s *SymbolTable) bindBuiltin(name string, op vm.Op) {
	s.names[name] = binding{kind: bindBuiltin, op: op}
}

// DefineWord records a user-defined word's entry address, shadowing any
// earlier binding of the same name.
func (s *SymbolTable) DefineWord(name string, addr int) {
	s.names[name] = binding{kind: bindWord, addr: addr}
}

// Lookup reports a name's current binding, if any.
func (s *SymbolTable) Lookup(name string) (binding, bool) {
	b, ok := s.names[name]
	return b, ok
}

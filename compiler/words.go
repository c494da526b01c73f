package compiler

import "github.com/jhlagado/tacit/vm"

// registerBuiltins binds the conventional source names of the
// operand-less opcodes user code invokes directly; Exit, Abort, Mark and
// PackToMark get no word here, since only the compiler emits them. Words
// with a compile-time immediate operand (pack, elem, slot,
// reserve, local@, local!, local&) are not bound here: compileWord
// special-cases them directly since a SymbolTable binding carries no
// operand of its own.
func registerBuiltins(s *SymbolTable) {
	table := map[string]vm.Op{
		"dup": vm.OpDup, "drop": vm.OpDrop, "swap": vm.OpSwap, "over": vm.OpOver, "rot": vm.OpRot,

		"+": vm.OpAdd, "-": vm.OpSub, "*": vm.OpMul, "/": vm.OpDiv, "mod": vm.OpMod,
		"neg": vm.OpNeg, "abs": vm.OpAbs,

		"=": vm.OpEq, "<": vm.OpLt, ">": vm.OpGt, "<=": vm.OpLe, ">=": vm.OpGe,
		"and": vm.OpAnd, "or": vm.OpOr, "not": vm.OpNot,

		"eval": vm.OpEval, "main": vm.OpMain,

		"unpack": vm.OpUnpack, "length": vm.OpLength, "head": vm.OpHead, "tail": vm.OpTail,
		"concat": vm.OpConcat, "fetch": vm.OpFetch, "store": vm.OpStore,
		"gpush": vm.OpGpush, "rpush": vm.OpRpush,
	}
	for name, op := range table {
		s.bindBuiltin(name, op)
	}
}

// immediateOperandWords names the words that consume the *next* token as
// a compile-time immediate rather than a runtime argument, the same
// convention as ":" consuming the following token as the name it
// defines. Writing the operand after the word (`pack 3`, `elem 0`)
// keeps every immediate word's argument visually attached to it.
var immediateOperandWords = map[string]vm.Op{
	"pack": vm.OpPack, "elem": vm.OpElem, "slot": vm.OpSlot,
	"reserve": vm.OpReserve, "local@": vm.OpLocalGet, "local!": vm.OpLocalSet, "local&": vm.OpLocalAddr,
}

package compiler

import (
	"io"
	"text/scanner"

	"github.com/jhlagado/tacit/vm"
)

// Compiler compiles Tacit source into bytecode for a single vm.Instance,
// one pass, no intermediate AST — emitting directly into the Instance's
// CODE segment and STRING digest as it scans, the same single-pass
// style as the teacher's own asm.parser.
type Compiler struct {
	vm   *vm.Instance
	syms *SymbolTable
	tok  *Tokenizer
	errs ErrCompile

	ctrl   []int // patch-address stack for nested if/else/then
	bpCode int   // spec.md §4.4's BP_code register: start of the current unit
}

// New creates a Compiler targeting instance, with the standard builtin
// words already bound.
func New(instance *vm.Instance) *Compiler {
	s := NewSymbolTable()
	registerBuiltins(s)
	return &Compiler{vm: instance, syms: s}
}

// Symbols exposes the compiler's word table, e.g. so a host program can
// pre-register additional names before compiling.
func (c *Compiler) Symbols() *SymbolTable { return c.syms }

// CP returns the compiler's CP register (spec.md §4.4): "next byte
// offset in CODE segment to write" — simply the CODE segment's current
// length, since every Emit* call appends.
func (c *Compiler) CP() int { return len(c.vm.Mem.Code) }

// Reset implements spec.md §4.4's reset(preserve) compiler-register
// operation. preserve=true advances BP_code up to the current CP, the
// way compileColonDef's step 7 calls it once a definition's closing ';'
// has been compiled, so a later reset(false) can never rewind over it.
// preserve=false instead rewinds CP back to BP_code, discarding
// everything emitted since the last preserving reset — the behavior a
// REPL uses to reuse its line buffer between input lines. cmd/tacit's
// one-shot Compile never calls Reset(false) itself (there is no REPL
// line to discard), but the operation is still a required part of C4's
// contract and is exercised by compiler_test.go.
func (c *Compiler) Reset(preserve bool) {
	if preserve {
		c.bpCode = c.CP()
		return
	}
	c.vm.Mem.Code = c.vm.Mem.Code[:c.bpCode]
}

func (c *Compiler) error(pos scanner.Position, msg string) {
	c.errs = append(c.errs, CompileError{pos, msg})
}

func (c *Compiler) abort() bool { return len(c.errs) >= maxErrors }

// Compile reads all of r (named name for diagnostics) and compiles it
// into the Compiler's vm.Instance, appending an Op.Abort so that Run
// halts cleanly on falling off the end of the compiled program.
func (c *Compiler) Compile(name string, r io.Reader) error {
	c.tok = NewTokenizer(name, r)
	for {
		tok := c.tok.Next()
		if tok.Kind == KindEOF || c.abort() {
			break
		}
		c.compileToken(tok)
	}
	if _, err := c.vm.Mem.EmitByte(byte(vm.OpAbort)); err != nil {
		c.error(c.tok.Pos(), err.Error())
	}
	if len(c.errs) > 0 {
		return c.errs
	}
	return nil
}

func (c *Compiler) compileToken(tok Token) {
	switch tok.Kind {
	case KindNumber:
		c.emitLiteralNumber(tok.Num, tok.Pos)
	case KindString:
		c.emitLiteralString(tok.Text, tok.Pos)
	case KindWord:
		c.compileWord(tok)
	}
}

func (c *Compiler) compileWord(tok Token) {
	name := tok.Text
	switch name {
	case ":":
		c.compileColonDef(tok.Pos)
		return
	case ";":
		c.error(tok.Pos, "unexpected ';' outside a definition")
		return
	case "(":
		c.compileBlock(tok.Pos)
		return
	case ")":
		c.error(tok.Pos, "unexpected ')'")
		return
	case "`":
		c.compileListLiteral(tok.Pos)
		return
	case "nil":
		c.emitLiteralCell(vm.Nil, tok.Pos)
		return
	case "if":
		c.compileIf(tok.Pos)
		return
	case "else":
		c.compileElse(tok.Pos)
		return
	case "then":
		c.compileThen(tok.Pos)
		return
	}
	if op, ok := immediateOperandWords[name]; ok {
		c.compileImmediateOperand(name, op, tok.Pos)
		return
	}
	b, ok := c.syms.Lookup(name)
	if !ok {
		c.error(tok.Pos, "unknown word "+name)
		return
	}
	switch b.kind {
	case bindBuiltin:
		c.emitOp(b.op, tok.Pos)
	case bindWord:
		c.emitCall(b.addr, tok.Pos)
	}
}

func (c *Compiler) emitOp(op vm.Op, pos scanner.Position) {
	if _, err := c.vm.Mem.EmitByte(byte(op)); err != nil {
		c.error(pos, err.Error())
	}
}

func (c *Compiler) emitLiteralNumber(f float32, pos scanner.Position) {
	c.emitLiteralCell(vm.EncodeNumber(f), pos)
}

// emitLiteralCell emits Op.LiteralNumber followed by cell's raw bits.
// The opcode itself is agnostic to NUMBER vs. tagged content (it just
// pushes the four bytes it reads), so it also serves as the vehicle for
// the "nil" word's NIL sentinel literal.
func (c *Compiler) emitLiteralCell(cell vm.Cell, pos scanner.Position) {
	c.emitOp(vm.OpLiteralNumber, pos)
	if _, err := c.vm.Mem.EmitUint32(uint32(cell)); err != nil {
		c.error(pos, err.Error())
	}
}

func (c *Compiler) emitLiteralString(s string, pos scanner.Position) {
	idx, err := c.vm.Digest.Intern(s)
	if err != nil {
		c.error(pos, err.Error())
		return
	}
	c.emitOp(vm.OpLiteralString, pos)
	if _, err := c.vm.Mem.EmitUint16(uint16(idx)); err != nil {
		c.error(pos, err.Error())
	}
}

func (c *Compiler) emitCall(addr int, pos scanner.Position) {
	c.emitOp(vm.OpCall, pos)
	if _, err := c.vm.Mem.EmitUint16(uint16(addr)); err != nil {
		c.error(pos, err.Error())
	}
}

// compileImmediateOperand handles words whose argument is a compile-time
// immediate rather than a runtime stack value (pack, elem, slot, reserve,
// local@, local!, local&): the following token must be a number literal,
// consumed directly as the opcode's operand instead of being compiled as
// a pushed value.
func (c *Compiler) compileImmediateOperand(name string, op vm.Op, pos scanner.Position) {
	argTok := c.tok.Next()
	if argTok.Kind != KindNumber {
		c.error(pos, name+" expects a following numeric literal")
		return
	}
	n := int(argTok.Num)
	c.emitOp(op, pos)
	switch op {
	case vm.OpReserve, vm.OpLocalGet, vm.OpLocalSet, vm.OpLocalAddr:
		if _, err := c.vm.Mem.EmitByte(byte(n)); err != nil {
			c.error(pos, err.Error())
		}
	default: // OpPack, OpElem, OpSlot: 2-byte immediate
		if _, err := c.vm.Mem.EmitUint16(uint16(n)); err != nil {
			c.error(pos, err.Error())
		}
	}
}

// compileColonDef compiles ": name ... ;" into a skip-over branch
// followed by the definition body and a trailing Exit, registering the
// body's address (right after the branch) in the symbol table.
func (c *Compiler) compileColonDef(pos scanner.Position) {
	nameTok := c.tok.Next()
	if nameTok.Kind != KindWord {
		c.error(pos, "':' expects a following word name")
		return
	}
	c.emitOp(vm.OpBranch, pos)
	patchAt, err := c.vm.Mem.EmitUint16(0)
	if err != nil {
		c.error(pos, err.Error())
		return
	}
	c.syms.DefineWord(nameTok.Text, len(c.vm.Mem.Code))
	for {
		tok := c.tok.Next()
		if tok.Kind == KindEOF {
			c.error(nameTok.Pos, "unterminated definition: missing ';'")
			return
		}
		if tok.Kind == KindWord && tok.Text == ";" {
			break
		}
		c.compileToken(tok)
		if c.abort() {
			return
		}
	}
	c.emitOp(vm.OpExit, pos)
	if err := c.vm.Mem.PatchUint16(patchAt, uint16(len(c.vm.Mem.Code))); err != nil {
		c.error(pos, err.Error())
	}
	// spec.md §4.4 compile protocol step 7: preserve the definition just
	// emitted so a later reset(false) can never rewind over it.
	c.Reset(true)
}

// compileBlock compiles "( ... )" into a single Op.BranchCall whose
// operand is the address right after the block's trailing Exit: at
// runtime this pushes a CODE cell referencing the block's body (the
// address right after the BranchCall's own operand) and jumps past it,
// so the block's code is never executed unless something later Evals
// the pushed reference.
func (c *Compiler) compileBlock(pos scanner.Position) {
	c.emitOp(vm.OpBranchCall, pos)
	patchAt, err := c.vm.Mem.EmitUint16(0)
	if err != nil {
		c.error(pos, err.Error())
		return
	}
	for {
		tok := c.tok.Next()
		if tok.Kind == KindEOF {
			c.error(pos, "unterminated code block: missing ')'")
			return
		}
		if tok.Kind == KindWord && tok.Text == ")" {
			break
		}
		c.compileToken(tok)
		if c.abort() {
			return
		}
	}
	c.emitOp(vm.OpExit, pos)
	if err := c.vm.Mem.PatchUint16(patchAt, uint16(len(c.vm.Mem.Code))); err != nil {
		c.error(pos, err.Error())
	}
}

// compileListLiteral compiles the backtick combinator, this
// implementation's resolution of spec.md's "(" / list-literal syntax
// overlap (see DESIGN.md): `` `(...) `` marks the stack, compiles the
// bracketed block exactly as compileBlock would, then immediately Evals
// it and packs everything it pushed into a LIST.
func (c *Compiler) compileListLiteral(pos scanner.Position) {
	open := c.tok.Next()
	if !(open.Kind == KindWord && open.Text == "(") {
		c.error(pos, "'`' expects a following '(' code block")
		return
	}
	c.emitOp(vm.OpMark, pos)
	c.compileBlock(open.Pos)
	c.emitOp(vm.OpEval, pos)
	c.emitOp(vm.OpPackToMark, pos)
}

func (c *Compiler) compileIf(pos scanner.Position) {
	c.emitOp(vm.OpBranchZero, pos)
	patchAt, err := c.vm.Mem.EmitUint16(0)
	if err != nil {
		c.error(pos, err.Error())
		return
	}
	c.ctrl = append(c.ctrl, patchAt)
}

func (c *Compiler) compileElse(pos scanner.Position) {
	if len(c.ctrl) == 0 {
		c.error(pos, "'else' without a matching 'if'")
		return
	}
	ifPatch := c.ctrl[len(c.ctrl)-1]
	c.emitOp(vm.OpBranch, pos)
	elsePatch, err := c.vm.Mem.EmitUint16(0)
	if err != nil {
		c.error(pos, err.Error())
		return
	}
	if err := c.vm.Mem.PatchUint16(ifPatch, uint16(len(c.vm.Mem.Code))); err != nil {
		c.error(pos, err.Error())
	}
	c.ctrl[len(c.ctrl)-1] = elsePatch
}

func (c *Compiler) compileThen(pos scanner.Position) {
	if len(c.ctrl) == 0 {
		c.error(pos, "'then' without a matching 'if'")
		return
	}
	patch := c.ctrl[len(c.ctrl)-1]
	c.ctrl = c.ctrl[:len(c.ctrl)-1]
	if err := c.vm.Mem.PatchUint16(patch, uint16(len(c.vm.Mem.Code))); err != nil {
		c.error(pos, err.Error())
	}
}

// Dump returns a disassembly of the compiler's target Instance, grounded
// on the teacher's own asm.Disassemble/vm.Image.Disassemble pairing.
func (c *Compiler) Dump() string { return c.vm.Disassemble() }

package compiler

import (
	"strings"
	"testing"

	"github.com/jhlagado/tacit/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// This case exercises stretchr/testify rather than the plain testing.T
// style the vm package's own tests use: a symbol table binding is a
// small struct with several fields to compare at once, the kind of
// structural assertion testify's require/assert pair is built for.
func TestSymbolTableShadowing(t *testing.T) {
	s := NewSymbolTable()
	s.bindBuiltin("dup", vm.OpDup)
	s.DefineWord("greet", 100)
	s.DefineWord("greet", 200)

	b, ok := s.Lookup("greet")
	require.True(t, ok, "greet should resolve after being defined")
	assert.Equal(t, bindWord, b.kind)
	assert.Equal(t, 200, b.addr, "a later definition should shadow an earlier one")

	b, ok = s.Lookup("dup")
	require.True(t, ok, "dup should resolve as a builtin")
	assert.Equal(t, bindBuiltin, b.kind)
	assert.Equal(t, vm.OpDup, b.op)

	_, ok = s.Lookup("nope")
	assert.False(t, ok, "an undefined name should not resolve")
}

func TestCompileReportsMultiplePositionedErrors(t *testing.T) {
	i, err := vm.New()
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	c := New(i)
	err = c.Compile("test", strings.NewReader("nope1 nope2"))
	if err == nil {
		t.Fatalf("expected compile errors")
	}
	errs, ok := err.(ErrCompile)
	if !ok {
		t.Fatalf("error type = %T, want ErrCompile", err)
	}
	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
}

func TestCompileElseWithoutIfIsAnError(t *testing.T) {
	i, err := vm.New()
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	c := New(i)
	if err := c.Compile("test", strings.NewReader("else")); err == nil {
		t.Fatalf("expected an error for 'else' without a matching 'if'")
	}
}

func TestCompileThenWithoutIfIsAnError(t *testing.T) {
	i, err := vm.New()
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	c := New(i)
	if err := c.Compile("test", strings.NewReader("then")); err == nil {
		t.Fatalf("expected an error for 'then' without a matching 'if'")
	}
}

func TestCompileImmediateOperandRequiresNumber(t *testing.T) {
	i, err := vm.New()
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	c := New(i)
	if err := c.Compile("test", strings.NewReader("pack dup")); err == nil {
		t.Fatalf("expected an error: 'pack' must be followed by a numeric literal")
	}
}

// TestColonDefPreservesAcrossReset locks spec.md §4.4's compile protocol
// step 7: once a colon definition compiles, BP_code has advanced past
// it, so a reset(false) — here called directly, since cmd/tacit's
// one-shot Compile never issues one itself — cannot rewind the CODE
// segment back over the definition body.
func TestColonDefPreservesAcrossReset(t *testing.T) {
	i, err := vm.New()
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	c := New(i)
	if err := c.Compile("test", strings.NewReader(": double dup + ;")); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	// Compile's own end-of-stream marker (a trailing Op.Abort, one byte)
	// is emitted after compileColonDef's Reset(true), so it is the only
	// thing a subsequent Reset(false) may discard; the definition itself
	// must survive.
	cpAfterCompile := c.CP()
	c.Reset(false)
	if want := cpAfterCompile - 1; c.CP() != want {
		t.Fatalf("Reset(false) rewound past a preserved definition: CP = %d, want %d", c.CP(), want)
	}
}

// TestResetDiscardsUnpreservedCode exercises the other half of reset:
// without an intervening Reset(true), reset(false) rewinds CP back to
// BP_code, discarding whatever was compiled since.
func TestResetDiscardsUnpreservedCode(t *testing.T) {
	i, err := vm.New()
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	c := New(i)
	cpBefore := c.CP()
	if err := c.Compile("test", strings.NewReader("1 2 +")); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if c.CP() == cpBefore {
		t.Fatalf("expected Compile to have emitted bytecode")
	}
	c.Reset(false)
	if c.CP() != cpBefore {
		t.Fatalf("Reset(false) = CP %d, want %d (rewound to BP_code)", c.CP(), cpBefore)
	}
}

func TestDumpProducesNonEmptyDisassembly(t *testing.T) {
	i, err := vm.New()
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	c := New(i)
	if err := c.Compile("test", strings.NewReader("1 2 +")); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if out := c.Dump(); out == "" {
		t.Fatalf("Dump() returned an empty string")
	}
}

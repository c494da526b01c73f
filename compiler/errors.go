package compiler

import (
	"fmt"
	"strings"
	"text/scanner"
)

// maxErrors bounds how many parse errors a single Compile accumulates
// before giving up, mirroring asm.ErrAsm's own cap in the teacher.
const maxErrors = 10

// ErrCompile collects one or more positioned compile errors, in the
// style of the teacher's asm.ErrAsm.
type ErrCompile []CompileError

// CompileError is a single positioned diagnostic.
type CompileError struct {
	Pos scanner.Position
	Msg string
}

func (e ErrCompile) Error() string {
	lines := make([]string, 0, len(e))
	for _, err := range e {
		lines = append(lines, fmt.Sprintf("%s: %s", err.Pos, err.Msg))
	}
	return strings.Join(lines, "\n")
}

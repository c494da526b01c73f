// Package compiler compiles Tacit source text into bytecode for a
// vm.Instance. It is the only intended producer of Tacit bytecode;
// package vm itself never parses source.
//
// The front end (tokenizer.go) is a text/scanner-based word splitter in
// the same spirit as the teacher's own assembler (asm/parser.go):
// identifiers are any run of non-whitespace, non-delimiter runes, and a
// token that parses as a number is reinterpreted as one after the fact
// rather than being recognized by a dedicated scanner mode.
//
// The compiler (compiler.go, words.go) is a single-pass, Forth-style
// compiler: most words compile directly to one opcode, user-defined
// words compile to a call, and a handful of words (":", ";", "(", ")",
// "if", "then", "else", and the backtick list-literal combinator) are
// immediate — they run compiler logic instead of emitting a call.
package compiler

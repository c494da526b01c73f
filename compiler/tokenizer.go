package compiler

import (
	"io"
	"strconv"
	"text/scanner"
	"unicode"
)

// Kind classifies a token coming out of the tokenizer.
type Kind int

const (
	KindEOF Kind = iota
	KindNumber
	KindString
	KindWord
)

// Token is one lexical unit of Tacit source.
type Token struct {
	Kind Kind
	Text string  // original text (word name, or string contents)
	Num  float32 // valid when Kind == KindNumber
	Pos  scanner.Position
}

// reserved runes always stand alone as single-character words, never
// glued onto neighbouring identifier runes: they are the five bracketing
// / definition punctuation marks the compiler treats specially.
const reserved = ":;()`"

// Tokenizer splits Tacit source into Tokens. Built directly on
// text/scanner the way the teacher's own asm/parser.go is: identifiers
// are recognized by a custom IsIdentRune predicate rather than the
// scanner's built-in number/ident split, and a token's "is this actually
// a number" question is answered afterwards with strconv, exactly as
// parser.go's Parse does for its own Ident tokens.
type Tokenizer struct {
	s Scanner
}

// Scanner is the subset of text/scanner.Scanner the tokenizer drives;
// aliased so tests can see the concrete type without importing
// text/scanner directly.
type Scanner = scanner.Scanner

// NewTokenizer prepares a Tokenizer reading from r, reporting name as
// the source file for error positions.
func NewTokenizer(name string, r io.Reader) *Tokenizer {
	t := &Tokenizer{}
	t.s.Init(r)
	t.s.Filename = name
	t.s.Mode = scanner.ScanIdents | scanner.ScanStrings
	t.s.IsIdentRune = isWordRune
	return t
}

func isWordRune(ch rune, i int) bool {
	if ch == scanner.EOF || unicode.IsSpace(ch) {
		return false
	}
	if i == 0 && ch == '"' {
		return false // let the scanner's string mode take a leading quote
	}
	for _, r := range reserved {
		if ch == r {
			return false
		}
	}
	return true
}

// Next returns the next token, or a KindEOF token at end of input.
func (t *Tokenizer) Next() Token {
	tok := t.s.Scan()
	pos := t.s.Position
	if !pos.IsValid() {
		pos = t.s.Pos()
	}
	switch tok {
	case scanner.EOF:
		return Token{Kind: KindEOF, Pos: pos}
	case scanner.String:
		text := t.s.TokenText()
		unquoted, err := strconv.Unquote(text)
		if err != nil {
			unquoted = text
		}
		return Token{Kind: KindString, Text: unquoted, Pos: pos}
	case scanner.Ident:
		text := t.s.TokenText()
		if f, err := strconv.ParseFloat(text, 32); err == nil {
			return Token{Kind: KindNumber, Text: text, Num: float32(f), Pos: pos}
		}
		return Token{Kind: KindWord, Text: text, Pos: pos}
	default:
		// A lone reserved rune (':', ';', '(', ')', '`') arrives as its
		// own rune token since it is excluded from IsIdentRune.
		return Token{Kind: KindWord, Text: string(tok), Pos: pos}
	}
}

// Pos returns the tokenizer's current scanner position, for error
// reporting between calls to Next.
func (t *Tokenizer) Pos() scanner.Position { return t.s.Position }

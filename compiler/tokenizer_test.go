package compiler

import (
	"strings"
	"testing"
)

func collectTokens(t *testing.T, src string) []Token {
	t.Helper()
	tok := NewTokenizer("test", strings.NewReader(src))
	var toks []Token
	for {
		tk := tok.Next()
		if tk.Kind == KindEOF {
			break
		}
		toks = append(toks, tk)
	}
	return toks
}

func TestTokenizerNumbersAndWords(t *testing.T) {
	toks := collectTokens(t, "1 2 + dup")
	want := []struct {
		kind Kind
		text string
		num  float32
	}{
		{KindNumber, "1", 1},
		{KindNumber, "2", 2},
		{KindWord, "+", 0},
		{KindWord, "dup", 0},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(want), toks)
	}
	for idx, w := range want {
		got := toks[idx]
		if got.Kind != w.kind {
			t.Fatalf("token %d: kind = %v, want %v", idx, got.Kind, w.kind)
		}
		if w.kind == KindNumber && got.Num != w.num {
			t.Fatalf("token %d: num = %v, want %v", idx, got.Num, w.num)
		}
		if w.kind == KindWord && got.Text != w.text {
			t.Fatalf("token %d: text = %q, want %q", idx, got.Text, w.text)
		}
	}
}

func TestTokenizerReservedRunesStandAlone(t *testing.T) {
	toks := collectTokens(t, ": sq(dup *);")
	var words []string
	for _, tk := range toks {
		words = append(words, tk.Text)
	}
	want := []string{":", "sq", "(", "dup", "*", ")", ";"}
	if len(words) != len(want) {
		t.Fatalf("got %v, want %v", words, want)
	}
	for idx, w := range want {
		if words[idx] != w {
			t.Fatalf("token %d = %q, want %q (full: %v)", idx, words[idx], w, words)
		}
	}
}

func TestTokenizerString(t *testing.T) {
	toks := collectTokens(t, `"hello world"`)
	if len(toks) != 1 {
		t.Fatalf("got %d tokens, want 1: %+v", len(toks), toks)
	}
	if toks[0].Kind != KindString {
		t.Fatalf("kind = %v, want KindString", toks[0].Kind)
	}
	if toks[0].Text != "hello world" {
		t.Fatalf("text = %q, want %q", toks[0].Text, "hello world")
	}
}

func TestTokenizerNegativeNumber(t *testing.T) {
	toks := collectTokens(t, "-3.5 +")
	if len(toks) != 2 {
		t.Fatalf("got %d tokens, want 2: %+v", len(toks), toks)
	}
	if toks[0].Kind != KindNumber || toks[0].Num != -3.5 {
		t.Fatalf("token 0 = %+v, want number -3.5", toks[0])
	}
}

package dsl

import (
	"errors"
	"testing"
)

func collectTokens(t *testing.T, source string) []Token {
	t.Helper()
	lex := NewLexer("test.chariot", source)
	var toks []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		if tok.Kind == TokEOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestLexerIdentifiersAndSymbols(t *testing.T) {
	toks := collectTokens(t, "target/zlib-1.3+final")
	if len(toks) != 3 {
		t.Fatalf("expected 3 tokens, got %d: %+v", len(toks), toks)
	}
	if toks[0].Kind != TokIdentifier || toks[0].Text != "target" {
		t.Fatalf("unexpected first token: %+v", toks[0])
	}
	if toks[1].Kind != TokSymbol || toks[1].Text != "/" {
		t.Fatalf("unexpected second token: %+v", toks[1])
	}
	if toks[2].Text != "zlib-1.3+final" {
		t.Fatalf("unexpected third token: %+v", toks[2])
	}
}

func TestLexerStringAndComments(t *testing.T) {
	toks := collectTokens(t, `"https://example.com/a.tar.gz" // trailing comment
	/* block */ "next"`)
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %+v", len(toks), toks)
	}
	if toks[0].Text != "https://example.com/a.tar.gz" {
		t.Fatalf("unexpected string: %q", toks[0].Text)
	}
	if toks[1].Text != "next" {
		t.Fatalf("unexpected string: %q", toks[1].Text)
	}
}

func TestLexerUnterminatedStringFails(t *testing.T) {
	lex := NewLexer("test.chariot", `"unterminated`)
	if _, err := lex.Next(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestLexerNewlineInStringFails(t *testing.T) {
	lex := NewLexer("test.chariot", "\"a\nb\"")
	if _, err := lex.Next(); !errors.Is(err, ErrUnexpectedSymbol) {
		t.Fatalf("expected ErrUnexpectedSymbol, got %v", err)
	}
}

func TestLexerDirective(t *testing.T) {
	toks := collectTokens(t, `@import "./lib.chariot"`)
	if len(toks) != 2 || toks[0].Kind != TokDirective || toks[0].Text != "import" {
		t.Fatalf("unexpected tokens: %+v", toks)
	}
}

func TestNextCodeBlockScansBalancedBraces(t *testing.T) {
	lex := NewLexer("test.chariot", `{ echo "{nested}" ; if [ 1 ]; then echo hi; fi }`)
	tok, err := lex.NextCodeBlock()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Kind != TokCodeBlock {
		t.Fatalf("expected TokCodeBlock, got %v", tok.Kind)
	}
	want := `echo "{nested}" ; if [ 1 ]; then echo hi; fi`
	if tok.Text != want {
		t.Fatalf("got %q, want %q", tok.Text, want)
	}
}

func TestNextCodeBlockUnterminatedFails(t *testing.T) {
	lex := NewLexer("test.chariot", `{ echo hi`)
	if _, err := lex.NextCodeBlock(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

package dsl

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

// Position locates a token within a source file, for error reporting
// (SPEC_FULL.md §14's "surface location without changing the no-recovery
// contract" decision).
type Position struct {
	File string
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// TokenKind classifies a [Token].
type TokenKind int

const (
	TokIdentifier TokenKind = iota
	TokSymbol
	TokString
	TokDirective
	TokCodeBlock
	TokEOF
)

// Token is one lexical unit of the recipe DSL.
type Token struct {
	Kind TokenKind
	Text string // identifier/string/directive/code-block text, or the symbol itself
	Pos  Position
}

func (t Token) String() string {
	switch t.Kind {
	case TokEOF:
		return "end of file"
	case TokSymbol:
		return fmt.Sprintf("symbol `%s`", t.Text)
	case TokIdentifier:
		return fmt.Sprintf("identifier `%s`", t.Text)
	case TokString:
		return fmt.Sprintf("string %q", t.Text)
	case TokDirective:
		return fmt.Sprintf("directive `@%s`", t.Text)
	case TokCodeBlock:
		return "code block"
	default:
		return "token"
	}
}

// ErrUnexpectedSymbol and ErrUnexpectedEOF are the two failure modes of the
// lexer, grounded on original_source/src/config/lexer.rs's LexerError enum.
var (
	ErrUnexpectedSymbol = zerr.New("unexpected symbol")
	ErrUnexpectedEOF    = zerr.New("unexpected end of file")
)

// bareSymbols are the single-character structural tokens of the DSL. `/`
// separates a recipe's namespace from its name (`target/zlib`). `*` is
// the runtime-dependency modifier (spec.md §4.1). `%` and `!` are
// tokenized, but deliberately unsupported by the parser's dependency
// grammar (SPEC_FULL.md §13) — lexing them keeps a `.chariot` file that
// uses them failing with a clear parse error ([ErrUnsupportedModifier] in
// a dependency list, [ErrUnexpectedToken] elsewhere) rather than a garbled
// identifier scan. A lone `/` only reaches this switch after skipTrivia
// has already ruled out `//` and `/*` comment openers.
const bareSymbols = "{}:[],*%!/"

// Lexer is a pull-based scanner over one DSL file's source text.
//
// Unlike a conventional lexer, Lexer does not tokenize a file in one
// eager pass: the recipe DSL reuses `{`...`}` for two different
// constructs — the recipe field object and an opaque code-block value —
// and only the parser, from its position in the grammar, knows which one
// a given `{` begins. [Lexer.Next] produces ordinary structural tokens;
// [Lexer.NextCodeBlock] is called by the parser instead, exactly when the
// grammar expects a code-block value, and scans a depth-balanced `{...}`
// body as opaque text rather than descending into it.
type Lexer struct {
	file string
	src  []rune
	pos  int
	line int
	col  int
}

// NewLexer creates a [Lexer] over source, named file for error reporting.
func NewLexer(file, source string) *Lexer {
	return &Lexer{file: file, src: []rune(source), line: 1, col: 1}
}

// Next scans and returns the next structural token: an identifier, a
// quoted string, a directive, or one of [bareSymbols]. Returns a TokEOF
// token at end of input.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}

	if l.pos >= len(l.src) {
		return Token{Kind: TokEOF, Pos: l.at()}, nil
	}

	ch := l.peek()
	switch {
	case strings.ContainsRune(bareSymbols, ch):
		pos := l.at()
		l.advance()
		return Token{Kind: TokSymbol, Text: string(ch), Pos: pos}, nil

	case isAlpha(ch):
		return l.lexIdentifier()

	case ch == '"':
		return l.lexString()

	case ch == '@':
		return l.lexDirective()

	default:
		return Token{}, l.errorf(ErrUnexpectedSymbol, "symbol `%c`", ch)
	}
}

// NextCodeBlock scans a depth-balanced `{ ... }` body as opaque text,
// whitespace trimmed at both ends. The current position (after skipping
// trivia) must be `{`; tracking depth rather than matching the first `}`
// is required because script bodies routinely contain their own braces
// (e.g. shell `${var}` or an embedded `for (;;) { ... }` snippet).
func (l *Lexer) NextCodeBlock() (Token, error) {
	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}

	start := l.at()
	if l.pos >= len(l.src) || l.peek() != '{' {
		return Token{}, l.errorf(ErrUnexpectedSymbol, "expected code block")
	}

	depth := 0
	bodyStart := -1
	bodyEnd := -1

	for l.pos < len(l.src) {
		ch := l.peek()
		switch ch {
		case '{':
			depth++
			if depth == 1 {
				bodyStart = l.pos + 1
			}
		case '}':
			depth--
			if depth == 0 {
				bodyEnd = l.pos
				l.advance()
				text := strings.TrimSpace(string(l.src[bodyStart:bodyEnd]))
				return Token{Kind: TokCodeBlock, Text: text, Pos: start}, nil
			}
		}
		l.advance()
	}

	return Token{}, l.errorAt(ErrUnexpectedEOF, start, "unterminated code block")
}

// Peek reports the next significant (post-trivia) rune without consuming
// it, and whether one exists. The parser uses this to decide whether a
// value position should be read via [Lexer.Next] or [Lexer.NextCodeBlock].
func (l *Lexer) Peek() (rune, bool, error) {
	if err := l.skipTrivia(); err != nil {
		return 0, false, err
	}
	if l.pos >= len(l.src) {
		return 0, false, nil
	}
	return l.peek(), true, nil
}

func (l *Lexer) skipTrivia() error {
	for l.pos < len(l.src) {
		ch := l.peek()
		switch {
		case isSpace(ch):
			l.advance()
		case ch == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*':
			start := l.at()
			l.advance()
			l.advance()
			closed := false
			for l.pos < len(l.src) {
				if l.peek() == '*' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return l.errorAt(ErrUnexpectedEOF, start, "unterminated comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) lexIdentifier() (Token, error) {
	pos := l.at()
	var sb strings.Builder
	for l.pos < len(l.src) && isIdentTail(l.peek()) {
		sb.WriteRune(l.peek())
		l.advance()
	}
	return Token{Kind: TokIdentifier, Text: sb.String(), Pos: pos}, nil
}

func (l *Lexer) lexString() (Token, error) {
	pos := l.at()
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, l.errorAt(ErrUnexpectedEOF, pos, "unterminated string")
		}
		ch := l.peek()
		if ch == '"' {
			l.advance()
			break
		}
		if ch == '\n' {
			return Token{}, l.errorAt(ErrUnexpectedSymbol, l.at(), "newline in string literal")
		}
		sb.WriteRune(ch)
		l.advance()
	}
	return Token{Kind: TokString, Text: sb.String(), Pos: pos}, nil
}

func (l *Lexer) lexDirective() (Token, error) {
	pos := l.at()
	l.advance() // '@'
	var sb strings.Builder
	for l.pos < len(l.src) && (isAlnum(l.peek()) || l.peek() == '_' || l.peek() == '-') {
		sb.WriteRune(l.peek())
		l.advance()
	}
	if sb.Len() == 0 {
		return Token{}, l.errorAt(ErrUnexpectedSymbol, pos, "directive with no name")
	}
	return Token{Kind: TokDirective, Text: sb.String(), Pos: pos}, nil
}

func (l *Lexer) peek() rune { return l.src[l.pos] }

func (l *Lexer) advance() {
	if l.src[l.pos] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.pos++
}

func (l *Lexer) at() Position { return Position{File: l.file, Line: l.line, Col: l.col} }

func (l *Lexer) errorAt(sentinel error, pos Position, msg string) error {
	return zerr.With(zerr.Wrap(sentinel, msg), "position", pos.String())
}

func (l *Lexer) errorf(sentinel error, format string, args ...any) error {
	return l.errorAt(sentinel, l.at(), fmt.Sprintf(format, args...))
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\n' || r == '\r' }
func isAlpha(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
func isAlnum(r rune) bool { return isAlpha(r) || isDigit(r) }
func isIdentTail(r rune) bool {
	return isAlnum(r) || r == '_' || r == '-' || r == '+' || r == '.'
}

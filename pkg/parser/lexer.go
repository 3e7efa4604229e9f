package parser

import (
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/gometapath/pkg/types"
)

const eof = -1

// Lexer converts a Metapath expression into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
//
// Metapath has no reserved words: keywords are returned as TokenName and
// recognized by the parser from their position.
type Lexer struct {
	input   string // Input string being scanned
	length  int    // Length of input string
	start   int    // Start position of current token
	current int    // Current position in input
	width   int    // Width of last rune read
	err     error  // First error encountered
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	// Check if skipWhitespace encountered an error (e.g., unclosed comment)
	if l.err != nil {
		return l.error("unclosed comment")
	}

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	// ".5" is a number, "." and ".." are symbols
	if ch == '.' && l.peekIs(isDigit) {
		l.backup()
		return l.scanNumber()
	}

	// "*:name" is a wildcard
	if ch == '*' && l.peekRune() == ':' && l.peekAt(1, isNameStart) {
		l.nextRune()
		l.scanNCName()
		return l.newToken(TokenLocalWildcard)
	}

	// Check for two-character symbols first (e.g., !=, <=, ::)
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	// Check for single-character symbols
	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	// String literals (single or double quoted)
	if ch == '"' || ch == '\'' {
		l.ignore()
		return l.scanString(ch)
	}

	// Number literals
	if isDigit(ch) {
		l.backup()
		return l.scanNumber()
	}

	if ch == '$' {
		l.ignore()
		l.skipWhitespace()
		if !l.peekIs(isNameStart) {
			return l.error("expected a variable name after '$'")
		}
		t := l.scanName()
		if t.Type != TokenName {
			return l.error("invalid variable name")
		}
		t.Type = TokenVariable
		return t
	}

	if isNameStart(ch) {
		l.backup()
		return l.scanName()
	}

	return l.error("unexpected character '" + string(ch) + "'")
}

// Error returns the first error encountered during lexing, if any.
func (l *Lexer) Error() error {
	return l.err
}

// scanString reads a string literal from the current position.
// The opening quote has already been consumed. A doubled quote stands for
// a literal quote; the token value keeps it doubled.
func (l *Lexer) scanString(quote rune) Token {
	for {
		switch l.nextRune() {
		case quote:
			if l.peekRune() == quote {
				l.nextRune()
				continue
			}
			// The value excludes the closing quote just read.
			t := Token{
				Type:     TokenString,
				Value:    l.input[l.start : l.current-utf8.RuneLen(quote)],
				Position: l.start,
			}
			l.width = 0
			l.start = l.current
			return t
		case eof:
			return l.error("unterminated string literal")
		}
	}
}

// scanNumber reads a numeric literal: digits with an optional fraction is
// an integer or decimal, and an exponent makes it a double.
func (l *Lexer) scanNumber() Token {
	tt := TokenInteger
	l.acceptAll(isDigit)
	if l.peekRune() == '.' && !l.peekAt(1, func(r rune) bool { return r == '.' }) {
		l.nextRune()
		l.acceptAll(isDigit)
		tt = TokenDecimal
	}
	if l.acceptRunes2('e', 'E') {
		l.acceptRunes2('+', '-')
		if !l.acceptAll(isDigit) {
			return l.error("invalid exponent in numeric literal")
		}
		tt = TokenDouble
	}
	if l.peekIs(isNameStart) {
		return l.error("numeric literal followed by a name character")
	}
	return l.newToken(tt)
}

// scanName reads an NCName, a prefixed name, a braced URI name or one of
// the prefix:* and Q{uri}* wildcards.
func (l *Lexer) scanName() Token {
	l.scanNCName()

	// Q{uri}local or Q{uri}*
	if l.input[l.start:l.current] == "Q" && l.acceptRune('{') {
		for {
			switch l.nextRune() {
			case '}':
				if l.acceptRune('*') {
					return l.newToken(TokenURIWildcard)
				}
				if !l.peekIs(isNameStart) {
					return l.error("expected a local name after braced URI")
				}
				l.scanNCName()
				return l.newToken(TokenName)
			case '{', eof:
				return l.error("unterminated braced URI")
			}
		}
	}

	// prefix:local or prefix:*, but not the axis separator "::"
	if l.peekRune() == ':' {
		switch {
		case l.peekAt(1, isNameStart):
			l.nextRune()
			l.scanNCName()
		case l.peekAt(1, func(r rune) bool { return r == '*' }):
			l.nextRune()
			l.nextRune()
			return l.newToken(TokenPrefixWildcard)
		}
	}
	return l.newToken(TokenName)
}

func (l *Lexer) scanNCName() {
	l.accept(isNameStart)
	l.acceptAll(isNameChar)
}

// Helper methods

func (l *Lexer) eof() Token {
	return Token{
		Type:     TokenEOF,
		Position: l.current,
	}
}

func (l *Lexer) error(message string) Token {
	t := l.newToken(TokenError)
	if l.err == nil {
		l.err = types.NewError(types.ErrInvalidPathGrammar, message).
			WithPosition(t.Position).
			WithToken(t.Value)
	}
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) peekRune() rune {
	if l.current >= l.length {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.current:])
	return r
}

func (l *Lexer) peekIs(isValid func(rune) bool) bool {
	return isValid(l.peekRune())
}

// peekAt tests the rune n runes past the current position.
func (l *Lexer) peekAt(n int, isValid func(rune) bool) bool {
	pos := l.current
	for i := 0; i <= n; i++ {
		if pos >= l.length {
			return false
		}
		r, w := utf8.DecodeRuneInString(l.input[pos:])
		if i == n {
			return isValid(r)
		}
		pos += w
	}
	return false
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

// skipWhitespace skips whitespace and (: nested :) comments.
func (l *Lexer) skipWhitespace() {
	for {
		l.acceptAll(isWhitespace)
		l.ignore()

		if l.peekRune() != '(' || !l.peekAt(1, func(r rune) bool { return r == ':' }) {
			return
		}
		l.nextRune()
		l.nextRune()
		depth := 1
		for depth > 0 {
			switch l.nextRune() {
			case eof:
				l.err = types.NewError(types.ErrInvalidPathGrammar, "unclosed comment").WithPosition(l.start)
				return
			case '(':
				if l.acceptRune(':') {
					depth++
				}
			case ':':
				if l.acceptRune(')') {
					depth--
				}
			}
		}
		l.ignore()
	}
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return isNameStart(r) || isDigit(r) || r == '-' || r == '.' || unicode.Is(unicode.Mn, r)
}

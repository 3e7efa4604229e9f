package parser

import (
	"testing"

	"github.com/sandrolain/gometapath/pkg/types"
)

type lexerTestCase struct {
	name      string
	input     string
	expected  []Token
	expectErr bool
}

func TestLexerWhitespaceAndComments(t *testing.T) {
	tests := []lexerTestCase{
		{
			name:     "leading whitespace",
			input:    "   abc",
			expected: []Token{{Type: TokenName, Value: "abc", Position: 3}},
		},
		{
			name:     "mixed whitespace",
			input:    " \t\n\rabc",
			expected: []Token{{Type: TokenName, Value: "abc", Position: 4}},
		},
		{
			name:     "comment",
			input:    "(: note :) abc",
			expected: []Token{{Type: TokenName, Value: "abc", Position: 11}},
		},
		{
			name:     "nested comment",
			input:    "(: a (: b :) c :)1",
			expected: []Token{{Type: TokenInteger, Value: "1", Position: 17}},
		},
		{
			name:      "unclosed comment",
			input:     "(: never closed",
			expectErr: true,
		},
	}

	runLexerTests(t, tests)
}

func TestLexerLiterals(t *testing.T) {
	tests := []lexerTestCase{
		{
			name:     "double quoted string",
			input:    `"hello"`,
			expected: []Token{{Type: TokenString, Value: "hello", Position: 1}},
		},
		{
			name:     "doubled quote stays raw",
			input:    `'it''s'`,
			expected: []Token{{Type: TokenString, Value: "it''s", Position: 1}},
		},
		{
			name:     "single quoted string at end of input",
			input:    `'x'`,
			expected: []Token{{Type: TokenString, Value: "x", Position: 1}},
		},
		{
			name:     "empty string",
			input:    `''`,
			expected: []Token{{Type: TokenString, Value: "", Position: 1}},
		},
		{
			name:  "string before operator",
			input: `'a' = "b"`,
			expected: []Token{
				{Type: TokenString, Value: "a", Position: 1},
				{Type: TokenEqual, Value: "=", Position: 4},
				{Type: TokenString, Value: "b", Position: 7},
			},
		},
		{
			name:     "integer",
			input:    "42",
			expected: []Token{{Type: TokenInteger, Value: "42", Position: 0}},
		},
		{
			name:     "decimal",
			input:    "3.14",
			expected: []Token{{Type: TokenDecimal, Value: "3.14", Position: 0}},
		},
		{
			name:     "leading dot decimal",
			input:    ".5",
			expected: []Token{{Type: TokenDecimal, Value: ".5", Position: 0}},
		},
		{
			name:     "double",
			input:    "1.5e-3",
			expected: []Token{{Type: TokenDouble, Value: "1.5e-3", Position: 0}},
		},
		{
			name:      "unterminated string",
			input:     `"abc`,
			expectErr: true,
		},
		{
			name:      "bad exponent",
			input:     "1e+",
			expectErr: true,
		},
	}

	runLexerTests(t, tests)
}

func TestLexerNames(t *testing.T) {
	tests := []lexerTestCase{
		{
			name:     "hyphenated name",
			input:    "document-node",
			expected: []Token{{Type: TokenName, Value: "document-node", Position: 0}},
		},
		{
			name:     "prefixed name",
			input:    "fn:count",
			expected: []Token{{Type: TokenName, Value: "fn:count", Position: 0}},
		},
		{
			name:     "braced URI name",
			input:    "Q{http://example.com/ns}title",
			expected: []Token{{Type: TokenName, Value: "Q{http://example.com/ns}title", Position: 0}},
		},
		{
			name:  "axis is not a prefix",
			input: "child::a",
			expected: []Token{
				{Type: TokenName, Value: "child", Position: 0},
				{Type: TokenAxis, Value: "::", Position: 5},
				{Type: TokenName, Value: "a", Position: 7},
			},
		},
		{
			name:     "variable",
			input:    "$my-var",
			expected: []Token{{Type: TokenVariable, Value: "my-var", Position: 1}},
		},
		{
			name:     "prefix wildcard",
			input:    "oscal:*",
			expected: []Token{{Type: TokenPrefixWildcard, Value: "oscal:*", Position: 0}},
		},
		{
			name:     "local wildcard",
			input:    "*:title",
			expected: []Token{{Type: TokenLocalWildcard, Value: "*:title", Position: 0}},
		},
		{
			name:     "URI wildcard",
			input:    "Q{urn:x}*",
			expected: []Token{{Type: TokenURIWildcard, Value: "Q{urn:x}*", Position: 0}},
		},
		{
			name:      "dangling dollar",
			input:     "$ 1",
			expectErr: true,
		},
	}

	runLexerTests(t, tests)
}

func TestLexerSymbols(t *testing.T) {
	tests := []lexerTestCase{
		{
			name:  "comparison operators",
			input: "!= <= >= =",
			expected: []Token{
				{Type: TokenNotEqual, Value: "!=", Position: 0},
				{Type: TokenLessEqual, Value: "<=", Position: 3},
				{Type: TokenGreaterEqual, Value: ">=", Position: 6},
				{Type: TokenEqual, Value: "=", Position: 9},
			},
		},
		{
			name:  "path and map operators",
			input: "a//b!c",
			expected: []Token{
				{Type: TokenName, Value: "a", Position: 0},
				{Type: TokenSlashSlash, Value: "//", Position: 1},
				{Type: TokenName, Value: "b", Position: 3},
				{Type: TokenBang, Value: "!", Position: 4},
				{Type: TokenName, Value: "c", Position: 5},
			},
		},
		{
			name:  "let assignment and arrow",
			input: ":= => ||",
			expected: []Token{
				{Type: TokenAssign, Value: ":=", Position: 0},
				{Type: TokenArrow, Value: "=>", Position: 3},
				{Type: TokenConcat, Value: "||", Position: 6},
			},
		},
		{
			name:  "parent step",
			input: "../@id",
			expected: []Token{
				{Type: TokenDotDot, Value: "..", Position: 0},
				{Type: TokenSlash, Value: "/", Position: 2},
				{Type: TokenAt, Value: "@", Position: 3},
				{Type: TokenName, Value: "id", Position: 4},
			},
		},
		{
			name:      "unexpected character",
			input:     "a ; b",
			expectErr: true,
		},
	}

	runLexerTests(t, tests)
}

func runLexerTests(t *testing.T, tests []lexerTestCase) {
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			lexer := NewLexer(test.input)
			tokens := []Token{}

			for {
				tok := lexer.Next()
				if tok.Type == TokenEOF {
					break
				}
				if tok.Type == TokenError {
					if !test.expectErr {
						t.Errorf("unexpected error: %v", lexer.Error())
					}
					if !types.Is(lexer.Error(), types.ErrInvalidPathGrammar) {
						t.Errorf("error code = %v, want MPST0003", lexer.Error())
					}
					return
				}
				tokens = append(tokens, tok)
			}

			if test.expectErr {
				t.Error("expected error but got none")
				return
			}

			if len(tokens) != len(test.expected) {
				t.Errorf("got %d tokens, want %d\nGot: %v\nWant: %v",
					len(tokens), len(test.expected), tokens, test.expected)
				return
			}

			for i, tok := range tokens {
				exp := test.expected[i]
				if tok.Type != exp.Type {
					t.Errorf("token %d: type = %v, want %v", i, tok.Type, exp.Type)
				}
				if tok.Value != exp.Value {
					t.Errorf("token %d: value = %q, want %q", i, tok.Value, exp.Value)
				}
				if tok.Position != exp.Position {
					t.Errorf("token %d: position = %d, want %d", i, tok.Position, exp.Position)
				}
			}
		})
	}
}

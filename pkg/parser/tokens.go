package parser

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals and names
	TokenString         // "hello" or 'hello'
	TokenInteger        // 123
	TokenDecimal        // 3.14, .5
	TokenDouble         // 1e-10
	TokenName           // name, prefix:name, Q{uri}name
	TokenVariable       // $name
	TokenPrefixWildcard // prefix:*
	TokenLocalWildcard  // *:name
	TokenURIWildcard    // Q{uri}*

	// Grouping symbols
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenBraceOpen    // {
	TokenBraceClose   // }
	TokenParenOpen    // (
	TokenParenClose   // )

	// Basic symbols
	TokenDot      // .
	TokenDotDot   // ..
	TokenComma    // ,
	TokenColon    // :
	TokenAxis     // ::
	TokenAssign   // :=
	TokenQuestion // ?
	TokenBang     // !
	TokenAt       // @
	TokenHash     // #

	// Operators
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // *
	TokenSlash        // /
	TokenSlashSlash   // //
	TokenPipe         // |
	TokenConcat       // ||
	TokenEqual        // =
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenArrow        // =>
)

var tokenNames = [...]string{
	TokenEOF:            "(eof)",
	TokenError:          "(error)",
	TokenString:         "(string)",
	TokenInteger:        "(integer)",
	TokenDecimal:        "(decimal)",
	TokenDouble:         "(double)",
	TokenName:           "(name)",
	TokenVariable:       "(variable)",
	TokenPrefixWildcard: "(wildcard)",
	TokenLocalWildcard:  "(wildcard)",
	TokenURIWildcard:    "(wildcard)",
	TokenBracketOpen:    "[",
	TokenBracketClose:   "]",
	TokenBraceOpen:      "{",
	TokenBraceClose:     "}",
	TokenParenOpen:      "(",
	TokenParenClose:     ")",
	TokenDot:            ".",
	TokenDotDot:         "..",
	TokenComma:          ",",
	TokenColon:          ":",
	TokenAxis:           "::",
	TokenAssign:         ":=",
	TokenQuestion:       "?",
	TokenBang:           "!",
	TokenAt:             "@",
	TokenHash:           "#",
	TokenPlus:           "+",
	TokenMinus:          "-",
	TokenStar:           "*",
	TokenSlash:          "/",
	TokenSlashSlash:     "//",
	TokenPipe:           "|",
	TokenConcat:         "||",
	TokenEqual:          "=",
	TokenNotEqual:       "!=",
	TokenLess:           "<",
	TokenLessEqual:      "<=",
	TokenGreater:        ">",
	TokenGreaterEqual:   ">=",
	TokenArrow:          "=>",
}

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	if int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return "(unknown)"
}

// Token represents a lexical token in a Metapath expression.
type Token struct {
	Type     TokenType // Type of the token
	Value    string    // Literal value of the token
	Position int       // Starting position in the input string
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	'{': TokenBraceOpen,
	'}': TokenBraceClose,
	'(': TokenParenOpen,
	')': TokenParenClose,
	'.': TokenDot,
	',': TokenComma,
	':': TokenColon,
	'?': TokenQuestion,
	'!': TokenBang,
	'@': TokenAt,
	'#': TokenHash,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'|': TokenPipe,
	'=': TokenEqual,
	'<': TokenLess,
	'>': TokenGreater,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types.
// The key is the first character of the sequence.
var symbols2 = [...][]runeTokenType{
	'!': {{'=', TokenNotEqual}},
	'<': {{'=', TokenLessEqual}},
	'>': {{'=', TokenGreaterEqual}},
	'.': {{'.', TokenDotDot}},
	':': {{':', TokenAxis}, {'=', TokenAssign}},
	'/': {{'/', TokenSlashSlash}},
	'|': {{'|', TokenConcat}},
	'=': {{'>', TokenArrow}},
}

const (
	symbol1Count = rune(len(symbols1))
	symbol2Count = rune(len(symbols2))
)

// lookupSymbol1 returns the token type for a single-character symbol.
// Returns 0 if the rune is not a valid symbol.
func lookupSymbol1(r rune) TokenType {
	if r < 0 || r >= symbol1Count {
		return 0
	}
	return symbols1[r]
}

// lookupSymbol2 returns possible two-character symbol completions.
// Returns nil if the rune cannot start a two-character symbol.
func lookupSymbol2(r rune) []runeTokenType {
	if r < 0 || r >= symbol2Count {
		return nil
	}
	return symbols2[r]
}

// Axis names accepted before "::".
var axisNames = map[string]bool{
	"self":               true,
	"child":              true,
	"descendant":         true,
	"descendant-or-self": true,
	"parent":             true,
	"ancestor":           true,
	"ancestor-or-self":   true,
	"following-sibling":  true,
	"preceding-sibling":  true,
	"following":          true,
	"preceding":          true,
	"flag":               true,
}

// Names that may not be used as function names because "name(" starts a
// kind test or another construct.
var reservedFunctionNames = map[string]bool{
	"array":          true,
	"assembly":       true,
	"attribute":      true,
	"document-node":  true,
	"element":        true,
	"empty-sequence": true,
	"field":          true,
	"flag":           true,
	"function":       true,
	"if":             true,
	"item":           true,
	"map":            true,
	"node":           true,
}

// kindTests lists the kind test names.
var kindTests = map[string]bool{
	"node":          true,
	"document-node": true,
	"element":       true,
	"assembly":      true,
	"field":         true,
	"flag":          true,
	"attribute":     true,
}

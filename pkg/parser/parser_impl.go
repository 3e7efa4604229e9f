package parser

import (
	"fmt"
	"strings"

	"github.com/sandrolain/gometapath/pkg/types"
)

// Parser implements a recursive descent parser for Metapath expressions.
// Tokens are read ahead of time so any production can peek past the
// current token, which Metapath needs because it has no reserved words.
type Parser struct {
	input   string
	tokens  []Token
	ends    []int
	pos     int
	current Token
	prev    Token
	prevEnd int
	depth   int
	lexErr  error
	opts    CompileOptions
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, opts ...CompileOption) *Parser {
	options := CompileOptions{
		MaxDepth: 100,
	}
	for _, opt := range opts {
		opt(&options)
	}

	p := &Parser{
		input: input,
		opts:  options,
	}

	lexer := NewLexer(input)
	for {
		t := lexer.Next()
		p.tokens = append(p.tokens, t)
		p.ends = append(p.ends, lexer.current)
		if t.Type == TokenEOF || t.Type == TokenError {
			break
		}
	}
	p.lexErr = lexer.Error()
	p.current = p.tokens[0]

	return p
}

// Parse parses the entire expression and returns the root of the parse tree.
func (p *Parser) Parse() (*Node, error) {
	if p.lexErr != nil {
		return nil, p.lexErr
	}

	if p.current.Type == TokenEOF {
		return nil, p.error("empty expression")
	}

	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.current.Type != TokenEOF {
		return nil, p.unexpected()
	}

	return node, nil
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.prev = p.current
	p.prevEnd = p.ends[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.current = p.tokens[p.pos]
}

// peek returns the token n positions after the current one.
func (p *Parser) peek(n int) Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *Parser) at(tt TokenType) bool {
	return p.current.Type == tt
}

// atKeyword reports whether the current token is the bare name kw.
func (p *Parser) atKeyword(kw string) bool {
	return p.current.Type == TokenName && p.current.Value == kw
}

func (p *Parser) expect(tt TokenType) (*Node, error) {
	if !p.at(tt) {
		return nil, p.expected(tt.String())
	}
	return p.terminal(), nil
}

func (p *Parser) expectKeyword(kw string) (*Node, error) {
	if !p.atKeyword(kw) {
		return nil, p.expected(kw)
	}
	return p.terminal(), nil
}

// terminal consumes the current token and returns it as a leaf node.
func (p *Parser) terminal() *Node {
	t := p.current
	end := p.ends[p.pos]
	p.advance()
	return &Node{
		Rule:  RuleTerminal,
		Token: t,
		Start: t.Position,
		End:   end,
		Text:  p.input[t.Position:end],
	}
}

// node builds a non-terminal spanning from start to the last consumed token.
func (p *Parser) node(rule Rule, start int, children ...*Node) *Node {
	end := max(p.prevEnd, start)
	return &Node{
		Rule:     rule,
		Children: children,
		Start:    start,
		End:      end,
		Text:     p.input[start:end],
	}
}

// startPos returns the source offset where the current token begins,
// including the quote of a string or the "$" of a variable.
func (p *Parser) startPos() int {
	switch p.current.Type {
	case TokenString:
		return p.current.Position - 1
	case TokenVariable:
		return strings.LastIndexByte(p.input[:p.current.Position], '$')
	}
	return p.current.Position
}

func (p *Parser) enter() error {
	p.depth++
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return p.error(fmt.Sprintf("expression nesting exceeds %d levels", p.opts.MaxDepth))
	}
	return nil
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) error(message string) *types.Error {
	return types.NewError(types.ErrInvalidPathGrammar, message).
		WithPosition(p.current.Position).
		WithToken(p.current.Value)
}

func (p *Parser) unexpected() *types.Error {
	if p.current.Type == TokenEOF {
		return p.error("unexpected end of expression")
	}
	return p.error(fmt.Sprintf("unexpected token '%s'", p.current.Value))
}

func (p *Parser) expected(what string) *types.Error {
	if p.current.Type == TokenEOF {
		return p.error(fmt.Sprintf("expected '%s' but reached end of expression", what))
	}
	return p.error(fmt.Sprintf("expected '%s' but found '%s'", what, p.current.Value))
}

// parseChain parses operand (op operand)* and returns the single operand
// unwrapped, or a node of the given rule with operator terminals
// interleaved between the operands.
func (p *Parser) parseChain(rule Rule, operand func() (*Node, error), isOp func() bool) (*Node, error) {
	start := p.startPos()
	first, err := operand()
	if err != nil {
		return nil, err
	}
	if !isOp() {
		return first, nil
	}
	children := []*Node{first}
	for isOp() {
		children = append(children, p.terminal())
		next, err := operand()
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
	return p.node(rule, start, children...), nil
}

func (p *Parser) keywords(kws ...string) func() bool {
	return func() bool {
		if p.current.Type != TokenName {
			return false
		}
		for _, kw := range kws {
			if p.current.Value == kw {
				return true
			}
		}
		return false
	}
}

func (p *Parser) tokensOf(tts ...TokenType) func() bool {
	return func() bool {
		for _, tt := range tts {
			if p.current.Type == tt {
				return true
			}
		}
		return false
	}
}

// Expressions

func (p *Parser) parseExpr() (*Node, error) {
	return p.parseChain(RuleExpr, p.parseExprSingle, p.tokensOf(TokenComma))
}

func (p *Parser) parseExprSingle() (*Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if p.at(TokenName) {
		next := p.peek(1).Type
		switch p.current.Value {
		case "for":
			if next == TokenVariable {
				return p.parseBindingExpr(RuleFor, TokenName, "in", "return")
			}
		case "let":
			if next == TokenVariable {
				return p.parseBindingExpr(RuleLet, TokenAssign, ":=", "return")
			}
		case "some", "every":
			if next == TokenVariable {
				return p.parseBindingExpr(RuleQuantified, TokenName, "in", "satisfies")
			}
		case "if":
			if next == TokenParenOpen {
				return p.parseIf()
			}
		}
	}
	return p.parseOr()
}

// parseBindingExpr parses for, let, some and every expressions, which all
// share the shape KEYWORD $v SEP expr (, $v SEP expr)* BODYKW expr.
func (p *Parser) parseBindingExpr(rule Rule, sepType TokenType, sep, bodyKeyword string) (*Node, error) {
	start := p.startPos()
	kw := p.terminal()

	var children []*Node
	if rule == RuleQuantified {
		children = append(children, kw)
	}

	for {
		bindStart := p.startPos()
		v, err := p.expect(TokenVariable)
		if err != nil {
			return nil, err
		}
		if sepType == TokenName {
			_, err = p.expectKeyword(sep)
		} else {
			_, err = p.expect(sepType)
		}
		if err != nil {
			return nil, err
		}
		value, err := p.parseExprSingle()
		if err != nil {
			return nil, err
		}
		children = append(children, p.node(RuleBinding, bindStart, v, value))

		if !p.at(TokenComma) {
			break
		}
		p.advance()
	}

	if _, err := p.expectKeyword(bodyKeyword); err != nil {
		return nil, err
	}
	body, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	children = append(children, body)
	return p.node(rule, start, children...), nil
}

func (p *Parser) parseIf() (*Node, error) {
	start := p.startPos()
	p.advance() // if
	if _, err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("then"); err != nil {
		return nil, err
	}
	then, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("else"); err != nil {
		return nil, err
	}
	els, err := p.parseExprSingle()
	if err != nil {
		return nil, err
	}
	return p.node(RuleIf, start, cond, then, els), nil
}

func (p *Parser) parseOr() (*Node, error) {
	return p.parseChain(RuleOr, p.parseAnd, p.keywords("or"))
}

func (p *Parser) parseAnd() (*Node, error) {
	return p.parseChain(RuleAnd, p.parseComparison, p.keywords("and"))
}

var comparisonTokens = []TokenType{
	TokenEqual, TokenNotEqual, TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual,
}

func (p *Parser) parseComparison() (*Node, error) {
	start := p.startPos()
	left, err := p.parseStringConcat()
	if err != nil {
		return nil, err
	}
	if !p.tokensOf(comparisonTokens...)() && !p.keywords("eq", "ne", "lt", "le", "gt", "ge")() {
		return left, nil
	}
	op := p.terminal()
	right, err := p.parseStringConcat()
	if err != nil {
		return nil, err
	}
	return p.node(RuleComparison, start, left, op, right), nil
}

func (p *Parser) parseStringConcat() (*Node, error) {
	return p.parseChain(RuleStringConcat, p.parseRange, p.tokensOf(TokenConcat))
}

func (p *Parser) parseRange() (*Node, error) {
	start := p.startPos()
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if !p.atKeyword("to") {
		return left, nil
	}
	op := p.terminal()
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return p.node(RuleRange, start, left, op, right), nil
}

func (p *Parser) parseAdditive() (*Node, error) {
	return p.parseChain(RuleAdditive, p.parseMultiplicative, p.tokensOf(TokenPlus, TokenMinus))
}

func (p *Parser) parseMultiplicative() (*Node, error) {
	isOp := func() bool {
		return p.at(TokenStar) || p.keywords("div", "idiv", "mod")()
	}
	return p.parseChain(RuleMultiplicative, p.parseUnion, isOp)
}

func (p *Parser) parseUnion() (*Node, error) {
	isOp := func() bool {
		return p.at(TokenPipe) || p.atKeyword("union")
	}
	return p.parseChain(RuleUnion, p.parseIntersectExcept, isOp)
}

func (p *Parser) parseIntersectExcept() (*Node, error) {
	return p.parseChain(RuleIntersect, p.parseInstanceOf, p.keywords("intersect", "except"))
}

func (p *Parser) parseInstanceOf() (*Node, error) {
	start := p.startPos()
	left, err := p.parseTreat()
	if err != nil {
		return nil, err
	}
	if !p.atKeyword("instance") || p.peek(1).Value != "of" {
		return left, nil
	}
	p.advance()
	p.advance()
	st, err := p.parseSequenceType()
	if err != nil {
		return nil, err
	}
	return p.node(RuleInstanceOf, start, left, st), nil
}

func (p *Parser) parseTreat() (*Node, error) {
	start := p.startPos()
	left, err := p.parseCastable()
	if err != nil {
		return nil, err
	}
	if !p.atKeyword("treat") || p.peek(1).Value != "as" {
		return left, nil
	}
	p.advance()
	p.advance()
	st, err := p.parseSequenceType()
	if err != nil {
		return nil, err
	}
	return p.node(RuleTreat, start, left, st), nil
}

func (p *Parser) parseCastable() (*Node, error) {
	start := p.startPos()
	left, err := p.parseCast()
	if err != nil {
		return nil, err
	}
	if !p.atKeyword("castable") || p.peek(1).Value != "as" {
		return left, nil
	}
	p.advance()
	p.advance()
	st, err := p.parseSingleType()
	if err != nil {
		return nil, err
	}
	return p.node(RuleCastable, start, left, st), nil
}

func (p *Parser) parseCast() (*Node, error) {
	start := p.startPos()
	left, err := p.parseArrow()
	if err != nil {
		return nil, err
	}
	if !p.atKeyword("cast") || p.peek(1).Value != "as" {
		return left, nil
	}
	p.advance()
	p.advance()
	st, err := p.parseSingleType()
	if err != nil {
		return nil, err
	}
	return p.node(RuleCast, start, left, st), nil
}

func (p *Parser) parseArrow() (*Node, error) {
	start := p.startPos()
	base, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if !p.at(TokenArrow) {
		return base, nil
	}
	children := []*Node{base}
	for p.at(TokenArrow) {
		p.advance()
		var target *Node
		switch p.current.Type {
		case TokenName:
			target = p.terminal()
		case TokenVariable:
			vstart := p.startPos()
			target = p.node(RuleVarRef, vstart, p.terminal())
		case TokenParenOpen:
			target, err = p.parseParenthesized()
			if err != nil {
				return nil, err
			}
		default:
			return nil, p.expected("function name")
		}
		args, err := p.parseArgumentList()
		if err != nil {
			return nil, err
		}
		children = append(children, target, args)
	}
	return p.node(RuleArrow, start, children...), nil
}

func (p *Parser) parseUnary() (*Node, error) {
	start := p.startPos()
	var signs []*Node
	for p.at(TokenPlus) || p.at(TokenMinus) {
		signs = append(signs, p.terminal())
	}
	operand, err := p.parseSimpleMap()
	if err != nil {
		return nil, err
	}
	if len(signs) == 0 {
		return operand, nil
	}
	return p.node(RuleUnary, start, append(signs, operand)...), nil
}

func (p *Parser) parseSimpleMap() (*Node, error) {
	return p.parseChain(RuleSimpleMap, p.parsePath, p.tokensOf(TokenBang))
}

// Paths

func (p *Parser) parsePath() (*Node, error) {
	start := p.startPos()
	switch p.current.Type {
	case TokenSlash:
		root := p.terminal()
		if !p.canStartStep() {
			return p.node(RulePath, start, root), nil
		}
		rel, err := p.parseRelativePath()
		if err != nil {
			return nil, err
		}
		return p.node(RulePath, start, root, rel), nil
	case TokenSlashSlash:
		root := p.terminal()
		rel, err := p.parseRelativePath()
		if err != nil {
			return nil, err
		}
		return p.node(RulePath, start, root, rel), nil
	}
	return p.parseRelativePath()
}

// canStartStep reports whether the current token can begin a step, which
// decides whether a leading "/" stands alone.
func (p *Parser) canStartStep() bool {
	switch p.current.Type {
	case TokenName:
		// "/ union x" or "/ and x" are operators following a lone root
		switch p.current.Value {
		case "or", "and", "eq", "ne", "lt", "le", "gt", "ge", "to", "div", "idiv", "mod",
			"union", "intersect", "except", "instance", "treat", "castable", "cast":
			return p.peek(1).Type == TokenParenOpen || p.peek(1).Type == TokenAxis
		}
		return true
	case TokenVariable, TokenString, TokenInteger, TokenDecimal, TokenDouble,
		TokenDot, TokenDotDot, TokenAt, TokenStar, TokenPrefixWildcard,
		TokenLocalWildcard, TokenURIWildcard, TokenParenOpen, TokenBracketOpen:
		return true
	}
	return false
}

func (p *Parser) parseRelativePath() (*Node, error) {
	return p.parseChain(RuleRelativePath, p.parseStep, p.tokensOf(TokenSlash, TokenSlashSlash))
}

func (p *Parser) parseStep() (*Node, error) {
	start := p.startPos()
	switch p.current.Type {
	case TokenDotDot:
		children := []*Node{p.terminal()}
		return p.withPredicates(RuleAbbrevParent, start, children)
	case TokenAt:
		at := p.terminal()
		test, err := p.parseNodeTest()
		if err != nil {
			return nil, err
		}
		return p.withPredicates(RuleAxisStep, start, []*Node{at, test})
	case TokenStar, TokenPrefixWildcard, TokenLocalWildcard, TokenURIWildcard:
		test := p.node(RuleWildcard, start, p.terminal())
		return p.withPredicates(RuleAbbrevStep, start, []*Node{test})
	case TokenName:
		next := p.peek(1).Type
		name := p.current.Value
		switch {
		case next == TokenAxis:
			if !axisNames[name] {
				return nil, p.error(fmt.Sprintf("unknown axis '%s'", name))
			}
			axis := p.terminal()
			p.advance() // ::
			test, err := p.parseNodeTest()
			if err != nil {
				return nil, err
			}
			return p.withPredicates(RuleAxisStep, start, []*Node{axis, test})
		case next == TokenParenOpen && kindTests[name]:
			test, err := p.parseKindTest()
			if err != nil {
				return nil, err
			}
			return p.withPredicates(RuleAbbrevStep, start, []*Node{test})
		case next == TokenParenOpen, next == TokenHash,
			next == TokenBraceOpen && (name == "map" || name == "array"):
			return p.parsePostfix()
		}
		test := p.node(RuleNameTest, start, p.terminal())
		return p.withPredicates(RuleAbbrevStep, start, []*Node{test})
	}
	return p.parsePostfix()
}

func (p *Parser) withPredicates(rule Rule, start int, children []*Node) (*Node, error) {
	for p.at(TokenBracketOpen) {
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		children = append(children, pred)
	}
	return p.node(rule, start, children...), nil
}

func (p *Parser) parseNodeTest() (*Node, error) {
	start := p.startPos()
	switch p.current.Type {
	case TokenName:
		if p.peek(1).Type == TokenParenOpen && kindTests[p.current.Value] {
			return p.parseKindTest()
		}
		return p.node(RuleNameTest, start, p.terminal()), nil
	case TokenStar, TokenPrefixWildcard, TokenLocalWildcard, TokenURIWildcard:
		return p.node(RuleWildcard, start, p.terminal()), nil
	}
	return nil, p.expected("node test")
}

// parseKindTest parses name "(" (name | "*")? ")". It also serves the
// item(), map(*), array(*) and function(*) item types.
func (p *Parser) parseKindTest() (*Node, error) {
	start := p.startPos()
	name := p.terminal()
	if _, err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	children := []*Node{name}
	if p.at(TokenName) || p.at(TokenStar) {
		children = append(children, p.terminal())
	}
	if _, err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return p.node(RuleKindTest, start, children...), nil
}

func (p *Parser) parsePredicate() (*Node, error) {
	start := p.startPos()
	p.advance() // [
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenBracketClose); err != nil {
		return nil, err
	}
	return p.node(RulePredicate, start, e), nil
}

// Postfix and primary expressions

func (p *Parser) parsePostfix() (*Node, error) {
	start := p.startPos()
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	children := []*Node{primary}
	for {
		var next *Node
		switch p.current.Type {
		case TokenBracketOpen:
			next, err = p.parsePredicate()
		case TokenParenOpen:
			next, err = p.parseArgumentList()
		case TokenQuestion:
			next, err = p.parseLookup(RuleLookup)
		default:
			if len(children) == 1 {
				return primary, nil
			}
			return p.node(RulePostfix, start, children...), nil
		}
		if err != nil {
			return nil, err
		}
		children = append(children, next)
	}
}

func (p *Parser) parseArgumentList() (*Node, error) {
	start := p.startPos()
	if _, err := p.expect(TokenParenOpen); err != nil {
		return nil, err
	}
	var args []*Node
	if !p.at(TokenParenClose) {
		for {
			arg, err := p.parseExprSingle()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.at(TokenComma) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return p.node(RuleArgumentList, start, args...), nil
}

// parseLookup parses "?" KeySpecifier where the key is an NCName, an
// integer, "*" or a parenthesized expression.
func (p *Parser) parseLookup(rule Rule) (*Node, error) {
	start := p.startPos()
	p.advance() // ?
	switch p.current.Type {
	case TokenName:
		if strings.ContainsAny(p.current.Value, ":{") {
			return nil, p.error("lookup key must be an NCName")
		}
		return p.node(rule, start, p.terminal()), nil
	case TokenInteger, TokenStar:
		return p.node(rule, start, p.terminal()), nil
	case TokenParenOpen:
		key, err := p.parseParenthesized()
		if err != nil {
			return nil, err
		}
		return p.node(rule, start, key), nil
	}
	return nil, p.expected("lookup key")
}

func (p *Parser) parsePrimary() (*Node, error) {
	start := p.startPos()
	switch p.current.Type {
	case TokenString:
		lit := p.stringLiteral()
		return p.node(RuleLiteral, lit.Start, lit), nil
	case TokenInteger, TokenDecimal, TokenDouble:
		return p.node(RuleLiteral, start, p.terminal()), nil
	case TokenVariable:
		return p.node(RuleVarRef, start, p.terminal()), nil
	case TokenParenOpen:
		return p.parseParenthesized()
	case TokenDot:
		p.advance()
		return p.node(RuleContextItem, start), nil
	case TokenQuestion:
		return p.parseLookup(RuleUnaryLookup)
	case TokenBracketOpen:
		return p.parseSquareArray()
	case TokenName:
		next := p.peek(1).Type
		name := p.current.Value
		switch {
		case name == "map" && next == TokenBraceOpen:
			return p.parseMapConstructor()
		case name == "array" && next == TokenBraceOpen:
			return p.parseCurlyArray()
		case name == "function" && next == TokenParenOpen:
			return p.parseInlineFunction()
		case next == TokenHash:
			fn := p.terminal()
			p.advance() // #
			arity, err := p.expect(TokenInteger)
			if err != nil {
				return nil, err
			}
			return p.node(RuleNamedFunctionRef, start, fn, arity), nil
		case next == TokenParenOpen:
			if reservedFunctionNames[name] {
				return nil, p.error(fmt.Sprintf("'%s' is not a valid function name", name))
			}
			fn := p.terminal()
			args, err := p.parseArgumentList()
			if err != nil {
				return nil, err
			}
			return p.node(RuleFunctionCall, start, fn, args), nil
		}
	}
	return nil, p.unexpected()
}

// stringLiteral consumes a string token, collapsing doubled quotes.
func (p *Parser) stringLiteral() *Node {
	n := p.terminal()
	n.Start--
	q := p.input[n.Start : n.Start+1]
	n.Token.Value = strings.ReplaceAll(n.Token.Value, q+q, q)
	n.Text = p.input[n.Start:n.End]
	return n
}

func (p *Parser) parseParenthesized() (*Node, error) {
	start := p.startPos()
	p.advance() // (
	if p.at(TokenParenClose) {
		p.advance()
		return p.node(RuleParenthesized, start), nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return p.node(RuleParenthesized, start, e), nil
}

func (p *Parser) parseSquareArray() (*Node, error) {
	start := p.startPos()
	p.advance() // [
	var members []*Node
	if !p.at(TokenBracketClose) {
		for {
			m, err := p.parseExprSingle()
			if err != nil {
				return nil, err
			}
			members = append(members, m)
			if !p.at(TokenComma) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokenBracketClose); err != nil {
		return nil, err
	}
	return p.node(RuleSquareArray, start, members...), nil
}

func (p *Parser) parseCurlyArray() (*Node, error) {
	start := p.startPos()
	p.advance() // array
	p.advance() // {
	if p.at(TokenBraceClose) {
		p.advance()
		return p.node(RuleCurlyArray, start), nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	return p.node(RuleCurlyArray, start, e), nil
}

func (p *Parser) parseMapConstructor() (*Node, error) {
	start := p.startPos()
	p.advance() // map
	p.advance() // {
	var entries []*Node
	if !p.at(TokenBraceClose) {
		for {
			entryStart := p.startPos()
			key, err := p.parseExprSingle()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenColon); err != nil {
				return nil, err
			}
			value, err := p.parseExprSingle()
			if err != nil {
				return nil, err
			}
			entries = append(entries, p.node(RuleMapEntry, entryStart, key, value))
			if !p.at(TokenComma) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokenBraceClose); err != nil {
		return nil, err
	}
	return p.node(RuleMapConstructor, start, entries...), nil
}

func (p *Parser) parseInlineFunction() (*Node, error) {
	start := p.startPos()
	p.advance() // function
	p.advance() // (

	paramStart := p.startPos()
	var params []*Node
	if !p.at(TokenParenClose) {
		for {
			ps := p.startPos()
			v, err := p.expect(TokenVariable)
			if err != nil {
				return nil, err
			}
			param := []*Node{v}
			if p.atKeyword("as") {
				p.advance()
				st, err := p.parseSequenceType()
				if err != nil {
					return nil, err
				}
				param = append(param, st)
			}
			params = append(params, p.node(RuleParam, ps, param...))
			if !p.at(TokenComma) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	children := []*Node{p.node(RuleParamList, paramStart, params...)}

	if p.atKeyword("as") {
		p.advance()
		st, err := p.parseSequenceType()
		if err != nil {
			return nil, err
		}
		children = append(children, st)
	}

	bodyStart := p.startPos()
	if _, err := p.expect(TokenBraceOpen); err != nil {
		return nil, err
	}
	var body *Node
	if p.at(TokenBraceClose) {
		p.advance()
		body = p.node(RuleParenthesized, bodyStart)
	} else {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenBraceClose); err != nil {
			return nil, err
		}
		body = e
	}
	children = append(children, body)
	return p.node(RuleInlineFunction, start, children...), nil
}

// Types

func (p *Parser) parseSequenceType() (*Node, error) {
	start := p.startPos()
	if !p.at(TokenName) {
		return nil, p.expected("sequence type")
	}
	if p.current.Value == "empty-sequence" {
		name := p.terminal()
		if _, err := p.expect(TokenParenOpen); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		return p.node(RuleSequenceType, start, name), nil
	}

	var itemType *Node
	if p.peek(1).Type == TokenParenOpen {
		kt, err := p.parseKindTest()
		if err != nil {
			return nil, err
		}
		itemType = kt
	} else {
		itemType = p.node(RuleTypeName, start, p.terminal())
	}

	children := []*Node{itemType}
	if p.at(TokenQuestion) || p.at(TokenStar) || p.at(TokenPlus) {
		children = append(children, p.terminal())
	}
	return p.node(RuleSequenceType, start, children...), nil
}

func (p *Parser) parseSingleType() (*Node, error) {
	start := p.startPos()
	if !p.at(TokenName) {
		return nil, p.expected("type name")
	}
	children := []*Node{p.node(RuleTypeName, start, p.terminal())}
	if p.at(TokenQuestion) {
		children = append(children, p.terminal())
	}
	return p.node(RuleSingleType, start, children...), nil
}

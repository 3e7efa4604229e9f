package parser

import "strings"

// Rule identifies the grammar production a parse tree node was built from.
type Rule uint8

const (
	RuleTerminal Rule = iota

	RuleExpr           // ExprSingle ("," ExprSingle)+
	RuleFor            // Binding+ Return
	RuleLet            // Binding+ Return
	RuleQuantified     // some|every Binding+ Satisfies
	RuleBinding        // $var Expr
	RuleIf             // Cond Then Else
	RuleOr             // operands interleaved with "or"
	RuleAnd            // operands interleaved with "and"
	RuleComparison     // left op right
	RuleStringConcat   // operands interleaved with "||"
	RuleRange          // left "to" right
	RuleAdditive       // operands interleaved with + or -
	RuleMultiplicative // operands interleaved with * div idiv mod
	RuleUnion          // operands interleaved with union or |
	RuleIntersect      // operands interleaved with intersect or except
	RuleInstanceOf     // expr SequenceType
	RuleTreat          // expr SequenceType
	RuleCastable       // expr SingleType
	RuleCast           // expr SingleType
	RuleArrow          // base (target ArgumentList)+
	RuleUnary          // sign+ operand
	RuleSimpleMap      // operands interleaved with "!"
	RulePath           // "/" or "//" followed by an optional relative path
	RuleRelativePath   // steps interleaved with "/" or "//"
	RuleAxisStep       // axis-or-@ NodeTest Predicate*
	RuleAbbrevStep     // NodeTest Predicate*
	RuleAbbrevParent   // ".." Predicate*
	RuleNameTest       // name
	RuleWildcard       // *, p:*, *:l, Q{u}*
	RuleKindTest       // kind-name argument?
	RulePostfix        // primary (Predicate | ArgumentList | Lookup)+
	RulePredicate      // Expr
	RuleArgumentList   // ExprSingle*
	RuleLookup         // key
	RuleUnaryLookup    // key
	RuleLiteral        // string or numeric token
	RuleVarRef         // $name
	RuleParenthesized  // Expr?
	RuleContextItem    // "."
	RuleFunctionCall   // name ArgumentList
	RuleNamedFunctionRef
	RuleInlineFunction // ParamList SequenceType? body
	RuleParamList      // Param*
	RuleParam          // $name SequenceType?
	RuleMapConstructor // MapEntry*
	RuleMapEntry       // key value
	RuleSquareArray    // ExprSingle*
	RuleCurlyArray     // Expr?
	RuleSequenceType   // empty-sequence | ItemType occurrence?
	RuleSingleType     // TypeName "?"?
	RuleTypeName       // EQName
)

var ruleNames = [...]string{
	RuleTerminal:         "Terminal",
	RuleExpr:             "Expr",
	RuleFor:              "For",
	RuleLet:              "Let",
	RuleQuantified:       "Quantified",
	RuleBinding:          "Binding",
	RuleIf:               "If",
	RuleOr:               "Or",
	RuleAnd:              "And",
	RuleComparison:       "Comparison",
	RuleStringConcat:     "StringConcat",
	RuleRange:            "Range",
	RuleAdditive:         "Additive",
	RuleMultiplicative:   "Multiplicative",
	RuleUnion:            "Union",
	RuleIntersect:        "IntersectExcept",
	RuleInstanceOf:       "InstanceOf",
	RuleTreat:            "Treat",
	RuleCastable:         "Castable",
	RuleCast:             "Cast",
	RuleArrow:            "Arrow",
	RuleUnary:            "Unary",
	RuleSimpleMap:        "SimpleMap",
	RulePath:             "Path",
	RuleRelativePath:     "RelativePath",
	RuleAxisStep:         "AxisStep",
	RuleAbbrevStep:       "AbbrevStep",
	RuleAbbrevParent:     "AbbrevParent",
	RuleNameTest:         "NameTest",
	RuleWildcard:         "Wildcard",
	RuleKindTest:         "KindTest",
	RulePostfix:          "Postfix",
	RulePredicate:        "Predicate",
	RuleArgumentList:     "ArgumentList",
	RuleLookup:           "Lookup",
	RuleUnaryLookup:      "UnaryLookup",
	RuleLiteral:          "Literal",
	RuleVarRef:           "VarRef",
	RuleParenthesized:    "Parenthesized",
	RuleContextItem:      "ContextItem",
	RuleFunctionCall:     "FunctionCall",
	RuleNamedFunctionRef: "NamedFunctionRef",
	RuleInlineFunction:   "InlineFunction",
	RuleParamList:        "ParamList",
	RuleParam:            "Param",
	RuleMapConstructor:   "MapConstructor",
	RuleMapEntry:         "MapEntry",
	RuleSquareArray:      "SquareArray",
	RuleCurlyArray:       "CurlyArray",
	RuleSequenceType:     "SequenceType",
	RuleSingleType:       "SingleType",
	RuleTypeName:         "TypeName",
}

func (r Rule) String() string {
	if int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return "Unknown"
}

// Node is a node of the untyped parse tree.
//
// Terminals carry the token that produced them; every other node carries
// its children in source order. Start and End are byte offsets into the
// parsed source, and Text is the source fragment they delimit.
type Node struct {
	Rule     Rule
	Token    Token
	Children []*Node
	Start    int
	End      int
	Text     string
}

// IsTerminal reports whether n is a token leaf.
func (n *Node) IsTerminal() bool {
	return n.Rule == RuleTerminal
}

// Is reports whether n is a terminal with the given token value.
func (n *Node) Is(value string) bool {
	return n.Rule == RuleTerminal && n.Token.Value == value
}

// Child returns the i-th child, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// String renders the tree as a compact S-expression, for tests and debugging.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	if n.IsTerminal() {
		sb.WriteString(n.Token.Value)
		return
	}
	sb.WriteByte('(')
	sb.WriteString(n.Rule.String())
	for _, c := range n.Children {
		sb.WriteByte(' ')
		c.write(sb)
	}
	sb.WriteByte(')')
}

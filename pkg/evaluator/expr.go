package evaluator

import (
	"sync"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Expr is a node of a compiled expression tree.
//
// The set of node types is closed: evaluation and printing switch over the
// concrete types declared in this file.
type Expr interface {
	// Text is the source fragment the node was compiled from.
	Text() string
	// Children returns the direct sub-expressions in evaluation order.
	Children() []Expr
	// StaticType is the most specific item type known at compile time.
	StaticType() item.ItemType
	expr()
}

type node struct {
	text string
	typ  item.ItemType
}

func (n *node) Text() string              { return n.text }
func (n *node) StaticType() item.ItemType { return n.typ }
func (*node) expr()                       {}

// narrow returns the common supertype of the children's static types when
// it is a subtype of base, and base otherwise.
func narrow(base item.ItemType, children ...Expr) item.ItemType {
	if len(children) == 0 {
		return base
	}
	t := children[0].StaticType()
	for _, c := range children[1:] {
		t = item.CommonSuperType(t, c.StaticType())
	}
	if t.SubtypeOf(base) {
		return t
	}
	return base
}

// Literal is a string or numeric literal.
type Literal struct {
	node
	Value item.AtomicItem
}

// VariableRef reads a bound variable.
type VariableRef struct {
	node
	Name types.QName
	key  types.Handle
}

// ContextItem is ".".
type ContextItem struct {
	node
}

// SequenceExpr concatenates its operands, as in "a, b". "()" is a
// SequenceExpr with no operands.
type SequenceExpr struct {
	node
	Operands []Expr
}

// Or is a chain of "or" operands.
type Or struct {
	node
	Operands []Expr
}

// And is a chain of "and" operands.
type And struct {
	node
	Operands []Expr
}

// Comparison is a value ("eq") or general ("=") comparison.
type Comparison struct {
	node
	Op          item.ComparisonOp
	General     bool
	Left, Right Expr
}

// StringConcat is a chain of "||" operands.
type StringConcat struct {
	node
	Operands []Expr
}

// Range is "a to b".
type Range struct {
	node
	Start, End Expr
}

// Arithmetic is a binary arithmetic operation.
type Arithmetic struct {
	node
	Op          item.ArithmeticOp
	Left, Right Expr
}

// Negate is unary minus. Unary plus compiles to Negate with Negative unset.
type Negate struct {
	node
	Negative bool
	Operand  Expr
}

// Union is a chain of "union" or "|" operands.
type Union struct {
	node
	Operands []Expr
}

// Intersect is "a intersect b".
type Intersect struct {
	node
	Left, Right Expr
}

// Except is "a except b".
type Except struct {
	node
	Left, Right Expr
}

// InstanceOf is "e instance of T".
type InstanceOf struct {
	node
	Operand Expr
	Type    item.SequenceType
}

// Treat is "e treat as T".
type Treat struct {
	node
	Operand Expr
	Type    item.SequenceType
}

// Cast is "e cast as T" or "e cast as T?".
type Cast struct {
	node
	Operand    Expr
	Type       *item.AtomicType
	AllowEmpty bool
}

// Castable is "e castable as T".
type Castable struct {
	node
	Operand    Expr
	Type       *item.AtomicType
	AllowEmpty bool
}

// SimpleMap is a chain of "!" operands.
type SimpleMap struct {
	node
	Operands []Expr
}

// Root is "/" on its own: the document node of the context node.
type Root struct {
	node
}

// RootPath is "/rel" or "//rel".
type RootPath struct {
	node
	Descendant bool
	Path       Expr
}

// Path is "a/b", or "a//b" when Descendant is set.
type Path struct {
	node
	Descendant  bool
	Left, Right Expr
}

// Axis is a direction of tree navigation.
type Axis uint8

// Axes.
const (
	AxisChild Axis = iota
	AxisDescendant
	AxisDescendantOrSelf
	AxisSelf
	AxisParent
	AxisAncestor
	AxisAncestorOrSelf
	AxisFollowingSibling
	AxisPrecedingSibling
	AxisFollowing
	AxisPreceding
	AxisFlag
)

var axisNames = [...]string{
	AxisChild:            "child",
	AxisDescendant:       "descendant",
	AxisDescendantOrSelf: "descendant-or-self",
	AxisSelf:             "self",
	AxisParent:           "parent",
	AxisAncestor:         "ancestor",
	AxisAncestorOrSelf:   "ancestor-or-self",
	AxisFollowingSibling: "following-sibling",
	AxisPrecedingSibling: "preceding-sibling",
	AxisFollowing:        "following",
	AxisPreceding:        "preceding",
	AxisFlag:             "flag",
}

func (a Axis) String() string { return axisNames[a] }

// Reverse reports whether the axis yields nodes nearest first, against
// document order.
func (a Axis) Reverse() bool {
	switch a {
	case AxisParent, AxisAncestor, AxisAncestorOrSelf, AxisPrecedingSibling, AxisPreceding:
		return true
	}
	return false
}

func lookupAxis(name string) (Axis, bool) {
	for i, n := range axisNames {
		if n == name {
			return Axis(i), true
		}
	}
	return 0, false
}

// NodeTest selects the nodes of an axis by name or kind.
type NodeTest struct {
	// Kinds the node must have. Name tests use the principal node kind of
	// the axis.
	Kinds item.NodeKind
	// Name is compared unless AnyNamespace or AnyLocal relax it.
	Name         types.QName
	AnyNamespace bool
	AnyLocal     bool
	// Named is false for kind tests without a name argument.
	Named bool
	text  string
}

// Matches reports whether n passes the test.
func (t NodeTest) Matches(n item.NodeItem) bool {
	if n.Kind()&t.Kinds == 0 {
		return false
	}
	if !t.Named {
		return true
	}
	name := n.Name()
	return (t.AnyLocal || name.Local == t.Name.Local) &&
		(t.AnyNamespace || name.Namespace == t.Name.Namespace)
}

func (t NodeTest) String() string { return t.text }

// Step is an axis step with its predicates.
type Step struct {
	node
	Axis       Axis
	Test       NodeTest
	Predicates []Expr
}

// Filter applies predicates to the result of a primary expression.
type Filter struct {
	node
	Base       Expr
	Predicates []Expr
}

// If is "if (c) then a else b".
type If struct {
	node
	Cond, Then, Else Expr
}

// Binding is one "$v in e" or "$v := e" clause.
type Binding struct {
	Name  types.QName
	Value Expr
	key   types.Handle
}

// For is "for $v in e return r". Multiple clauses compile to nested For
// nodes.
type For struct {
	node
	Var    Binding
	Return Expr
}

// Let is "let $v := e return r". Multiple clauses compile to nested Let
// nodes.
type Let struct {
	node
	Var    Binding
	Return Expr
}

// Quantified is "some|every $v in e, ... satisfies s".
type Quantified struct {
	node
	Every     bool
	Vars      []Binding
	Satisfies Expr
}

// StaticCall calls a function whose name and arity are known at compile
// time. The function is resolved on first evaluation.
type StaticCall struct {
	node
	Name    types.QName
	Args    []Expr
	resolve func() (*functions.Definition, error)
}

// Function returns the called function, resolving it if needed.
func (c *StaticCall) Function() (*functions.Definition, error) {
	return c.resolve()
}

// DynamicCall calls the function item its callee evaluates to. Postfix
// argument lists on maps and arrays are dynamic calls too.
type DynamicCall struct {
	node
	Callee Expr
	Args   []Expr
}

// FunctionRef is a named function reference "name#arity".
type FunctionRef struct {
	node
	Name    types.QName
	Arity   int
	resolve func() (*functions.Definition, error)
}

// Param is a declared parameter of an inline function.
type Param struct {
	Name types.QName
	Type item.SequenceType
	key  types.Handle
}

// InlineFunction is "function($a as T, ...) as R { body }".
type InlineFunction struct {
	node
	Params []Param
	Result item.SequenceType
	Body   Expr
}

// MapEntry is one "key : value" pair of a map constructor.
type MapEntry struct {
	Key, Value Expr
}

// MapConstructor is "map { k : v, ... }".
type MapConstructor struct {
	node
	Entries []MapEntry
}

// ArrayConstructor is "[a, b]" or, when Curly is set, "array { e }".
type ArrayConstructor struct {
	node
	Curly   bool
	Members []Expr
}

// KeySpecifier is the key of a lookup: an NCName, an integer, "*" or a
// parenthesized expression.
type KeySpecifier struct {
	Wildcard bool
	Name     string
	Integer  int
	IsInt    bool
	Expr     Expr
}

// Lookup is the postfix lookup "e?key".
type Lookup struct {
	node
	Base Expr
	Key  KeySpecifier
}

// UnaryLookup is "?key" applied to the context item.
type UnaryLookup struct {
	node
	Key KeySpecifier
}

// Children implementations.

func (*Literal) Children() []Expr          { return nil }
func (*VariableRef) Children() []Expr      { return nil }
func (*ContextItem) Children() []Expr      { return nil }
func (e *SequenceExpr) Children() []Expr   { return e.Operands }
func (e *Or) Children() []Expr             { return e.Operands }
func (e *And) Children() []Expr            { return e.Operands }
func (e *Comparison) Children() []Expr     { return []Expr{e.Left, e.Right} }
func (e *StringConcat) Children() []Expr   { return e.Operands }
func (e *Range) Children() []Expr          { return []Expr{e.Start, e.End} }
func (e *Arithmetic) Children() []Expr     { return []Expr{e.Left, e.Right} }
func (e *Negate) Children() []Expr         { return []Expr{e.Operand} }
func (e *Union) Children() []Expr          { return e.Operands }
func (e *Intersect) Children() []Expr      { return []Expr{e.Left, e.Right} }
func (e *Except) Children() []Expr         { return []Expr{e.Left, e.Right} }
func (e *InstanceOf) Children() []Expr     { return []Expr{e.Operand} }
func (e *Treat) Children() []Expr          { return []Expr{e.Operand} }
func (e *Cast) Children() []Expr           { return []Expr{e.Operand} }
func (e *Castable) Children() []Expr       { return []Expr{e.Operand} }
func (e *SimpleMap) Children() []Expr      { return e.Operands }
func (*Root) Children() []Expr             { return nil }
func (e *RootPath) Children() []Expr       { return []Expr{e.Path} }
func (e *Path) Children() []Expr           { return []Expr{e.Left, e.Right} }
func (e *Step) Children() []Expr           { return e.Predicates }
func (e *If) Children() []Expr             { return []Expr{e.Cond, e.Then, e.Else} }
func (e *For) Children() []Expr            { return []Expr{e.Var.Value, e.Return} }
func (e *Let) Children() []Expr            { return []Expr{e.Var.Value, e.Return} }
func (e *StaticCall) Children() []Expr     { return e.Args }
func (*FunctionRef) Children() []Expr      { return nil }
func (e *InlineFunction) Children() []Expr { return []Expr{e.Body} }

func (e *Filter) Children() []Expr {
	return append([]Expr{e.Base}, e.Predicates...)
}

func (e *Quantified) Children() []Expr {
	out := make([]Expr, 0, len(e.Vars)+1)
	for _, v := range e.Vars {
		out = append(out, v.Value)
	}
	return append(out, e.Satisfies)
}

func (e *DynamicCall) Children() []Expr {
	return append([]Expr{e.Callee}, e.Args...)
}

func (e *MapConstructor) Children() []Expr {
	out := make([]Expr, 0, 2*len(e.Entries))
	for _, en := range e.Entries {
		out = append(out, en.Key, en.Value)
	}
	return out
}

func (e *ArrayConstructor) Children() []Expr { return e.Members }

func (e *Lookup) Children() []Expr {
	if e.Key.Expr != nil {
		return []Expr{e.Base, e.Key.Expr}
	}
	return []Expr{e.Base}
}

func (e *UnaryLookup) Children() []Expr {
	if e.Key.Expr != nil {
		return []Expr{e.Key.Expr}
	}
	return nil
}

// contextItemExpr is the shared compiled form of ".".
var contextItemExpr = &ContextItem{node: node{text: ".", typ: item.AnyItem}}

// lazyFunction defers resolving name#arity until the first call.
func lazyFunction(sc *StaticContext, name types.QName, arity int) func() (*functions.Definition, error) {
	return sync.OnceValues(func() (*functions.Definition, error) {
		return sc.LookupFunction(name, arity)
	})
}

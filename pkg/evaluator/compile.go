package evaluator

import (
	"strconv"
	"strings"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/parser"
	"github.com/sandrolain/gometapath/pkg/types"
)

// compiler turns a parse tree into an expression tree. Names are resolved
// against the static context as they are met, so an unbound prefix or an
// unknown type fails compilation.
type compiler struct {
	sc *StaticContext
}

// Compile parses and compiles source against sc. A nil sc means
// DefaultStaticContext().
func Compile(source string, sc *StaticContext, opts ...parser.CompileOption) (*Expression, error) {
	if sc == nil {
		sc = DefaultStaticContext()
	}
	if strings.TrimSpace(source) == "." {
		return &Expression{source: source, root: contextItemExpr, static: sc}, nil
	}
	tree, err := parser.Parse(source, opts...)
	if err != nil {
		return nil, withExpression(err, source)
	}
	c := &compiler{sc: sc}
	root, err := c.compile(tree)
	if err != nil {
		return nil, withExpression(err, source)
	}
	return &Expression{source: source, root: root, static: sc}, nil
}

func staticError(code types.ErrorCode, n *parser.Node, format string, args ...any) *types.Error {
	return types.Errorf(code, format, args...).WithPosition(n.Start).WithToken(n.Text)
}

// locate fills in the position of a name resolution error.
func locate(err error, n *parser.Node) error {
	if e, ok := err.(*types.Error); ok && e.Position < 0 {
		e.Position = n.Start
	}
	return err
}

func (c *compiler) compileAll(nodes []*parser.Node) ([]Expr, error) {
	out := make([]Expr, 0, len(nodes))
	for _, n := range nodes {
		e, err := c.compile(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// operands returns the operands of a chain whose children interleave
// operands with operator terminals.
func operands(n *parser.Node) []*parser.Node {
	out := make([]*parser.Node, 0, len(n.Children)/2+1)
	for i := 0; i < len(n.Children); i += 2 {
		out = append(out, n.Children[i])
	}
	return out
}

func (c *compiler) compile(n *parser.Node) (Expr, error) {
	switch n.Rule {
	case parser.RuleExpr:
		ops, err := c.compileAll(operands(n))
		if err != nil {
			return nil, err
		}
		return &SequenceExpr{node: node{n.Text, narrow(item.AnyItem, ops...)}, Operands: ops}, nil
	case parser.RuleFor, parser.RuleLet:
		return c.compileBindings(n)
	case parser.RuleQuantified:
		return c.compileQuantified(n)
	case parser.RuleIf:
		ops, err := c.compileAll(n.Children)
		if err != nil {
			return nil, err
		}
		typ := item.CommonSuperType(ops[1].StaticType(), ops[2].StaticType())
		return &If{node: node{n.Text, typ}, Cond: ops[0], Then: ops[1], Else: ops[2]}, nil
	case parser.RuleOr, parser.RuleAnd:
		ops, err := c.compileAll(operands(n))
		if err != nil {
			return nil, err
		}
		if n.Rule == parser.RuleOr {
			return &Or{node: node{n.Text, item.BooleanType}, Operands: ops}, nil
		}
		return &And{node: node{n.Text, item.BooleanType}, Operands: ops}, nil
	case parser.RuleComparison:
		return c.compileComparison(n)
	case parser.RuleStringConcat:
		ops, err := c.compileAll(operands(n))
		if err != nil {
			return nil, err
		}
		return &StringConcat{node: node{n.Text, item.StringType}, Operands: ops}, nil
	case parser.RuleRange:
		l, r, err := c.compilePair(n.Children[0], n.Children[2])
		if err != nil {
			return nil, err
		}
		return &Range{node: node{n.Text, item.IntegerType}, Start: l, End: r}, nil
	case parser.RuleAdditive, parser.RuleMultiplicative:
		return c.compileArithmetic(n)
	case parser.RuleUnion:
		ops, err := c.compileAll(operands(n))
		if err != nil {
			return nil, err
		}
		return &Union{node: node{n.Text, narrow(item.AnyNode, ops...)}, Operands: ops}, nil
	case parser.RuleIntersect:
		return c.compileIntersect(n)
	case parser.RuleInstanceOf, parser.RuleTreat:
		return c.compileSequenceTypeOp(n)
	case parser.RuleCast, parser.RuleCastable:
		return c.compileCast(n)
	case parser.RuleArrow:
		return c.compileArrow(n)
	case parser.RuleUnary:
		return c.compileUnary(n)
	case parser.RuleSimpleMap:
		ops, err := c.compileAll(operands(n))
		if err != nil {
			return nil, err
		}
		return &SimpleMap{node: node{n.Text, ops[len(ops)-1].StaticType()}, Operands: ops}, nil
	case parser.RulePath:
		return c.compilePath(n)
	case parser.RuleRelativePath:
		return c.compileRelativePath(n)
	case parser.RuleAxisStep, parser.RuleAbbrevStep, parser.RuleAbbrevParent:
		return c.compileStep(n)
	case parser.RulePostfix:
		return c.compilePostfix(n)
	case parser.RuleUnaryLookup:
		key, err := c.compileKey(n)
		if err != nil {
			return nil, err
		}
		return &UnaryLookup{node: node{n.Text, item.AnyItem}, Key: key}, nil
	case parser.RuleLiteral:
		return c.compileLiteral(n)
	case parser.RuleVarRef:
		name, err := c.sc.ResolveVariableName(n.Child(0).Token.Value)
		if err != nil {
			return nil, locate(err, n)
		}
		return &VariableRef{node: node{n.Text, item.AnyItem}, Name: name, key: name.Intern()}, nil
	case parser.RuleParenthesized:
		if len(n.Children) == 0 {
			return &SequenceExpr{node: node{n.Text, item.AnyItem}}, nil
		}
		return c.compile(n.Children[0])
	case parser.RuleContextItem:
		return contextItemExpr, nil
	case parser.RuleFunctionCall:
		return c.compileFunctionCall(n)
	case parser.RuleNamedFunctionRef:
		return c.compileFunctionRef(n)
	case parser.RuleInlineFunction:
		return c.compileInlineFunction(n)
	case parser.RuleMapConstructor:
		return c.compileMap(n)
	case parser.RuleSquareArray, parser.RuleCurlyArray:
		members, err := c.compileAll(n.Children)
		if err != nil {
			return nil, err
		}
		return &ArrayConstructor{
			node:    node{n.Text, item.AnyArray},
			Curly:   n.Rule == parser.RuleCurlyArray,
			Members: members,
		}, nil
	}
	return nil, staticError(types.ErrInvalidPathGrammar, n, "unexpected %s in expression", n.Rule)
}

func (c *compiler) compilePair(l, r *parser.Node) (Expr, Expr, error) {
	left, err := c.compile(l)
	if err != nil {
		return nil, nil, err
	}
	right, err := c.compile(r)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (c *compiler) compileBinding(n *parser.Node) (Binding, error) {
	name, err := c.sc.ResolveVariableName(n.Child(0).Token.Value)
	if err != nil {
		return Binding{}, locate(err, n)
	}
	value, err := c.compile(n.Child(1))
	if err != nil {
		return Binding{}, err
	}
	return Binding{Name: name, Value: value, key: name.Intern()}, nil
}

// compileBindings compiles a for or let with several clauses into nested
// single-clause nodes, innermost last.
func (c *compiler) compileBindings(n *parser.Node) (Expr, error) {
	last := len(n.Children) - 1
	body, err := c.compile(n.Children[last])
	if err != nil {
		return nil, err
	}
	for i := last - 1; i >= 0; i-- {
		b, err := c.compileBinding(n.Children[i])
		if err != nil {
			return nil, err
		}
		text := n.Text
		if i > 0 {
			text = n.Text[n.Children[i].Start-n.Start:]
		}
		if n.Rule == parser.RuleFor {
			body = &For{node: node{text, body.StaticType()}, Var: b, Return: body}
		} else {
			body = &Let{node: node{text, body.StaticType()}, Var: b, Return: body}
		}
	}
	return body, nil
}

func (c *compiler) compileQuantified(n *parser.Node) (Expr, error) {
	last := len(n.Children) - 1
	vars := make([]Binding, 0, last-1)
	for _, bn := range n.Children[1:last] {
		b, err := c.compileBinding(bn)
		if err != nil {
			return nil, err
		}
		vars = append(vars, b)
	}
	satisfies, err := c.compile(n.Children[last])
	if err != nil {
		return nil, err
	}
	return &Quantified{
		node:      node{n.Text, item.BooleanType},
		Every:     n.Child(0).Is("every"),
		Vars:      vars,
		Satisfies: satisfies,
	}, nil
}

var comparisonOps = map[string]struct {
	op      item.ComparisonOp
	general bool
}{
	"=": {item.OpEq, true}, "!=": {item.OpNe, true},
	"<": {item.OpLt, true}, "<=": {item.OpLe, true},
	">": {item.OpGt, true}, ">=": {item.OpGe, true},
	"eq": {item.OpEq, false}, "ne": {item.OpNe, false},
	"lt": {item.OpLt, false}, "le": {item.OpLe, false},
	"gt": {item.OpGt, false}, "ge": {item.OpGe, false},
}

func (c *compiler) compileComparison(n *parser.Node) (Expr, error) {
	l, r, err := c.compilePair(n.Children[0], n.Children[2])
	if err != nil {
		return nil, err
	}
	op := comparisonOps[n.Children[1].Token.Value]
	return &Comparison{node: node{n.Text, item.BooleanType}, Op: op.op, General: op.general, Left: l, Right: r}, nil
}

var arithmeticOps = map[string]item.ArithmeticOp{
	"+": item.OpAdd, "-": item.OpSubtract, "*": item.OpMultiply,
	"div": item.OpDivide, "idiv": item.OpIntegerDivide, "mod": item.OpMod,
}

// compileArithmetic folds an additive or multiplicative chain to the left.
func (c *compiler) compileArithmetic(n *parser.Node) (Expr, error) {
	left, err := c.compile(n.Children[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i+1 < len(n.Children); i += 2 {
		right, err := c.compile(n.Children[i+1])
		if err != nil {
			return nil, err
		}
		op := arithmeticOps[n.Children[i].Token.Value]
		var typ item.ItemType
		switch op {
		case item.OpDivide:
			typ = item.DecimalType
		case item.OpIntegerDivide:
			typ = item.IntegerType
		default:
			typ = narrow(item.AnyAtomicType, left, right)
		}
		text := n.Text[:n.Children[i+1].End-n.Start]
		left = &Arithmetic{node: node{text, typ}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (c *compiler) compileIntersect(n *parser.Node) (Expr, error) {
	left, err := c.compile(n.Children[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i+1 < len(n.Children); i += 2 {
		right, err := c.compile(n.Children[i+1])
		if err != nil {
			return nil, err
		}
		text := n.Text[:n.Children[i+1].End-n.Start]
		if n.Children[i].Is("intersect") {
			left = &Intersect{node: node{text, narrow(item.AnyNode, left, right)}, Left: left, Right: right}
		} else {
			left = &Except{node: node{text, narrow(item.AnyNode, left)}, Left: left, Right: right}
		}
	}
	return left, nil
}

func (c *compiler) compileSequenceTypeOp(n *parser.Node) (Expr, error) {
	operand, err := c.compile(n.Children[0])
	if err != nil {
		return nil, err
	}
	st, err := c.sequenceType(n.Children[1])
	if err != nil {
		return nil, err
	}
	if n.Rule == parser.RuleInstanceOf {
		return &InstanceOf{node: node{n.Text, item.BooleanType}, Operand: operand, Type: st}, nil
	}
	typ := st.Item
	if st.Empty {
		typ = item.AnyItem
	}
	return &Treat{node: node{n.Text, typ}, Operand: operand, Type: st}, nil
}

func (c *compiler) compileCast(n *parser.Node) (Expr, error) {
	operand, err := c.compile(n.Children[0])
	if err != nil {
		return nil, err
	}
	single := n.Children[1]
	nameNode := single.Child(0)
	name := nameNode.Child(0).Token.Value
	qn, err := c.sc.ResolveTypeName(name)
	if err != nil {
		return nil, locate(err, nameNode)
	}
	if qn == item.AnyAtomicType.Name() {
		return nil, staticError(types.ErrCastAnyAtomic, nameNode, "cannot cast to '%s'", name)
	}
	t, ok := item.LookupAtomicType(qn)
	if !ok {
		return nil, staticError(types.ErrCastUnknownType, nameNode, "unknown atomic type '%s' in cast", name)
	}
	allowEmpty := single.Child(1) != nil
	if n.Rule == parser.RuleCastable {
		return &Castable{node: node{n.Text, item.BooleanType}, Operand: operand, Type: t, AllowEmpty: allowEmpty}, nil
	}
	return &Cast{node: node{n.Text, t}, Operand: operand, Type: t, AllowEmpty: allowEmpty}, nil
}

var occurrences = map[string]item.Occurrence{
	"?": item.ZeroOrOne,
	"*": item.ZeroOrMore,
	"+": item.OneOrMore,
}

// sequenceType compiles a SequenceType production.
func (c *compiler) sequenceType(n *parser.Node) (item.SequenceType, error) {
	first := n.Child(0)
	if first.Is("empty-sequence") {
		return item.EmptySequenceType, nil
	}
	var it item.ItemType
	switch first.Rule {
	case parser.RuleTypeName:
		t, err := c.sc.LookupAtomicType(first.Child(0).Token.Value)
		if err != nil {
			return item.SequenceType{}, locate(err, first)
		}
		it = t
	case parser.RuleKindTest:
		var err error
		if it, err = kindItemType(first); err != nil {
			return item.SequenceType{}, err
		}
	}
	occ := item.ExactlyOne
	if o := n.Child(1); o != nil {
		occ = occurrences[o.Token.Value]
	}
	return item.SequenceType{Item: it, Occurrence: occ}, nil
}

// kindItemType maps a kind test used as an item type. A name argument is
// accepted and ignored; only the kind is checked.
func kindItemType(n *parser.Node) (item.ItemType, error) {
	switch n.Child(0).Token.Value {
	case "item":
		return item.AnyItem, nil
	case "map":
		return item.AnyMap, nil
	case "array":
		return item.AnyArray, nil
	case "function":
		return item.AnyFunction, nil
	case "node":
		return item.AnyNode, nil
	case "document-node":
		return item.DocumentNode, nil
	case "element":
		return item.ElementNode, nil
	case "assembly":
		return item.AssemblyNode, nil
	case "field":
		return item.FieldNode, nil
	case "flag", "attribute":
		return item.FlagNode, nil
	}
	return nil, staticError(types.ErrUnknownType, n, "unknown item type '%s'", n.Text)
}

// compileArrow desugars "a => f(b)" into "f(a, b)". A variable or
// parenthesized target becomes a dynamic call.
func (c *compiler) compileArrow(n *parser.Node) (Expr, error) {
	base, err := c.compile(n.Children[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i+1 < len(n.Children); i += 2 {
		target, argList := n.Children[i], n.Children[i+1]
		rest, err := c.compileAll(argList.Children)
		if err != nil {
			return nil, err
		}
		args := append([]Expr{base}, rest...)
		text := n.Text[:argList.End-n.Start]
		if target.IsTerminal() {
			base, err = c.staticCall(target, text, args)
			if err != nil {
				return nil, err
			}
			continue
		}
		callee, err := c.compile(target)
		if err != nil {
			return nil, err
		}
		base = &DynamicCall{node: node{text, item.AnyItem}, Callee: callee, Args: args}
	}
	return base, nil
}

func (c *compiler) compileUnary(n *parser.Node) (Expr, error) {
	last := len(n.Children) - 1
	operand, err := c.compile(n.Children[last])
	if err != nil {
		return nil, err
	}
	negative := false
	for _, sign := range n.Children[:last] {
		if sign.Is("-") {
			negative = !negative
		}
	}
	return &Negate{node: node{n.Text, narrow(item.AnyAtomicType, operand)}, Negative: negative, Operand: operand}, nil
}

func (c *compiler) compilePath(n *parser.Node) (Expr, error) {
	if len(n.Children) == 1 {
		return &Root{node: node{n.Text, item.DocumentNode}}, nil
	}
	rel, err := c.compile(n.Children[1])
	if err != nil {
		return nil, err
	}
	return &RootPath{node: node{n.Text, rel.StaticType()}, Descendant: n.Children[0].Is("//"), Path: rel}, nil
}

func (c *compiler) compileRelativePath(n *parser.Node) (Expr, error) {
	left, err := c.compile(n.Children[0])
	if err != nil {
		return nil, err
	}
	for i := 1; i+1 < len(n.Children); i += 2 {
		right, err := c.compile(n.Children[i+1])
		if err != nil {
			return nil, err
		}
		text := n.Text[:n.Children[i+1].End-n.Start]
		left = &Path{
			node:       node{text, right.StaticType()},
			Descendant: n.Children[i].Is("//"),
			Left:       left,
			Right:      right,
		}
	}
	return left, nil
}

func (c *compiler) compileStep(n *parser.Node) (Expr, error) {
	var (
		axis  Axis
		test  NodeTest
		preds []*parser.Node
		err   error
	)
	switch n.Rule {
	case parser.RuleAbbrevParent:
		axis = AxisParent
		test = NodeTest{Kinds: item.AnyNode.Kinds, text: "node()"}
		preds = n.Children[1:]
	case parser.RuleAxisStep:
		first := n.Children[0]
		if first.Is("@") {
			axis = AxisFlag
		} else {
			var ok bool
			if axis, ok = lookupAxis(first.Token.Value); !ok {
				return nil, staticError(types.ErrInvalidPathGrammar, first, "unknown axis '%s'", first.Token.Value)
			}
		}
		if test, err = c.nodeTest(n.Children[1], axis); err != nil {
			return nil, err
		}
		preds = n.Children[2:]
	default:
		axis = AxisChild
		t := n.Children[0]
		if t.Rule == parser.RuleKindTest && (t.Child(0).Is("flag") || t.Child(0).Is("attribute")) {
			axis = AxisFlag
		}
		if test, err = c.nodeTest(t, axis); err != nil {
			return nil, err
		}
		preds = n.Children[1:]
	}

	predicates := make([]Expr, 0, len(preds))
	for _, p := range preds {
		e, err := c.compile(p.Child(0))
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, e)
	}
	return &Step{
		node:       node{n.Text, item.NodeType{Kinds: test.Kinds}},
		Axis:       axis,
		Test:       test,
		Predicates: predicates,
	}, nil
}

// principalKinds are the kinds a name test matches on an axis.
func principalKinds(axis Axis) item.NodeKind {
	if axis == AxisFlag {
		return item.KindFlag
	}
	return item.KindAssembly | item.KindField
}

func (c *compiler) resolveStepName(name string, axis Axis) (types.QName, bool, error) {
	if axis == AxisFlag {
		qn, err := c.sc.ResolveFlagName(name)
		return qn, false, err
	}
	return c.sc.ResolveModelName(name)
}

func (c *compiler) nodeTest(n *parser.Node, axis Axis) (NodeTest, error) {
	switch n.Rule {
	case parser.RuleNameTest:
		name := n.Child(0).Token.Value
		qn, wildcard, err := c.resolveStepName(name, axis)
		if err != nil {
			return NodeTest{}, locate(err, n)
		}
		return NodeTest{Kinds: principalKinds(axis), Name: qn, AnyNamespace: wildcard, Named: true, text: name}, nil
	case parser.RuleWildcard:
		return c.wildcardTest(n, axis)
	case parser.RuleKindTest:
		return c.kindTest(n)
	}
	return NodeTest{}, staticError(types.ErrInvalidPathGrammar, n, "unexpected node test '%s'", n.Text)
}

func (c *compiler) wildcardTest(n *parser.Node, axis Axis) (NodeTest, error) {
	v := n.Child(0).Token.Value
	t := NodeTest{Kinds: principalKinds(axis), Named: true, text: v}
	switch {
	case v == "*":
		t.AnyNamespace, t.AnyLocal = true, true
	case strings.HasPrefix(v, "*:"):
		t.AnyNamespace = true
		t.Name = types.NewQName("", v[2:])
	case strings.HasPrefix(v, "Q{"):
		t.AnyLocal = true
		t.Name = types.NewQName(v[2:len(v)-2], "")
	default:
		prefix := strings.TrimSuffix(v, ":*")
		uri, ok := c.sc.NamespaceURI(prefix)
		if !ok {
			return NodeTest{}, staticError(types.ErrPrefixNotExpandable, n, "the namespace prefix '%s' is not bound", prefix)
		}
		t.AnyLocal = true
		t.Name = types.NewQName(uri, "")
	}
	return t, nil
}

var kindTestKinds = map[string]item.NodeKind{
	"node":          item.AnyNode.Kinds,
	"document-node": item.KindDocument,
	"element":       item.KindAssembly | item.KindField,
	"assembly":      item.KindAssembly,
	"field":         item.KindField,
	"flag":          item.KindFlag,
	"attribute":     item.KindFlag,
}

func (c *compiler) kindTest(n *parser.Node) (NodeTest, error) {
	kind := n.Child(0).Token.Value
	kinds, ok := kindTestKinds[kind]
	if !ok {
		return NodeTest{}, staticError(types.ErrInvalidPathGrammar, n, "'%s' is not a node kind test", n.Text)
	}
	t := NodeTest{Kinds: kinds, text: n.Text}
	arg := n.Child(1)
	if arg == nil || arg.Is("*") || kind == "node" || kind == "document-node" {
		return t, nil
	}
	axis := AxisChild
	if kinds == item.KindFlag {
		axis = AxisFlag
	}
	qn, wildcard, err := c.resolveStepName(arg.Token.Value, axis)
	if err != nil {
		return NodeTest{}, locate(err, arg)
	}
	t.Name, t.AnyNamespace, t.Named = qn, wildcard, true
	return t, nil
}

// compilePostfix applies predicates, argument lists and lookups to a
// primary expression from left to right.
func (c *compiler) compilePostfix(n *parser.Node) (Expr, error) {
	base, err := c.compile(n.Children[0])
	if err != nil {
		return nil, err
	}
	for _, suffix := range n.Children[1:] {
		text := n.Text[:suffix.End-n.Start]
		switch suffix.Rule {
		case parser.RulePredicate:
			pred, err := c.compile(suffix.Child(0))
			if err != nil {
				return nil, err
			}
			if f, ok := base.(*Filter); ok {
				f.text = text
				f.Predicates = append(f.Predicates, pred)
				continue
			}
			base = &Filter{node: node{text, base.StaticType()}, Base: base, Predicates: []Expr{pred}}
		case parser.RuleArgumentList:
			args, err := c.compileAll(suffix.Children)
			if err != nil {
				return nil, err
			}
			base = &DynamicCall{node: node{text, item.AnyItem}, Callee: base, Args: args}
		case parser.RuleLookup:
			key, err := c.compileKey(suffix)
			if err != nil {
				return nil, err
			}
			base = &Lookup{node: node{text, item.AnyItem}, Base: base, Key: key}
		}
	}
	return base, nil
}

func (c *compiler) compileKey(n *parser.Node) (KeySpecifier, error) {
	k := n.Child(0)
	if !k.IsTerminal() {
		e, err := c.compile(k)
		if err != nil {
			return KeySpecifier{}, err
		}
		return KeySpecifier{Expr: e}, nil
	}
	switch k.Token.Type {
	case parser.TokenStar:
		return KeySpecifier{Wildcard: true}, nil
	case parser.TokenInteger:
		i, err := strconv.Atoi(k.Token.Value)
		if err != nil {
			return KeySpecifier{}, staticError(types.ErrInvalidPathGrammar, k, "invalid lookup index '%s'", k.Token.Value)
		}
		return KeySpecifier{Integer: i, IsInt: true}, nil
	}
	return KeySpecifier{Name: k.Token.Value}, nil
}

func (c *compiler) compileLiteral(n *parser.Node) (Expr, error) {
	tok := n.Child(0).Token
	var (
		v   item.AtomicItem
		err error
	)
	switch tok.Type {
	case parser.TokenString:
		v = item.NewString(tok.Value)
	case parser.TokenInteger:
		v, err = item.ParseInteger(tok.Value)
	case parser.TokenDecimal:
		v, err = item.ParseDecimal(tok.Value)
	case parser.TokenDouble:
		v, err = item.ParseDouble(tok.Value)
	}
	if err != nil {
		return nil, locate(err, n)
	}
	return &Literal{node: node{n.Text, v.Type()}, Value: v}, nil
}

func (c *compiler) staticCall(nameNode *parser.Node, text string, args []Expr) (Expr, error) {
	name, err := c.sc.ResolveFunctionName(nameNode.Token.Value)
	if err != nil {
		return nil, locate(err, nameNode)
	}
	call := &StaticCall{
		node:    node{text, item.AnyItem},
		Name:    name,
		Args:    args,
		resolve: lazyFunction(c.sc, name, len(args)),
	}
	if d, ok := c.sc.Functions().Lookup(name, len(args)); ok && !d.Result.Empty {
		call.typ = d.Result.Item
	}
	return call, nil
}

func (c *compiler) compileFunctionCall(n *parser.Node) (Expr, error) {
	args, err := c.compileAll(n.Child(1).Children)
	if err != nil {
		return nil, err
	}
	return c.staticCall(n.Child(0), n.Text, args)
}

func (c *compiler) compileFunctionRef(n *parser.Node) (Expr, error) {
	name, err := c.sc.ResolveFunctionName(n.Child(0).Token.Value)
	if err != nil {
		return nil, locate(err, n)
	}
	arity, err := strconv.Atoi(n.Child(1).Token.Value)
	if err != nil {
		return nil, staticError(types.ErrInvalidPathGrammar, n, "invalid arity in '%s'", n.Text)
	}
	return &FunctionRef{
		node:    node{n.Text, item.AnyFunction},
		Name:    name,
		Arity:   arity,
		resolve: lazyFunction(c.sc, name, arity),
	}, nil
}

func (c *compiler) compileInlineFunction(n *parser.Node) (Expr, error) {
	paramList := n.Children[0]
	params := make([]Param, 0, len(paramList.Children))
	seen := make(map[types.QName]bool, len(paramList.Children))
	for _, pn := range paramList.Children {
		name, err := c.sc.ResolveVariableName(pn.Child(0).Token.Value)
		if err != nil {
			return nil, locate(err, pn)
		}
		if seen[name] {
			return nil, staticError(types.ErrDuplicateParameter, pn, "duplicate parameter '$%s'", pn.Child(0).Token.Value)
		}
		seen[name] = true
		st := item.AnySequence
		if stn := pn.Child(1); stn != nil {
			if st, err = c.sequenceType(stn); err != nil {
				return nil, err
			}
		}
		params = append(params, Param{Name: name, Type: st, key: name.Intern()})
	}

	result := item.AnySequence
	bodyNode := n.Children[len(n.Children)-1]
	if len(n.Children) == 3 {
		var err error
		if result, err = c.sequenceType(n.Children[1]); err != nil {
			return nil, err
		}
	}
	body, err := c.compile(bodyNode)
	if err != nil {
		return nil, err
	}
	return &InlineFunction{node: node{n.Text, item.AnyFunction}, Params: params, Result: result, Body: body}, nil
}

func (c *compiler) compileMap(n *parser.Node) (Expr, error) {
	entries := make([]MapEntry, 0, len(n.Children))
	for _, en := range n.Children {
		k, v, err := c.compilePair(en.Child(0), en.Child(1))
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: k, Value: v})
	}
	return &MapConstructor{node: node{n.Text, item.AnyMap}, Entries: entries}, nil
}

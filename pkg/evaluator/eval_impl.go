package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// Focus is the context item of an evaluation together with its position
// in the sequence being processed. The zero Focus has no context item.
type Focus struct {
	Item     item.Item
	Position int
	Size     int
}

func focusOn(it item.Item) Focus {
	if it == nil {
		return Focus{}
	}
	return Focus{Item: it, Position: 1, Size: 1}
}

// node returns the context item as a node.
func (f Focus) node() (item.NodeItem, error) {
	if f.Item == nil {
		return nil, types.NewError(types.ErrContextAbsent, "the context item is absent")
	}
	n, ok := f.Item.(item.NodeItem)
	if !ok {
		return nil, types.Errorf(types.ErrContextNotNode, "the context item is a %s, not a node", f.Item.ItemType())
	}
	return n, nil
}

// eval evaluates e against focus. Every node goes through here, which
// checks for cancellation, tracks the node on the execution stack and
// attaches a snapshot of the stack to the first coded error raised.
func (dc *DynamicContext) eval(ctx context.Context, e Expr, focus Focus) (item.Sequence, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := dc.stack.push(e, dc.session.maxDepth); err != nil {
		return nil, err
	}
	if dc.session.debug {
		dc.session.logger.DebugContext(ctx, "evaluating expression",
			"kind", kindName(e),
			"expr", e.Text(),
			"depth", dc.stack.Depth())
	}

	out, err := dc.dispatch(ctx, e, focus)
	if err != nil {
		var coded *types.Error
		if errors.As(err, &coded) && coded.Stack == nil {
			coded.Stack = dc.stack.Snapshot()
		}
	}
	dc.stack.pop()
	return out, err
}

func (dc *DynamicContext) dispatch(ctx context.Context, e Expr, focus Focus) (item.Sequence, error) {
	switch e := e.(type) {
	case *Literal:
		return item.Of(e.Value), nil
	case *VariableRef:
		return dc.evalVariable(e)
	case *ContextItem:
		if focus.Item == nil {
			return nil, types.NewError(types.ErrContextAbsent, "the context item is absent")
		}
		return item.Of(focus.Item), nil
	case *SequenceExpr:
		return dc.evalSequence(ctx, e, focus)
	case *Or:
		return dc.evalLogical(ctx, e.Operands, true, focus)
	case *And:
		return dc.evalLogical(ctx, e.Operands, false, focus)
	case *Comparison:
		return dc.evalComparison(ctx, e, focus)
	case *StringConcat:
		return dc.evalStringConcat(ctx, e, focus)
	case *Range:
		return dc.evalRange(ctx, e, focus)
	case *Arithmetic:
		return dc.evalArithmetic(ctx, e, focus)
	case *Negate:
		return dc.evalNegate(ctx, e, focus)
	case *Union:
		return dc.evalUnion(ctx, e, focus)
	case *Intersect:
		return dc.evalIntersectExcept(ctx, e.Left, e.Right, true, focus)
	case *Except:
		return dc.evalIntersectExcept(ctx, e.Left, e.Right, false, focus)
	case *InstanceOf:
		return dc.evalInstanceOf(ctx, e, focus)
	case *Treat:
		return dc.evalTreat(ctx, e, focus)
	case *Cast:
		return dc.evalCast(ctx, e, focus)
	case *Castable:
		return dc.evalCastable(ctx, e, focus)
	case *SimpleMap:
		return dc.evalSimpleMap(ctx, e, focus)
	case *Root:
		return dc.evalRoot(focus)
	case *RootPath:
		return dc.evalRootPath(ctx, e, focus)
	case *Path:
		return dc.evalPath(ctx, e, focus)
	case *Step:
		return dc.evalStep(ctx, e, focus)
	case *Filter:
		return dc.evalFilter(ctx, e, focus)
	case *If:
		return dc.evalIf(ctx, e, focus)
	case *For:
		return dc.evalFor(ctx, e, focus)
	case *Let:
		return dc.evalLet(ctx, e, focus)
	case *Quantified:
		return dc.evalQuantified(ctx, e, focus)
	case *StaticCall:
		return dc.evalStaticCall(ctx, e, focus)
	case *DynamicCall:
		return dc.evalDynamicCall(ctx, e, focus)
	case *FunctionRef:
		d, err := e.resolve()
		if err != nil {
			return nil, err
		}
		return item.Of(d), nil
	case *InlineFunction:
		return item.Of(newFunction(e, dc)), nil
	case *MapConstructor:
		return dc.evalMapConstructor(ctx, e, focus)
	case *ArrayConstructor:
		return dc.evalArrayConstructor(ctx, e, focus)
	case *Lookup:
		return dc.evalLookup(ctx, e, focus)
	case *UnaryLookup:
		if focus.Item == nil {
			return nil, types.NewError(types.ErrContextAbsent, "unary lookup requires a context item")
		}
		return dc.lookup(ctx, item.Of(focus.Item), e.Key, focus)
	}
	return nil, fmt.Errorf("evaluator: unsupported expression %T", e)
}

func (dc *DynamicContext) evalVariable(e *VariableRef) (item.Sequence, error) {
	v, ok := dc.variable(e.key)
	if !ok {
		return nil, types.Errorf(types.ErrNotDefined, "variable '%s' is not bound", e.Name).WithToken(e.Text())
	}
	return v, nil
}

func (dc *DynamicContext) evalSequence(ctx context.Context, e *SequenceExpr, focus Focus) (item.Sequence, error) {
	switch len(e.Operands) {
	case 0:
		return item.Empty(), nil
	case 1:
		return dc.eval(ctx, e.Operands[0], focus)
	}
	parts := make([]item.Sequence, len(e.Operands))
	for i, op := range e.Operands {
		s, err := dc.eval(ctx, op, focus)
		if err != nil {
			return nil, err
		}
		parts[i] = s
	}
	return item.Concat(parts...), nil
}

// evalLogical evaluates an or/and chain, stopping at the first operand
// that decides the result.
func (dc *DynamicContext) evalLogical(ctx context.Context, operands []Expr, or bool, focus Focus) (item.Sequence, error) {
	for _, op := range operands {
		s, err := dc.eval(ctx, op, focus)
		if err != nil {
			return nil, err
		}
		b, err := item.EffectiveBooleanValue(s)
		if err != nil {
			return nil, err
		}
		if b == or {
			return item.Of(item.NewBoolean(or)), nil
		}
	}
	return item.Of(item.NewBoolean(!or)), nil
}

func (dc *DynamicContext) evalStringConcat(ctx context.Context, e *StringConcat, focus Focus) (item.Sequence, error) {
	var b strings.Builder
	for _, op := range e.Operands {
		s, err := dc.eval(ctx, op, focus)
		if err != nil {
			return nil, err
		}
		atoms, err := item.Atomize(s)
		if err != nil {
			return nil, err
		}
		for it := range atoms.All() {
			b.WriteString(it.(item.AtomicItem).StringValue())
		}
	}
	return item.Of(item.NewString(b.String())), nil
}

func (dc *DynamicContext) evalIf(ctx context.Context, e *If, focus Focus) (item.Sequence, error) {
	cond, err := dc.eval(ctx, e.Cond, focus)
	if err != nil {
		return nil, err
	}
	b, err := item.EffectiveBooleanValue(cond)
	if err != nil {
		return nil, err
	}
	if b {
		return dc.eval(ctx, e.Then, focus)
	}
	return dc.eval(ctx, e.Else, focus)
}

// evalSimpleMap evaluates each operand once per item of the previous
// operand's result, with that item as the focus.
func (dc *DynamicContext) evalSimpleMap(ctx context.Context, e *SimpleMap, focus Focus) (item.Sequence, error) {
	cur, err := dc.eval(ctx, e.Operands[0], focus)
	if err != nil {
		return nil, err
	}
	for _, op := range e.Operands[1:] {
		items := cur.Items()
		var out []item.Item
		for i, it := range items {
			s, err := dc.eval(ctx, op, Focus{Item: it, Position: i + 1, Size: len(items)})
			if err != nil {
				return nil, err
			}
			out = append(out, s.Items()...)
		}
		cur = item.FromSlice(out)
	}
	return cur, nil
}

func (dc *DynamicContext) evalMapConstructor(ctx context.Context, e *MapConstructor, focus Focus) (item.Sequence, error) {
	entries := make([]item.MapEntry, 0, len(e.Entries))
	for _, en := range e.Entries {
		ks, err := dc.eval(ctx, en.Key, focus)
		if err != nil {
			return nil, err
		}
		key, err := singleAtomic(ks, "map key")
		if err != nil {
			return nil, err
		}
		if key == nil {
			return nil, types.NewError(types.ErrInvalidType, "a map key must be a single atomic value, got an empty sequence")
		}
		v, err := dc.eval(ctx, en.Value, focus)
		if err != nil {
			return nil, err
		}
		entries = append(entries, item.MapEntry{Key: key, Value: v})
	}
	m, err := item.NewMap(entries...)
	if err != nil {
		return nil, err
	}
	return item.Of(m), nil
}

func (dc *DynamicContext) evalArrayConstructor(ctx context.Context, e *ArrayConstructor, focus Focus) (item.Sequence, error) {
	if e.Curly {
		var members []item.Sequence
		for _, m := range e.Members {
			s, err := dc.eval(ctx, m, focus)
			if err != nil {
				return nil, err
			}
			for it := range s.All() {
				members = append(members, item.Of(it))
			}
		}
		return item.Of(item.NewArray(members...)), nil
	}
	members := make([]item.Sequence, len(e.Members))
	for i, m := range e.Members {
		s, err := dc.eval(ctx, m, focus)
		if err != nil {
			return nil, err
		}
		members[i] = s
	}
	return item.Of(item.NewArray(members...)), nil
}

func (dc *DynamicContext) evalLookup(ctx context.Context, e *Lookup, focus Focus) (item.Sequence, error) {
	base, err := dc.eval(ctx, e.Base, focus)
	if err != nil {
		return nil, err
	}
	return dc.lookup(ctx, base, e.Key, focus)
}

// lookup applies key to every map or array in base.
func (dc *DynamicContext) lookup(ctx context.Context, base item.Sequence, key KeySpecifier, focus Focus) (item.Sequence, error) {
	var keys item.Sequence
	if key.Expr != nil {
		s, err := dc.eval(ctx, key.Expr, focus)
		if err != nil {
			return nil, err
		}
		if keys, err = item.Atomize(s); err != nil {
			return nil, err
		}
	}

	var out []item.Item
	for it := range base.All() {
		switch v := it.(type) {
		case *item.MapItem:
			switch {
			case key.Wildcard:
				for _, val := range v.All() {
					out = append(out, val.Items()...)
				}
			case key.Expr != nil:
				for k := range keys.All() {
					val, _ := v.Get(k.(item.AtomicItem))
					out = append(out, val.Items()...)
				}
			case key.IsInt:
				val, _ := v.Get(item.NewInteger(int64(key.Integer)))
				out = append(out, val.Items()...)
			default:
				val, _ := v.Get(item.NewString(key.Name))
				out = append(out, val.Items()...)
			}
		case *item.ArrayItem:
			switch {
			case key.Wildcard:
				for _, m := range v.Members() {
					out = append(out, m.Items()...)
				}
			case key.Expr != nil:
				for k := range keys.All() {
					pos, err := arrayPosition(k.(item.AtomicItem))
					if err != nil {
						return nil, err
					}
					m, err := v.Get(pos)
					if err != nil {
						return nil, err
					}
					out = append(out, m.Items()...)
				}
			case key.IsInt:
				m, err := v.Get(key.Integer)
				if err != nil {
					return nil, err
				}
				out = append(out, m.Items()...)
			default:
				return nil, types.Errorf(types.ErrInvalidType, "an array lookup key must be an integer, got '%s'", key.Name)
			}
		default:
			return nil, types.Errorf(types.ErrInvalidType, "lookup requires a map or an array, got %s", it.ItemType())
		}
	}
	return item.FromSlice(out), nil
}

func arrayPosition(k item.AtomicItem) (int, error) {
	n, ok := k.(item.NumericItem)
	if !ok || !n.Type().DerivesFrom(item.IntegerType) {
		return 0, types.Errorf(types.ErrInvalidType, "an array lookup key must be an integer, got %s", k.Type())
	}
	i, err := n.Int64()
	if err != nil {
		return 0, types.Errorf(types.ErrArrayIndexOutOfBounds, "array index %s out of bounds", n).WithCause(err)
	}
	return int(i), nil
}

// singleAtomic atomizes s, which must hold at most one value. It returns
// nil for the empty sequence.
func singleAtomic(s item.Sequence, what string) (item.AtomicItem, error) {
	atoms, err := item.Atomize(s)
	if err != nil {
		return nil, err
	}
	switch atoms.Len() {
	case 0:
		return nil, nil
	case 1:
		return atoms.At(0).(item.AtomicItem), nil
	}
	return nil, types.Errorf(types.ErrInvalidType, "%s must be a single atomic value, got a sequence of %d items", what, atoms.Len())
}

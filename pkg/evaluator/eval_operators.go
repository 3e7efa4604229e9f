package evaluator

import (
	"context"
	"iter"

	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// evalOperands evaluates the two operands of a binary operator and
// atomizes both.
func (dc *DynamicContext) evalOperands(ctx context.Context, left, right Expr, focus Focus) (item.Sequence, item.Sequence, error) {
	l, err := dc.eval(ctx, left, focus)
	if err != nil {
		return nil, nil, err
	}
	r, err := dc.eval(ctx, right, focus)
	if err != nil {
		return nil, nil, err
	}
	if l, err = item.Atomize(l); err != nil {
		return nil, nil, err
	}
	if r, err = item.Atomize(r); err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func (dc *DynamicContext) evalComparison(ctx context.Context, e *Comparison, focus Focus) (item.Sequence, error) {
	l, r, err := dc.evalOperands(ctx, e.Left, e.Right, focus)
	if err != nil {
		return nil, err
	}

	if !e.General {
		a, err := singleAtomic(l, "the left operand of '"+e.Op.String()+"'")
		if err != nil {
			return nil, err
		}
		b, err := singleAtomic(r, "the right operand of '"+e.Op.String()+"'")
		if err != nil {
			return nil, err
		}
		if a == nil || b == nil {
			return item.Empty(), nil
		}
		ok, err := item.ValueCompare(e.Op, a, b)
		if err != nil {
			return nil, err
		}
		return item.Of(item.NewBoolean(ok)), nil
	}

	// General comparisons are existential: true as soon as one pair holds.
	for x := range l.All() {
		for y := range r.All() {
			ok, err := item.GeneralCompare(e.Op, x.(item.AtomicItem), y.(item.AtomicItem))
			if err != nil {
				return nil, err
			}
			if ok {
				return item.Of(item.NewBoolean(true)), nil
			}
		}
	}
	return item.Of(item.NewBoolean(false)), nil
}

func (dc *DynamicContext) evalArithmetic(ctx context.Context, e *Arithmetic, focus Focus) (item.Sequence, error) {
	l, r, err := dc.evalOperands(ctx, e.Left, e.Right, focus)
	if err != nil {
		return nil, err
	}
	a, err := singleAtomic(l, "the left operand of '"+e.Op.String()+"'")
	if err != nil {
		return nil, err
	}
	b, err := singleAtomic(r, "the right operand of '"+e.Op.String()+"'")
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return item.Empty(), nil
	}
	v, err := item.Arithmetic(e.Op, a, b)
	if err != nil {
		return nil, err
	}
	return item.Of(v), nil
}

func (dc *DynamicContext) evalNegate(ctx context.Context, e *Negate, focus Focus) (item.Sequence, error) {
	s, err := dc.eval(ctx, e.Operand, focus)
	if err != nil {
		return nil, err
	}
	a, err := singleAtomic(s, "the operand of unary '-'")
	if err != nil || a == nil {
		return item.Empty(), err
	}
	if e.Negative {
		v, err := item.Negate(a)
		if err != nil {
			return nil, err
		}
		return item.Of(v), nil
	}
	switch {
	case a.Type() == item.UntypedAtomicType:
		v, err := item.Cast(a, item.DecimalType)
		if err != nil {
			return nil, err
		}
		return item.Of(v), nil
	case a.Type().IsNumeric():
		return item.Of(a), nil
	}
	return nil, types.Errorf(types.ErrInvalidType, "unary plus is not defined for %s", a.Type())
}

// evalRange produces the integers from start to end inclusive. The
// sequence is generated on demand.
func (dc *DynamicContext) evalRange(ctx context.Context, e *Range, focus Focus) (item.Sequence, error) {
	l, r, err := dc.evalOperands(ctx, e.Start, e.End, focus)
	if err != nil {
		return nil, err
	}
	start, ok, err := rangeBound(l)
	if err != nil || !ok {
		return item.Empty(), err
	}
	end, ok, err := rangeBound(r)
	if err != nil || !ok {
		return item.Empty(), err
	}
	if start > end {
		return item.Empty(), nil
	}
	return item.FromIter(integers(start, end)), nil
}

func rangeBound(s item.Sequence) (int64, bool, error) {
	a, err := singleAtomic(s, "a range bound")
	if err != nil || a == nil {
		return 0, false, err
	}
	if a.Type() == item.UntypedAtomicType {
		if a, err = item.Cast(a, item.IntegerType); err != nil {
			return 0, false, err
		}
	}
	n, ok := a.(item.NumericItem)
	if !ok || !n.Type().DerivesFrom(item.IntegerType) {
		return 0, false, types.Errorf(types.ErrInvalidType, "a range bound must be an integer, got %s", a.Type())
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false, err
	}
	return i, true, nil
}

func integers(start, end int64) iter.Seq[item.Item] {
	return func(yield func(item.Item) bool) {
		for i := start; ; i++ {
			if !yield(item.NewInteger(i)) || i == end {
				return
			}
		}
	}
}

// evalNodes evaluates e, which must yield only nodes.
func (dc *DynamicContext) evalNodes(ctx context.Context, e Expr, focus Focus, op string) ([]item.NodeItem, error) {
	s, err := dc.eval(ctx, e, focus)
	if err != nil {
		return nil, err
	}
	out := make([]item.NodeItem, 0, s.Len())
	for it := range s.All() {
		n, ok := it.(item.NodeItem)
		if !ok {
			return nil, types.Errorf(types.ErrInvalidType,
				"the operands of '%s' must be nodes, got %s", op, it.ItemType()).WithToken(e.Text())
		}
		out = append(out, n)
	}
	return out, nil
}

func (dc *DynamicContext) evalUnion(ctx context.Context, e *Union, focus Focus) (item.Sequence, error) {
	var all []item.NodeItem
	for _, op := range e.Operands {
		nodes, err := dc.evalNodes(ctx, op, focus, "union")
		if err != nil {
			return nil, err
		}
		all = append(all, nodes...)
	}
	return item.FromSlice(nodeItems(item.SortDocumentOrder(all))), nil
}

// evalIntersectExcept keeps the nodes of left that are (intersect) or are
// not (except) in right.
func (dc *DynamicContext) evalIntersectExcept(ctx context.Context, left, right Expr, intersect bool, focus Focus) (item.Sequence, error) {
	op := "except"
	if intersect {
		op = "intersect"
	}
	l, err := dc.evalNodes(ctx, left, focus, op)
	if err != nil {
		return nil, err
	}
	r, err := dc.evalNodes(ctx, right, focus, op)
	if err != nil {
		return nil, err
	}
	in := make(map[item.NodeItem]struct{}, len(r))
	for _, n := range r {
		in[n] = struct{}{}
	}
	kept := l[:0:0]
	for _, n := range l {
		if _, ok := in[n]; ok == intersect {
			kept = append(kept, n)
		}
	}
	return item.FromSlice(nodeItems(item.SortDocumentOrder(kept))), nil
}

func (dc *DynamicContext) evalInstanceOf(ctx context.Context, e *InstanceOf, focus Focus) (item.Sequence, error) {
	s, err := dc.eval(ctx, e.Operand, focus)
	if err != nil {
		return nil, err
	}
	return item.Of(item.NewBoolean(e.Type.Matches(s))), nil
}

func (dc *DynamicContext) evalTreat(ctx context.Context, e *Treat, focus Focus) (item.Sequence, error) {
	s, err := dc.eval(ctx, e.Operand, focus)
	if err != nil {
		return nil, err
	}
	if !e.Type.Matches(s) {
		return nil, types.Errorf(types.ErrTreatMismatch,
			"the value does not match the type '%s'", e.Type).WithToken(e.Text())
	}
	return s, nil
}

func (dc *DynamicContext) evalCast(ctx context.Context, e *Cast, focus Focus) (item.Sequence, error) {
	s, err := dc.eval(ctx, e.Operand, focus)
	if err != nil {
		return nil, err
	}
	a, err := singleAtomic(s, "the operand of 'cast as'")
	if err != nil {
		return nil, err
	}
	if a == nil {
		if e.AllowEmpty {
			return item.Empty(), nil
		}
		return nil, types.Errorf(types.ErrInvalidType, "cannot cast an empty sequence to %s", e.Type)
	}
	v, err := item.Cast(a, e.Type)
	if err != nil {
		return nil, err
	}
	return item.Of(v), nil
}

// evalCastable never fails on the value itself: any problem casting it
// yields false.
func (dc *DynamicContext) evalCastable(ctx context.Context, e *Castable, focus Focus) (item.Sequence, error) {
	s, err := dc.eval(ctx, e.Operand, focus)
	if err != nil {
		return nil, err
	}
	atoms, err := item.Atomize(s)
	if err != nil {
		return item.Of(item.NewBoolean(false)), nil
	}
	var ok bool
	switch atoms.Len() {
	case 0:
		ok = e.AllowEmpty
	case 1:
		ok = item.Castable(atoms.At(0).(item.AtomicItem), e.Type)
	}
	return item.Of(item.NewBoolean(ok)), nil
}

package evaluator

import (
	"context"

	"github.com/sandrolain/gometapath/pkg/item"
)

func (dc *DynamicContext) evalFor(ctx context.Context, e *For, focus Focus) (item.Sequence, error) {
	in, err := dc.eval(ctx, e.Var.Value, focus)
	if err != nil {
		return nil, err
	}
	var out []item.Sequence
	for it := range in.All() {
		s, err := dc.bind(e.Var.key, item.Of(it)).eval(ctx, e.Return, focus)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return item.Concat(out...), nil
}

func (dc *DynamicContext) evalLet(ctx context.Context, e *Let, focus Focus) (item.Sequence, error) {
	v, err := dc.eval(ctx, e.Var.Value, focus)
	if err != nil {
		return nil, err
	}
	return dc.bind(e.Var.key, item.Materialize(v)).eval(ctx, e.Return, focus)
}

func (dc *DynamicContext) evalQuantified(ctx context.Context, e *Quantified, focus Focus) (item.Sequence, error) {
	ok, err := dc.quantify(ctx, e, 0, focus)
	if err != nil {
		return nil, err
	}
	return item.Of(item.NewBoolean(ok)), nil
}

// quantify binds the i-th variable to each of its values in turn and
// stops at the first binding that decides the result.
func (dc *DynamicContext) quantify(ctx context.Context, e *Quantified, i int, focus Focus) (bool, error) {
	if i == len(e.Vars) {
		s, err := dc.eval(ctx, e.Satisfies, focus)
		if err != nil {
			return false, err
		}
		return item.EffectiveBooleanValue(s)
	}
	v := e.Vars[i]
	in, err := dc.eval(ctx, v.Value, focus)
	if err != nil {
		return false, err
	}
	for it := range in.All() {
		ok, err := dc.bind(v.key, item.Of(it)).quantify(ctx, e, i+1, focus)
		if err != nil {
			return false, err
		}
		if ok != e.Every {
			return ok, nil
		}
	}
	return e.Every, nil
}
